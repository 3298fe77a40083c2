package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcarmo/umcp/configs"
	"github.com/rcarmo/umcp/examples/calculator"
	"github.com/rcarmo/umcp/internal/adapter/inbound/stdio"
	"github.com/rcarmo/umcp/internal/dispatch"
	"github.com/rcarmo/umcp/internal/registry"
	"github.com/rcarmo/umcp/internal/telemetry"
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "CalculatorServer"
	}
	if cfg.Instructions == "" {
		cfg.Instructions = calculator.Instructions
	}

	// === Logging ===
	// Stdout carries protocol output, so logs go to the configured file.
	var logWriter io.Writer = io.Discard
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		defer logFile.Close()
		logWriter = logFile
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}))
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()))

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := telemetry.Init(cfg, "umcp-calculator", logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Capability Surface ===
	reg := registry.New(logger)
	if err := calculator.New(logger).Register(reg); err != nil {
		logger.Error("Failed to register capabilities.", slog.Any("error", err))
		os.Exit(1)
	}

	// === Dispatch Engine ===
	bridge := dispatch.NewBridge(cfg.Workers, logger)
	defer bridge.Close()
	dispatcher := dispatch.New(reg, bridge, dispatch.ServerInfo{
		Name:         cfg.ServerName,
		Version:      cfg.ServerVersion,
		Instructions: cfg.Instructions,
	}, logger)

	// === Transport ===
	transport := stdio.NewServer(dispatcher, logger, os.Stdin, os.Stdout)

	if flag.NArg() > 0 {
		// File mode: the whole file is one request.
		if err := transport.ServeFile(ctx, flag.Arg(0)); err != nil {
			logger.Error("File mode failed.", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := transport.Listen(ctx); err != nil {
		logger.Error("Transport failed.", slog.Any("error", err))
		os.Exit(1)
	}
}
