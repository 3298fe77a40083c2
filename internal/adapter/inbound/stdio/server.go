// Package stdio is the inbound transport: newline-delimited JSON-RPC
// messages read from standard input (or a single file), responses written to
// standard output one line per non-notification request.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rcarmo/umcp/internal/dispatch"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 1 << 20

// Server pumps raw request lines into the dispatcher and prints its output.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	in         io.Reader
	out        io.Writer
}

// NewServer creates a transport bound to the given streams.
func NewServer(d *dispatch.Dispatcher, logger *slog.Logger, in io.Reader, out io.Writer) *Server {
	return &Server{
		dispatcher: d,
		logger:     logger.With("component", "stdio"),
		in:         in,
		out:        out,
	}
}

// Listen reads one request per line until EOF or context cancellation,
// skipping blank lines. A request is fully processed and its response
// written before the next line is read, so responses keep input order.
func (s *Server) Listen(ctx context.Context) error {
	s.logger.Info("MCP server started. Waiting for JSON-RPC 2.0 messages...")

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			s.logger.Info("MCP server stopped.")
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.process(ctx, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	s.logger.Info("MCP server finished processing input.")
	return nil
}

// ServeFile treats the whole file as a single request. An unreadable file is
// a transport error: there is no request context to respond into, so the
// caller should exit non-zero.
func (s *Server) ServeFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("Error reading input file", slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("read input file %s: %w", path, err)
	}
	return s.process(ctx, strings.TrimSpace(string(data)))
}

func (s *Server) process(ctx context.Context, line string) error {
	s.logger.Info("REQUEST", slog.String("body", line))

	resp := s.dispatcher.Dispatch(ctx, line)
	if resp == nil {
		// Notification: not even an empty envelope goes out.
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	s.logger.Info("RESPONSE", slog.String("body", string(data)))

	if _, err := fmt.Fprintln(s.out, string(data)); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
