package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcarmo/umcp/internal/domain"
	"github.com/rcarmo/umcp/internal/registry"
)

// ErrNoResult marks a handler that completed without producing a result
// value. The protocol treats that as an execution failure, not as success
// with an empty payload.
var ErrNoResult = errors.New("handler produced no result")

// MissingArgumentError reports a required parameter absent from both the
// caller-supplied arguments and the declared defaults.
type MissingArgumentError struct {
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("required parameter '%s' is missing", e.Param)
}

// ExecutionError wraps a failure raised by (or on behalf of) a handler.
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

// Invocation is everything the bridge needs to run one resolved handler.
type Invocation struct {
	Name       string
	Handler    registry.HandlerFunc
	Async      bool
	Parameters []domain.ParameterDescriptor
}

// Bridge invokes resolved handlers with bound arguments. Synchronous
// (blocking) handlers are offloaded to a bounded worker pool so the single
// dispatch goroutine is never blocked by them; asynchronous handlers run in
// place and may fan out their own concurrent sub-work.
type Bridge struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// DefaultWorkers is the pool size used when the configured value is not
// positive.
const DefaultWorkers = 4

// NewBridge starts a bridge with the given worker pool size.
func NewBridge(workers int, logger *slog.Logger) *Bridge {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	b := &Bridge{
		tasks:  make(chan func()),
		logger: logger.With("component", "bridge"),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.logger.Debug("Worker pool started", slog.Int("workers", workers))
	return b
}

func (b *Bridge) worker() {
	defer b.wg.Done()
	for task := range b.tasks {
		task()
	}
}

// Close stops accepting work and waits for in-flight handlers to run to
// completion. Running handlers are never forcibly cancelled.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.tasks)
	})
	b.wg.Wait()
}

// Invoke binds arguments and runs the handler. Binding is atomic: a missing
// required parameter fails the call before the handler sees any arguments,
// so an incompletely-supplied call can have no partial side effects.
func (b *Bridge) Invoke(ctx context.Context, inv Invocation, supplied map[string]domain.Value) (domain.Value, error) {
	args, err := BindArguments(inv.Parameters, supplied)
	if err != nil {
		return domain.Value{}, err
	}

	var out domain.Value
	if inv.Async {
		out, err = inv.Handler(ctx, args)
	} else {
		out, err = b.offload(ctx, inv.Handler, args)
	}
	if err != nil {
		return domain.Value{}, &ExecutionError{Name: inv.Name, Err: err}
	}
	if !out.IsValid() {
		b.logger.Warn("Handler returned no result", slog.String("name", inv.Name))
		return domain.Value{}, &ExecutionError{Name: inv.Name, Err: ErrNoResult}
	}
	return out, nil
}

// offload runs a blocking handler on the pool and waits for its future.
// If the context ends while the handler is still running, the handler is
// left to finish on its worker and the context error is returned.
func (b *Bridge) offload(ctx context.Context, handler registry.HandlerFunc, args map[string]domain.Value) (domain.Value, error) {
	type result struct {
		value domain.Value
		err   error
	}
	done := make(chan result, 1)

	task := func() {
		value, err := handler(ctx, args)
		done <- result{value: value, err: err}
	}

	select {
	case b.tasks <- task:
	case <-ctx.Done():
		return domain.Value{}, ctx.Err()
	}

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return domain.Value{}, ctx.Err()
	}
}

// BindArguments produces the full keyword argument map for a handler: the
// caller-supplied value when present, else the declared default, else a
// MissingArgumentError naming the parameter.
func BindArguments(params []domain.ParameterDescriptor, supplied map[string]domain.Value) (map[string]domain.Value, error) {
	args := make(map[string]domain.Value, len(params))
	for _, p := range params {
		if v, ok := supplied[p.Name]; ok {
			args[p.Name] = v
			continue
		}
		if p.HasDefault {
			args[p.Name] = p.Default
			continue
		}
		return nil, &MissingArgumentError{Param: p.Name}
	}
	return args, nil
}
