package dispatch_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/umcp/internal/dispatch"
	"github.com/rcarmo/umcp/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestBindArguments(t *testing.T) {
	params := []domain.ParameterDescriptor{
		{Name: "a", Type: domain.TypeFloat},
		{Name: "b", Type: domain.TypeFloat, HasDefault: true, Default: domain.FloatValue(2)},
	}

	tests := []struct {
		name     string
		supplied map[string]domain.Value
		want     map[string]domain.Value
		wantErr  string
	}{
		{
			name:     "supplied wins over default",
			supplied: map[string]domain.Value{"a": domain.FloatValue(1), "b": domain.FloatValue(9)},
			want:     map[string]domain.Value{"a": domain.FloatValue(1), "b": domain.FloatValue(9)},
		},
		{
			name:     "default fills the gap",
			supplied: map[string]domain.Value{"a": domain.FloatValue(1)},
			want:     map[string]domain.Value{"a": domain.FloatValue(1), "b": domain.FloatValue(2)},
		},
		{
			name:     "missing required parameter is named",
			supplied: map[string]domain.Value{"b": domain.FloatValue(9)},
			wantErr:  "required parameter 'a' is missing",
		},
		{
			name:     "extra arguments are ignored",
			supplied: map[string]domain.Value{"a": domain.FloatValue(1), "z": domain.FloatValue(99)},
			want:     map[string]domain.Value{"a": domain.FloatValue(1), "b": domain.FloatValue(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dispatch.BindArguments(params, tt.supplied)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErr)
				var missing *dispatch.MissingArgumentError
				assert.ErrorAs(t, err, &missing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBridge_Invoke_SyncRunsOnPool(t *testing.T) {
	bridge := dispatch.NewBridge(2, testLogger())
	defer bridge.Close()

	out, err := bridge.Invoke(context.Background(), dispatch.Invocation{
		Name: "double",
		Handler: func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			i, _ := args["n"].AsInt()
			return domain.IntValue(i * 2), nil
		},
		Parameters: []domain.ParameterDescriptor{{Name: "n", Type: domain.TypeInt}},
	}, map[string]domain.Value{"n": domain.IntValue(21)})

	require.NoError(t, err)
	i, ok := out.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)
}

func TestBridge_Invoke_AsyncRunsInPlace(t *testing.T) {
	// Pool size zero is clamped to the default, but even a saturated pool
	// must not stall an async handler since it never touches the pool.
	bridge := dispatch.NewBridge(1, testLogger())
	defer bridge.Close()

	out, err := bridge.Invoke(context.Background(), dispatch.Invocation{
		Name:  "greet",
		Async: true,
		Handler: func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			return domain.StringValue("hi"), nil
		},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StringValue("hi"), out)
}

func TestBridge_Invoke_BindingIsAtomic(t *testing.T) {
	bridge := dispatch.NewBridge(1, testLogger())
	defer bridge.Close()

	called := false
	_, err := bridge.Invoke(context.Background(), dispatch.Invocation{
		Name: "strict",
		Handler: func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			called = true
			return domain.NullValue(), nil
		},
		Parameters: []domain.ParameterDescriptor{{Name: "must", Type: domain.TypeString}},
	}, nil)

	require.Error(t, err)
	var missing *dispatch.MissingArgumentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "must", missing.Param)
	assert.False(t, called, "handler must never run when binding fails")
}

func TestBridge_Invoke_HandlerErrorIsWrapped(t *testing.T) {
	bridge := dispatch.NewBridge(1, testLogger())
	defer bridge.Close()

	boom := errors.New("division by zero")
	_, err := bridge.Invoke(context.Background(), dispatch.Invocation{
		Name: "divide",
		Handler: func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			return domain.Value{}, boom
		},
	}, nil)

	require.Error(t, err)
	var exec *dispatch.ExecutionError
	require.ErrorAs(t, err, &exec)
	assert.Equal(t, "divide", exec.Name)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "division by zero", err.Error())
}

func TestBridge_Invoke_NoResult(t *testing.T) {
	bridge := dispatch.NewBridge(1, testLogger())
	defer bridge.Close()

	_, err := bridge.Invoke(context.Background(), dispatch.Invocation{
		Name: "void",
		Handler: func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			// Zero Value without an error: "ran but produced nothing".
			return domain.Value{}, nil
		},
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, dispatch.ErrNoResult)
}

func TestBridge_Invoke_CancelledContext(t *testing.T) {
	bridge := dispatch.NewBridge(1, testLogger())
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Occupy the lone worker so the submit select observes the dead context.
	started := make(chan struct{})
	block := make(chan struct{})
	go bridge.Invoke(context.Background(), dispatch.Invocation{
		Name: "sleeper",
		Handler: func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			close(started)
			<-block
			return domain.NullValue(), nil
		},
	}, nil)
	<-started

	_, err := bridge.Invoke(ctx, dispatch.Invocation{
		Name: "late",
		Handler: func(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
			return domain.NullValue(), nil
		},
	}, nil)
	close(block)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBridge_CloseIsIdempotent(t *testing.T) {
	bridge := dispatch.NewBridge(2, testLogger())
	bridge.Close()
	assert.NotPanics(t, func() { bridge.Close() })
}
