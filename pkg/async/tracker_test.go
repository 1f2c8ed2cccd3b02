package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formflow/pkg/async"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun_RecordsOutcome(t *testing.T) {
	tr := async.NewTracker()
	defer tr.Close()

	assert.Equal(t, async.StatusIdle, tr.State("users").Status)

	v, err := tr.Run(context.Background(), "users", func(context.Context) (any, error) {
		return []any{"ada"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"ada"}, v)
	assert.Equal(t, async.State{Status: async.StatusSuccess, Value: []any{"ada"}}, tr.State("users"))

	_, err = tr.Run(context.Background(), "users", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	assert.Equal(t, async.State{Status: async.StatusError, Error: "boom"}, tr.State("users"))
}

func TestGo_NewerOperationCancelsStale(t *testing.T) {
	tr := async.NewTracker()
	defer tr.Close()

	started := make(chan struct{})
	staleErr := make(chan error, 1)
	require.NoError(t, tr.Go(context.Background(), "users", func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		staleErr <- ctx.Err()
		return "stale", nil
	}))
	<-started
	assert.Equal(t, async.StatusLoading, tr.State("users").Status)

	v, err := tr.Run(context.Background(), "users", func(context.Context) (any, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	select {
	case err := <-staleErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("stale operation was not cancelled")
	}
	tr.Close()
	assert.Equal(t, async.State{Status: async.StatusSuccess, Value: "fresh"}, tr.State("users"))
}

func TestClose_CancelsInFlight(t *testing.T) {
	tr := async.NewTracker()
	started := make(chan struct{})
	require.NoError(t, tr.Go(context.Background(), "slow", func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	<-started
	tr.Close()

	_, err := tr.Run(context.Background(), "slow", func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, async.ErrClosed)
	assert.ErrorIs(t, tr.Go(context.Background(), "x", nil), async.ErrClosed)
}

func TestCancel_ReturnsToIdle(t *testing.T) {
	tr := async.NewTracker()
	defer tr.Close()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := tr.Run(context.Background(), "k", func(ctx context.Context) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		done <- err
	}()
	<-started
	tr.Cancel("k")
	assert.ErrorIs(t, <-done, async.ErrSuperseded)
	assert.Equal(t, async.StatusIdle, tr.State("k").Status)

	tr.Set("k", async.State{Status: async.StatusSuccess, Value: 1})
	assert.Equal(t, map[string]async.State{"k": {Status: async.StatusSuccess, Value: 1}}, tr.Snapshot())
}
