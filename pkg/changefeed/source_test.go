package changefeed_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhi-health/notifycore/pkg/changefeed"
)

func TestMemorySource(t *testing.T) {
	t.Run("delivers watched tables in order", func(t *testing.T) {
		src := changefeed.NewMemorySource(8)
		defer src.Close()

		ctx := context.Background()
		ch, err := src.Stream(ctx, changefeed.TableAlerts)
		require.NoError(t, err)

		require.NoError(t, src.Emit(ctx, changefeed.AlertChange{ID: "1"}))
		require.NoError(t, src.Emit(ctx, changefeed.UserChange{ID: "ignored"}))
		require.NoError(t, src.Emit(ctx, changefeed.AlertChange{ID: "2"}))

		assert.Equal(t, "1", (<-ch).(changefeed.AlertChange).ID)
		assert.Equal(t, "2", (<-ch).(changefeed.AlertChange).ID)
		select {
		case ev := <-ch:
			t.Fatalf("unexpected event %#v", ev)
		default:
		}
	})

	t.Run("requires tables", func(t *testing.T) {
		src := changefeed.NewMemorySource(1)
		_, err := src.Stream(context.Background())
		assert.ErrorIs(t, err, changefeed.ErrNoTables)
	})

	t.Run("context cancel closes stream", func(t *testing.T) {
		src := changefeed.NewMemorySource(1)
		defer src.Close()

		ctx, cancel := context.WithCancel(context.Background())
		ch, err := src.Stream(ctx, changefeed.DefaultTables...)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("stream not closed")
		}
	})

	t.Run("consumer leaving releases a blocked emit", func(t *testing.T) {
		src := changefeed.NewMemorySource(1)
		defer src.Close()

		ctx, cancel := context.WithCancel(context.Background())
		_, err := src.Stream(ctx, changefeed.TableAlerts)
		require.NoError(t, err)
		require.NoError(t, src.Emit(context.Background(), changefeed.AlertChange{ID: "1"}))

		emitted := make(chan error, 1)
		go func() {
			emitted <- src.Emit(context.Background(), changefeed.AlertChange{ID: "2"})
		}()

		select {
		case err := <-emitted:
			t.Fatalf("emit returned before the consumer left: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
		cancel()

		select {
		case err := <-emitted:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("emit still blocked after the consumer left")
		}
		assert.NoError(t, src.Emit(context.Background(), changefeed.AlertChange{ID: "3"}))
	})

	t.Run("close releases a blocked emit", func(t *testing.T) {
		src := changefeed.NewMemorySource(1)
		_, err := src.Stream(context.Background(), changefeed.TableAlerts)
		require.NoError(t, err)
		require.NoError(t, src.Emit(context.Background(), changefeed.AlertChange{ID: "1"}))

		emitted := make(chan error, 1)
		go func() {
			emitted <- src.Emit(context.Background(), changefeed.AlertChange{ID: "2"})
		}()
		time.Sleep(20 * time.Millisecond)

		closed := make(chan struct{})
		go func() {
			_ = src.Close()
			close(closed)
		}()

		select {
		case <-closed:
		case <-time.After(time.Second):
			t.Fatal("close blocked behind emit")
		}
		select {
		case err := <-emitted:
			if err != nil {
				assert.ErrorIs(t, err, changefeed.ErrSourceClosed)
			}
		case <-time.After(time.Second):
			t.Fatal("emit still blocked after close")
		}
	})

	t.Run("close stops context watchers", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		before := runtime.NumGoroutine()
		src := changefeed.NewMemorySource(1)
		for range 20 {
			_, err := src.Stream(ctx, changefeed.TableUsers)
			require.NoError(t, err)
		}
		require.NoError(t, src.Close())

		assert.Eventually(t, func() bool {
			return runtime.NumGoroutine() <= before
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("close", func(t *testing.T) {
		src := changefeed.NewMemorySource(1)
		ch, err := src.Stream(context.Background(), changefeed.TableUsers)
		require.NoError(t, err)

		require.NoError(t, src.Close())
		_, ok := <-ch
		assert.False(t, ok)

		assert.ErrorIs(t, src.Emit(context.Background(), changefeed.UserChange{}), changefeed.ErrSourceClosed)
		_, err = src.Stream(context.Background(), changefeed.TableUsers)
		assert.ErrorIs(t, err, changefeed.ErrSourceClosed)
	})
}
