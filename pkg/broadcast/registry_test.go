package broadcast_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhi-health/notifycore/pkg/broadcast"
	"github.com/sakhi-health/notifycore/pkg/logger"
)

func newRegistry[T any]() *broadcast.Registry[T] {
	return broadcast.NewRegistry[T](broadcast.WithLogger(logger.Discard()))
}

func TestRegistry_Publish(t *testing.T) {
	t.Run("delivers to every subscriber exactly once", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		got := make([][]string, 3)
		for i := range got {
			reg.Subscribe(func(_ context.Context, msg string) error {
				got[i] = append(got[i], msg)
				return nil
			})
		}

		delivered := reg.Publish(context.Background(), "n1")
		assert.Equal(t, 3, delivered)
		for i := range got {
			assert.Equal(t, []string{"n1"}, got[i], "subscriber %d", i)
		}
	})

	t.Run("registration order", func(t *testing.T) {
		reg := newRegistry[int]()
		defer reg.Close()

		var order []int
		for i := range 5 {
			reg.Subscribe(func(_ context.Context, _ int) error {
				order = append(order, i)
				return nil
			})
		}

		reg.Publish(context.Background(), 1)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("failing subscriber does not stop delivery", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		var second, third int
		reg.Subscribe(func(context.Context, string) error { return errors.New("boom") })
		reg.Subscribe(func(context.Context, string) error { second++; return nil })
		reg.Subscribe(func(context.Context, string) error { third++; return nil })

		assert.Equal(t, 2, reg.Publish(context.Background(), "n"))
		assert.Equal(t, 1, second)
		assert.Equal(t, 1, third)
	})

	t.Run("panicking subscriber is isolated", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		var after int
		reg.Subscribe(func(context.Context, string) error { panic("render crashed") })
		reg.Subscribe(func(context.Context, string) error { after++; return nil })

		assert.NotPanics(t, func() {
			reg.Publish(context.Background(), "n")
		})
		assert.Equal(t, 1, after)
	})

	t.Run("publish after close is a no-op", func(t *testing.T) {
		reg := newRegistry[string]()
		var calls int
		reg.Subscribe(func(context.Context, string) error { calls++; return nil })

		require.NoError(t, reg.Close())
		require.NoError(t, reg.Close())

		assert.Equal(t, 0, reg.Publish(context.Background(), "n"))
		assert.Equal(t, 0, calls)
		assert.Equal(t, 0, reg.Len())
	})
}

func TestRegistry_Cancel(t *testing.T) {
	t.Run("removes only its own subscription", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		var a, b int
		cancelA := reg.Subscribe(func(context.Context, string) error { a++; return nil })
		reg.Subscribe(func(context.Context, string) error { b++; return nil })

		cancelA()
		cancelA()

		reg.Publish(context.Background(), "n")
		assert.Equal(t, 0, a)
		assert.Equal(t, 1, b)
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("same function registered twice is cancelled by handle", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		var calls int
		fn := func(context.Context, string) error { calls++; return nil }
		first := reg.Subscribe(fn)
		reg.Subscribe(fn)

		first()
		reg.Publish(context.Background(), "n")
		assert.Equal(t, 1, calls)
	})

	t.Run("cancel and subscribe from inside a handler", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		var late int
		var cancelSelf broadcast.CancelFunc
		cancelSelf = reg.Subscribe(func(context.Context, string) error {
			cancelSelf()
			reg.Subscribe(func(context.Context, string) error { late++; return nil })
			return nil
		})

		done := make(chan struct{})
		go func() {
			reg.Publish(context.Background(), "first")
			reg.Publish(context.Background(), "second")
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish deadlocked")
		}
		assert.Equal(t, 1, late)
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("subscribe after close returns no-op handle", func(t *testing.T) {
		reg := newRegistry[string]()
		require.NoError(t, reg.Close())

		cancel := reg.Subscribe(func(context.Context, string) error { return nil })
		assert.NotPanics(t, func() { cancel() })
		assert.Equal(t, 0, reg.Len())
	})
}

func TestRegistry_ConcurrentPublishesDoNotInterleave(t *testing.T) {
	reg := newRegistry[int]()
	defer reg.Close()

	var mu sync.Mutex
	var trace []int
	for range 3 {
		reg.Subscribe(func(_ context.Context, msg int) error {
			mu.Lock()
			trace = append(trace, msg)
			mu.Unlock()
			return nil
		})
	}

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Publish(context.Background(), i)
		}()
	}
	wg.Wait()

	require.Len(t, trace, 60)
	for i := 0; i < len(trace); i += 3 {
		assert.Equal(t, trace[i], trace[i+1])
		assert.Equal(t, trace[i], trace[i+2])
	}
}

func TestRegistry_SubscribeChan(t *testing.T) {
	t.Run("forwards messages", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		ch, cancel := reg.SubscribeChan(context.Background(), 4)
		defer cancel()

		reg.Publish(context.Background(), "a")
		reg.Publish(context.Background(), "b")

		assert.Equal(t, "a", <-ch)
		assert.Equal(t, "b", <-ch)
	})

	t.Run("drops when buffer is full", func(t *testing.T) {
		reg := newRegistry[int]()
		defer reg.Close()

		ch, cancel := reg.SubscribeChan(context.Background(), 1)
		defer cancel()

		assert.Equal(t, 1, reg.Publish(context.Background(), 1))
		assert.Equal(t, 0, reg.Publish(context.Background(), 2))
		assert.Equal(t, 1, <-ch)
	})

	t.Run("context cancellation closes channel", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		ctx, cancel := context.WithCancel(context.Background())
		ch, _ := reg.SubscribeChan(ctx, 1)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel not closed")
		}
		assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("cancel stops the context watcher", func(t *testing.T) {
		reg := newRegistry[string]()
		defer reg.Close()

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		before := runtime.NumGoroutine()
		for range 20 {
			_, cancel := reg.SubscribeChan(ctx, 1)
			cancel()
		}

		assert.Eventually(t, func() bool {
			return runtime.NumGoroutine() <= before
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("registry close closes channel", func(t *testing.T) {
		reg := newRegistry[string]()
		ch, _ := reg.SubscribeChan(context.Background(), 1)

		require.NoError(t, reg.Close())
		_, ok := <-ch
		assert.False(t, ok)
	})
}
