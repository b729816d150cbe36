// Package broadcast provides a type-safe, synchronous fan-out registry.
//
// Registry delivers each published message to every registered handler on
// the publisher's goroutine, in registration order. A failing or panicking
// handler is logged and skipped; the remaining handlers still run.
//
//	reg := broadcast.NewRegistry[string]()
//	cancel := reg.Subscribe(func(ctx context.Context, msg string) error {
//		fmt.Println(msg)
//		return nil
//	})
//	defer cancel()
//
//	reg.Publish(ctx, "hello")
//
// Long-lived consumers that cannot keep up with the publisher use
// SubscribeChan, which buffers messages and drops them when the buffer is full.
package broadcast
