// Package notifications turns row changes into dashboard notifications.
//
// A Normalizer maps each changefeed.Event to exactly one Notification. The
// Ledger keeps the most recent notifications (50 by default) together with
// an unread counter and persists both through a Storage after every change.
// Service ties the two to a broadcast.Registry:
//
//	store, _ := kvstore.NewSQLite(kvstore.SQLiteConfig{Path: "notifications.db"})
//	svc := notifications.NewService(notifications.NewKVStorage(store, ""))
//	svc.Init(ctx)
//
//	cancel := svc.Subscribe(func(ctx context.Context, n notifications.Notification) error {
//		fmt.Println(n.Title, n.Message)
//		return nil
//	})
//	defer cancel()
//
//	go svc.Run(ctx, source)
//
// Persistence is best effort. Failed reads start an empty ledger and failed
// writes are logged, never returned.
package notifications
