// Package notifyapi exposes a notifications.Service over HTTP.
//
// JSON endpoints read the log and the unread counter and mutate read state.
// GET /notifications/stream is a datastar SSE stream: every new notification
// prepends a Toast into #toasts and patches the unreadCount signal.
//
//	srv := notifyapi.NewServer(cfg, log)
//	err := srv.Run(ctx, notifyapi.NewRouter(svc, notifyapi.WithLogger(log)))
package notifyapi
