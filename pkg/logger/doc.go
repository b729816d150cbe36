// Package logger builds *slog.Logger instances for the notification core and
// keeps attribute naming consistent across packages.
//
// New takes functional options (WithEnvironment, WithFormat, WithLevel,
// WithOutput, WithAttr, WithContextValue) and wraps the chosen text or JSON
// handler so attributes carried by the context are appended to every record.
// A context tagged with WithNotificationID always yields notification_id.
//
//	log := logger.New(logger.WithEnvironment("production", "notifyd"))
//	log.WarnContext(ctx, "failed to persist ledger",
//	    logger.Component("ledger"),
//	    logger.Error(err),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
