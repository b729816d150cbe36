// Package escalation emails urgent notifications to an on-call address.
//
// An Escalator subscribes to a notifications.Service. Its Handle method only
// queues, the Run loop renders a templ body and hands it to an EmailSender:
//
//	esc, err := escalation.New(escalation.NewLogSender(log), cfg)
//	cancel := svc.Subscribe(esc.Handle)
//	go esc.Run(ctx)
//
// PostmarkSender sends through Postmark; LogSender only logs.
package escalation
