package escalation

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/sakhi-health/notifycore/pkg/notifications"
)

// Body renders the HTML body of the escalation email for n. baseURL, when
// set, turns the action path into an absolute link.
func Body(n notifications.Notification, baseURL string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="escalation priority-`)
		b.WriteString(templ.EscapeString(string(n.Priority)))
		b.WriteString(`"><h2>`)
		b.WriteString(templ.EscapeString(n.Title))
		b.WriteString(`</h2><p>`)
		b.WriteString(templ.EscapeString(n.Message))
		b.WriteString(`</p><p><small>`)
		b.WriteString(templ.EscapeString(n.CreatedAt.Format(time.RFC1123)))
		b.WriteString(`</small></p>`)
		if n.ActionPath != "" {
			b.WriteString(`<p><a href="`)
			b.WriteString(templ.EscapeString(strings.TrimRight(baseURL, "/") + n.ActionPath))
			b.WriteString(`">Open in dashboard</a></p>`)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// render takes a templ.Component and renders it to a string.
func render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
