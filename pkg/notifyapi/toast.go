package notifyapi

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/sakhi-health/notifycore/pkg/notifications"
)

// ToastsSelector is the element new toasts are prepended to.
const ToastsSelector = "#toasts"

// Toast renders the popup shown when a notification arrives.
func Toast(n notifications.Notification) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div id="toast-`)
		b.WriteString(templ.EscapeString(n.ID))
		b.WriteString(`" class="toast toast-`)
		b.WriteString(templ.EscapeString(string(n.Priority)))
		b.WriteString(`" role="status"><strong>`)
		b.WriteString(templ.EscapeString(n.Title))
		b.WriteString(`</strong><p>`)
		b.WriteString(templ.EscapeString(n.Message))
		b.WriteString(`</p>`)
		if n.ActionPath != "" {
			b.WriteString(`<a href="/notifications/`)
			b.WriteString(templ.EscapeString(url.PathEscape(n.ID)))
			b.WriteString(`/open?redirect=true">View</a>`)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
