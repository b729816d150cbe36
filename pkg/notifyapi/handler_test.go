package notifyapi_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhi-health/notifycore/pkg/changefeed"
	"github.com/sakhi-health/notifycore/pkg/kvstore"
	"github.com/sakhi-health/notifycore/pkg/logger"
	"github.com/sakhi-health/notifycore/pkg/notifications"
	"github.com/sakhi-health/notifycore/pkg/notifyapi"
)

var radhaAlert = changefeed.AlertChange{
	Operation: changefeed.OpInsert,
	WomanName: "Radha Devi",
	Type:      "Bleeding",
	Severity:  "high",
}

func newService(t *testing.T) *notifications.Service {
	t.Helper()
	svc := notifications.NewService(
		notifications.NewKVStorage(kvstore.NewMemory(), ""),
		notifications.WithLogger(logger.Discard()),
	)
	svc.Init(context.Background())
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Data
}

func TestRouter_ReadAPI(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))

	first := svc.Handle(ctx, radhaAlert)
	svc.Handle(ctx, changefeed.UserChange{Operation: changefeed.OpInsert, FullName: "Sunita"})

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/notifications")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

		log := decode[[]notifications.Notification](t, rec)
		require.Len(t, log, 2)
		assert.Equal(t, notifications.KindUserRegistered, log[0].Kind)
		assert.Equal(t, first.ID, log[1].ID)
	})

	t.Run("unread count", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/notifications/unread-count")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]int{"unread_count": 2}, decode[map[string]int](t, rec))
	})

	t.Run("get", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/notifications/"+first.ID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Radha Devi: Bleeding", decode[notifications.Notification](t, rec).Message)

		rec = do(t, h, http.MethodGet, "/notifications/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRouter_Mutations(t *testing.T) {
	ctx := context.Background()

	t.Run("mark read", func(t *testing.T) {
		svc := newService(t)
		h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))
		n := svc.Handle(ctx, radhaAlert)

		rec := do(t, h, http.MethodPost, "/notifications/"+n.ID+"/read")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, true, body["changed"])
		assert.Equal(t, float64(0), body["unread_count"])

		rec = do(t, h, http.MethodPost, "/notifications/"+n.ID+"/read")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decode[map[string]any](t, rec)["changed"])

		rec = do(t, h, http.MethodPost, "/notifications/missing/read")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("read all", func(t *testing.T) {
		svc := newService(t)
		h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))
		svc.Handle(ctx, radhaAlert)
		svc.Handle(ctx, radhaAlert)

		rec := do(t, h, http.MethodPost, "/notifications/read-all")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, svc.UnreadCount())
	})

	t.Run("open returns the action path", func(t *testing.T) {
		svc := newService(t)
		h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))
		n := svc.Handle(ctx, radhaAlert)

		rec := do(t, h, http.MethodPost, "/notifications/"+n.ID+"/open")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]string{"action_path": "/admin/alerts"}, decode[map[string]string](t, rec))
		assert.Zero(t, svc.UnreadCount())
	})

	t.Run("open redirects", func(t *testing.T) {
		svc := newService(t)
		h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))
		n := svc.Handle(ctx, radhaAlert)
		system := svc.Handle(ctx, changefeed.UnknownChange{TableName: "visits", Operation: changefeed.OpInsert})

		rec := do(t, h, http.MethodPost, "/notifications/"+n.ID+"/open?redirect=true")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin/alerts", rec.Header().Get("Location"))

		rec = do(t, h, http.MethodPost, "/notifications/"+system.ID+"/open?redirect=true")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, h, http.MethodPost, "/notifications/missing/open")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		svc := newService(t)
		h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))
		n := svc.Handle(ctx, radhaAlert)

		rec := do(t, h, http.MethodDelete, "/notifications/"+n.ID)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, svc.LoadAll())

		rec = do(t, h, http.MethodDelete, "/notifications/"+n.ID)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("clear all", func(t *testing.T) {
		svc := newService(t)
		h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))
		svc.Handle(ctx, radhaAlert)

		rec := do(t, h, http.MethodDelete, "/notifications")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, svc.LoadAll())
		assert.Zero(t, svc.UnreadCount())
	})
}

func TestRouter_Health(t *testing.T) {
	svc := newService(t)

	t.Run("liveness", func(t *testing.T) {
		h := notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard()))
		rec := do(t, h, http.MethodGet, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		h := notifyapi.NewRouter(svc,
			notifyapi.WithLogger(logger.Discard()),
			notifyapi.WithReadinessChecks(func(context.Context) error { return nil }, nil),
		)
		rec := do(t, h, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READY", rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		h := notifyapi.NewRouter(svc,
			notifyapi.WithLogger(logger.Discard()),
			notifyapi.WithReadinessChecks(func(context.Context) error { return errors.New("redis down") }),
		)
		rec := do(t, h, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
	})
}

func TestRouter_Stream(t *testing.T) {
	svc := newService(t)
	srv := httptest.NewServer(notifyapi.NewRouter(svc, notifyapi.WithLogger(logger.Discard())))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	readUntil := func(substr string) string {
		t.Helper()
		var seen strings.Builder
		for lines.Scan() {
			seen.WriteString(lines.Text())
			seen.WriteString("\n")
			if strings.Contains(lines.Text(), substr) {
				return seen.String()
			}
		}
		t.Fatalf("stream ended before %q; got:\n%s", substr, seen.String())
		return ""
	}

	initial := readUntil(`"unreadCount":0`)
	assert.Contains(t, initial, "datastar-patch-signals")

	svc.Handle(context.Background(), radhaAlert)

	toast := readUntil("Radha Devi: Bleeding")
	toast += readUntil(`"unreadCount":1`)
	assert.Contains(t, toast, "datastar-patch-elements")
	assert.Contains(t, toast, notifyapi.ToastsSelector)
	assert.Contains(t, toast, "prepend")
	assert.Contains(t, toast, "High Priority Alert!")
}

func TestToast(t *testing.T) {
	n := notifications.Notification{
		ID:         "alert_created-e1-1",
		Title:      "High Priority Alert!",
		Message:    "<b>Radha</b>",
		Priority:   notifications.PriorityHigh,
		ActionPath: "/admin/alerts",
	}

	var sb strings.Builder
	require.NoError(t, notifyapi.Toast(n).Render(context.Background(), &sb))

	html := sb.String()
	assert.Contains(t, html, `id="toast-alert_created-e1-1"`)
	assert.Contains(t, html, "toast-high")
	assert.Contains(t, html, "&lt;b&gt;Radha&lt;/b&gt;")
	assert.Contains(t, html, `/notifications/alert_created-e1-1/open?redirect=true`)

	n.ActionPath = ""
	sb.Reset()
	require.NoError(t, notifyapi.Toast(n).Render(context.Background(), &sb))
	assert.NotContains(t, sb.String(), "<a ")
}
