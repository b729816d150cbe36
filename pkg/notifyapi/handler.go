package notifyapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/sakhi-health/notifycore/pkg/broadcast"
	"github.com/sakhi-health/notifycore/pkg/logger"
	"github.com/sakhi-health/notifycore/pkg/notifications"
)

// Service is the part of notifications.Service the API uses.
type Service interface {
	LoadAll() []notifications.Notification
	UnreadCount() int
	Get(id string) (notifications.Notification, bool)
	MarkAsRead(ctx context.Context, id string) bool
	MarkAllAsRead(ctx context.Context)
	Delete(ctx context.Context, id string) bool
	ClearAll(ctx context.Context)
	Activate(ctx context.Context, id string) (string, bool)
	SubscribeChan(ctx context.Context, buffer int) (<-chan notifications.Notification, broadcast.CancelFunc)
}

type handler struct {
	svc          Service
	logger       *slog.Logger
	streamBuffer int
	checks       []func(context.Context) error
}

// Option configures the router.
type Option func(*handler)

// WithLogger sets the logger used for request and stream logs.
func WithLogger(l *slog.Logger) Option {
	return func(h *handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithStreamBuffer sets how many notifications an SSE client may lag behind
// before further ones are dropped for it.
func WithStreamBuffer(n int) Option {
	return func(h *handler) {
		if n > 0 {
			h.streamBuffer = n
		}
	}
}

// WithReadinessChecks adds probes run by /readyz.
func WithReadinessChecks(checks ...func(context.Context) error) Option {
	return func(h *handler) { h.checks = append(h.checks, checks...) }
}

// NewRouter returns the HTTP API over svc.
func NewRouter(svc Service, opts ...Option) http.Handler {
	h := &handler{svc: svc, logger: slog.Default(), streamBuffer: 16}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", HealthCheckHandler(h.logger))
	r.Get("/readyz", HealthCheckHandler(h.logger, append([]func(context.Context) error{alwaysReady}, h.checks...)...))

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.list)
		r.Delete("/", h.clearAll)
		r.Get("/unread-count", h.unreadCount)
		r.Post("/read-all", h.markAllRead)
		r.Get("/stream", h.stream)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Delete("/", h.delete)
			r.Post("/read", h.markRead)
			r.Post("/open", h.open)
		})
	})
	return r
}

func alwaysReady(context.Context) error { return nil }

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Data: h.svc.LoadAll(),
		Meta: map[string]any{"unread_count": h.svc.UnreadCount()},
	})
}

func (h *handler) unreadCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Data: map[string]int{"unread_count": h.svc.UnreadCount()}})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	n, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: n})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		notFound(w)
		return
	}
	changed := h.svc.MarkAsRead(r.Context(), id)
	writeJSON(w, http.StatusOK, Response{Data: map[string]any{
		"changed":      changed,
		"unread_count": h.svc.UnreadCount(),
	}})
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	h.svc.MarkAllAsRead(r.Context())
	writeJSON(w, http.StatusOK, Response{Data: map[string]int{"unread_count": h.svc.UnreadCount()}})
}

// open marks the notification read and sends the client to its action path:
// a 303 when ?redirect=true, JSON otherwise.
func (h *handler) open(w http.ResponseWriter, r *http.Request) {
	path, ok := h.svc.Activate(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		notFound(w)
		return
	}
	if r.URL.Query().Get("redirect") == "true" {
		if path == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, path, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: map[string]string{"action_path": path}})
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Delete(r.Context(), chi.URLParam(r, "id")) {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearAll(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// stream pushes a toast and the unread counter for every new notification
// until the client goes away.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ch, cancel := h.svc.SubscribeChan(ctx, h.streamBuffer)
	defer cancel()

	sse := datastar.NewSSE(w, r)
	if err := h.patchUnreadCount(sse); err != nil {
		h.logger.DebugContext(ctx, "sse client gone", logger.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			err := sse.PatchElementTempl(Toast(n),
				datastar.WithSelector(ToastsSelector),
				datastar.WithMode(datastar.ElementPatchModePrepend),
			)
			if err == nil {
				err = h.patchUnreadCount(sse)
			}
			if err != nil {
				h.logger.DebugContext(ctx, "sse client gone",
					logger.NotificationID(n.ID),
					logger.Error(err),
				)
				return
			}
		}
	}
}

func (h *handler) patchUnreadCount(sse *datastar.ServerSentEventGenerator) error {
	data, err := json.Marshal(map[string]int{"unreadCount": h.svc.UnreadCount()})
	if err != nil {
		return err
	}
	return sse.PatchSignals(data)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.LogAttrs(r.Context(), slog.LevelDebug, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			logger.Duration(time.Since(start)),
		)
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not_found", "notification not found")
}
