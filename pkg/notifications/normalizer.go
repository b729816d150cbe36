package notifications

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sakhi-health/notifycore/pkg/changefeed"
)

// DefaultRoutes are the dashboard paths opened when a notification is activated.
var DefaultRoutes = map[Kind]string{
	KindUserRegistered:    "/admin/app-users",
	KindAlertCreated:      "/admin/alerts",
	KindAlertResolved:     "/admin/alerts",
	KindDeliveryAssigned:  "/admin/deliveries",
	KindDeliveryCompleted: "/admin/deliveries",
	KindStockLow:          "/admin/inventory",
}

// Normalizer maps change events to notifications.
// It is safe for concurrent use.
type Normalizer struct {
	routes map[Kind]string
	epoch  string
	seq    atomic.Uint64
	now    func() time.Time
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithRoutes overrides action paths per kind. An empty path removes the deep link.
func WithRoutes(routes map[Kind]string) NormalizerOption {
	return func(n *Normalizer) {
		for k, v := range routes {
			n.routes[k] = v
		}
	}
}

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithEpoch fixes the id epoch. Intended for tests.
func WithEpoch(epoch string) NormalizerOption {
	return func(n *Normalizer) {
		if epoch != "" {
			n.epoch = epoch
		}
	}
}

// NewNormalizer creates a normalizer with the default routes and a fresh id epoch.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		routes: make(map[Kind]string, len(DefaultRoutes)),
		epoch:  strings.SplitN(uuid.NewString(), "-", 2)[0],
		now:    func() time.Time { return time.Now().UTC() },
	}
	for k, v := range DefaultRoutes {
		n.routes[k] = v
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NextID returns "{kind}-{epoch}-{seq}". The sequence is per normalizer, the
// epoch is drawn per normalizer so ids survive reloads without colliding.
func (n *Normalizer) NextID(kind Kind) string {
	return string(kind) + "-" + n.epoch + "-" + strconv.FormatUint(n.seq.Add(1), 10)
}

// Normalize builds exactly one notification for ev. It never fails: missing
// fields fall back to generic labels.
func (n *Normalizer) Normalize(ev changefeed.Event) Notification {
	var notif Notification

	switch e := ev.(type) {
	case changefeed.UserChange:
		notif = n.user(e)
	case changefeed.AlertChange:
		notif = n.alert(e)
	case changefeed.DeliveryChange:
		notif = n.delivery(e)
	case changefeed.InventoryChange:
		notif = n.inventory(e)
	case changefeed.UnknownChange:
		notif = n.system(e.Table(), e.Op())
	case nil:
		notif = n.system("", changefeed.OpInsert)
	default:
		notif = n.system(ev.Table(), ev.Op())
	}

	notif.ID = n.NextID(notif.Kind)
	notif.CreatedAt = n.now()
	notif.ActionPath = n.routes[notif.Kind]
	return notif
}

func (n *Normalizer) user(e changefeed.UserChange) Notification {
	if e.Op() != changefeed.OpInsert {
		return n.system(e.Table(), e.Op())
	}
	return Notification{
		Kind:        KindUserRegistered,
		Title:       "New User Registered",
		Message:     fallback(e.FullName, "A new user") + " has joined the program",
		Priority:    PriorityMedium,
		SubjectID:   e.ID,
		SubjectName: e.FullName,
	}
}

func (n *Normalizer) alert(e changefeed.AlertChange) Notification {
	woman := fallback(e.WomanName, "A patient")
	alertType := fallback(e.Type, "Alert")

	if e.Op() == changefeed.OpUpdate && strings.EqualFold(e.Status, "resolved") {
		return Notification{
			Kind:        KindAlertResolved,
			Title:       "Alert Resolved",
			Message:     woman + ": " + alertType + " resolved",
			Priority:    PriorityLow,
			SubjectID:   e.ID,
			SubjectName: e.WomanName,
		}
	}
	if e.Op() != changefeed.OpInsert {
		return n.system(e.Table(), e.Op())
	}

	priority := severityPriority(e.Severity)
	title := "New Alert"
	if priority == PriorityHigh {
		title = "High Priority Alert!"
	}
	return Notification{
		Kind:        KindAlertCreated,
		Title:       title,
		Message:     woman + ": " + alertType,
		Priority:    priority,
		SubjectID:   e.ID,
		SubjectName: e.WomanName,
	}
}

func (n *Normalizer) delivery(e changefeed.DeliveryChange) Notification {
	woman := fallback(e.WomanName, "a beneficiary")

	if e.Op() == changefeed.OpUpdate && strings.EqualFold(e.Status, "completed") {
		return Notification{
			Kind:        KindDeliveryCompleted,
			Title:       "Delivery Completed",
			Message:     "Delivery completed for " + woman,
			Priority:    PriorityLow,
			SubjectID:   e.ID,
			SubjectName: e.WomanName,
		}
	}
	if e.Op() != changefeed.OpInsert {
		return n.system(e.Table(), e.Op())
	}
	return Notification{
		Kind:        KindDeliveryAssigned,
		Title:       "New Delivery Assigned",
		Message:     "Delivery assigned for " + woman,
		Priority:    PriorityMedium,
		SubjectID:   e.ID,
		SubjectName: e.WomanName,
	}
}

func (n *Normalizer) inventory(e changefeed.InventoryChange) Notification {
	if !e.Low() || e.Op() == changefeed.OpDelete {
		return n.system(e.Table(), e.Op())
	}
	return Notification{
		Kind:        KindStockLow,
		Title:       "Low Stock",
		Message:     fmt.Sprintf("%s is running low (%d left)", fallback(e.ItemName, "An item"), e.Quantity),
		Priority:    PriorityHigh,
		SubjectID:   e.ID,
		SubjectName: e.ItemName,
	}
}

func (n *Normalizer) system(table changefeed.Table, op changefeed.Op) Notification {
	name := "Record"
	if table != "" {
		name = cases.Title(language.English).String(strings.ReplaceAll(string(table), "_", " ")) + " record"
	}
	verb := string(op)
	if verb == "" {
		verb = string(changefeed.OpInsert)
	}
	return Notification{
		Kind:     KindSystemAlert,
		Title:    "System Notification",
		Message:  name + " " + strings.TrimSuffix(verb, "e") + "ed",
		Priority: PriorityMedium,
	}
}

func severityPriority(severity string) Priority {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func fallback(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// LoadRoutes reads a YAML document mapping kinds to action paths:
//
//	alert_created: /asha/alerts
//	stock_low: ""
func LoadRoutes(r io.Reader) (map[Kind]string, error) {
	raw := map[string]string{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding routes: %w", err)
	}

	routes := make(map[Kind]string, len(raw))
	for k, v := range raw {
		kind := Kind(k)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
		}
		routes[kind] = v
	}
	return routes, nil
}
