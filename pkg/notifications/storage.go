package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/sakhi-health/notifycore/pkg/kvstore"
)

// State is the persisted form of the ledger.
type State struct {
	Unread int
	Log    []Notification
}

// Storage persists ledger state. One Save call is one persistence write.
type Storage interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
}

const (
	unreadCountKey = "notifications.unread_count"
	logKey         = "notifications.log"
)

// KVStorage stores the ledger under two keys of a kvstore.Store: the unread
// counter as a decimal string and the log as a JSON array.
type KVStorage struct {
	store    kvstore.Store
	countKey string
	logKey   string
}

// NewKVStorage creates a KVStorage. The prefix is prepended to both keys.
func NewKVStorage(store kvstore.Store, prefix string) *KVStorage {
	return &KVStorage{
		store:    store,
		countKey: prefix + unreadCountKey,
		logKey:   prefix + logKey,
	}
}

// Load returns an empty state when nothing was saved yet. A missing or
// unparsable counter reads as zero; an unparsable log is ErrCorruptState.
func (s *KVStorage) Load(ctx context.Context) (State, error) {
	var st State

	rawLog, err := s.store.Get(ctx, s.logKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		return State{}, err
	default:
		if err := json.Unmarshal([]byte(rawLog), &st.Log); err != nil {
			return State{}, errors.Join(ErrCorruptState, err)
		}
	}

	rawCount, err := s.store.Get(ctx, s.countKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		return State{}, err
	default:
		if n, err := strconv.Atoi(strings.TrimSpace(rawCount)); err == nil && n >= 0 {
			st.Unread = n
		}
	}

	return st, nil
}

// Save writes both keys in a single batch.
func (s *KVStorage) Save(ctx context.Context, st State) error {
	log := st.Log
	if log == nil {
		log = []Notification{}
	}
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}
	return s.store.SetMany(ctx, map[string]string{
		s.countKey: strconv.Itoa(st.Unread),
		s.logKey:   string(data),
	})
}
