package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cateradmin/api/internal/auth"
	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/enum"
	"github.com/cateradmin/api/internal/rank"
	"github.com/google/uuid"
)

// Errors returned by the session service.
var (
	ErrUnknownScheme   = errors.New("unknown scheme")
	ErrSessionNotFound = errors.New("session not found")
	ErrPersistInFlight = errors.New("persist in progress")
)

// Backend lists catalog items and persists their positions.
// Satisfied by *gateway.Client and *store.PositionStore.
type Backend interface {
	List(ctx context.Context, scheme config.Scheme) ([]rank.Item, error)
	Persist(ctx context.Context, scheme config.Scheme, items []rank.Item) error
}

// Notifier fans session events out to connected consoles.
type Notifier interface {
	Publish(sessionID uuid.UUID, eventType string, payload any)
}

type noopNotifier struct{}

func (noopNotifier) Publish(uuid.UUID, string, any) {}

// PartitionSummary describes one partition of a session.
type PartitionSummary struct {
	Key        rank.PartitionKey `json:"key"`
	Attributes rank.Attributes   `json:"attributes"`
	Size       int               `json:"size"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID         uuid.UUID             `json:"id"`
	Scheme     string                `json:"scheme"`
	State      string                `json:"state"`
	Items      int                   `json:"items"`
	Partitions []PartitionSummary    `json:"partitions"`
	Repairs    rank.ValidationErrors `json:"repairs"`
	LastError  string                `json:"last_error,omitempty"`
	OpenedAt   time.Time             `json:"opened_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Session is one operator's editing session over a scheme's catalog.
// State moves LOADED → DIRTY → VALIDATED → PERSISTING → PERSISTED or
// PERSIST_FAILED; a failed persist keeps every edit.
type Session struct {
	id       uuid.UUID
	scheme   config.Scheme
	backend  Backend
	notifier Notifier

	mu        sync.Mutex
	store     *rank.Store
	engine    *rank.Engine
	state     string
	repairs   rank.ValidationErrors
	lastErr   string
	openedAt  time.Time
	updatedAt time.Time
}

func newSession(id uuid.UUID, scheme config.Scheme, backend Backend, notifier Notifier) *Session {
	store := rank.NewStore(scheme.Partitioning())
	now := time.Now()
	return &Session{
		id:        id,
		scheme:    scheme,
		backend:   backend,
		notifier:  notifier,
		store:     store,
		engine:    rank.NewEngine(store),
		state:     enum.SessionStateLoaded,
		openedAt:  now,
		updatedAt: now,
	}
}

// ID returns the session ID.
func (s *Session) ID() uuid.UUID { return s.id }

// Scheme returns the catalog scheme the session edits.
func (s *Session) Scheme() config.Scheme { return s.scheme }

// State returns the current state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// load replaces the working set. Repaired partitions are kept as a report,
// not treated as a failure.
func (s *Session) load(items []rank.Item) error {
	err := s.store.Load(items)
	if verrs, ok := rank.AsValidationErrors(err); ok {
		s.repairs = verrs
		err = nil
	} else {
		s.repairs = nil
	}
	if err != nil {
		return err
	}
	s.state = enum.SessionStateLoaded
	s.lastErr = ""
	s.updatedAt = time.Now()
	return nil
}

// Reload fetches the catalog again and discards unsaved edits.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.state == enum.SessionStatePersisting {
		s.mu.Unlock()
		return ErrPersistInFlight
	}
	s.mu.Unlock()

	items, err := s.backend.List(auth.WithSessionID(ctx, s.id), s.scheme)
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.scheme.Name, err)
	}

	s.mu.Lock()
	if s.state == enum.SessionStatePersisting {
		s.mu.Unlock()
		return ErrPersistInFlight
	}
	err = s.load(items)
	state := s.state
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.scheme.Name, err)
	}

	s.notifier.Publish(s.id, enum.EventSessionState, map[string]string{"state": state})
	return nil
}

// Partition returns the items of the partition selected by attrs, sorted
// by rank. Fields missing from attrs select the unset value.
func (s *Session) Partition(attrs rank.Attributes) (rank.PartitionKey, []rank.Item) {
	key := s.scheme.Partitioning().KeyOf(attrs)
	s.mu.Lock()
	defer s.mu.Unlock()
	return key, s.store.PartitionOf(key)
}

// Items returns the full working set.
func (s *Session) Items() []rank.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AllItems()
}

// Move relocates one item within its partition and returns the partition
// after the move.
func (s *Session) Move(itemID string, position int) ([]rank.Item, error) {
	s.mu.Lock()
	if s.state == enum.SessionStatePersisting {
		s.mu.Unlock()
		return nil, ErrPersistInFlight
	}
	if err := s.engine.Move(itemID, position); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	key, _ := s.store.KeyOf(itemID)
	items := s.store.PartitionOf(key)
	s.markDirty()
	s.mu.Unlock()

	s.notifier.Publish(s.id, enum.EventPositionMoved, map[string]any{
		"item_id":   itemID,
		"partition": key,
		"items":     rankList(items),
	})
	return items, nil
}

// Reorder applies an explicit order to the partition selected by attrs.
func (s *Session) Reorder(attrs rank.Attributes, ids []string) ([]rank.Item, error) {
	key := s.scheme.Partitioning().KeyOf(attrs)

	s.mu.Lock()
	if s.state == enum.SessionStatePersisting {
		s.mu.Unlock()
		return nil, ErrPersistInFlight
	}
	if err := s.engine.Reorder(key, ids); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	items := s.store.PartitionOf(key)
	s.markDirty()
	s.mu.Unlock()

	s.notifier.Publish(s.id, enum.EventPartitionReordered, map[string]any{
		"partition": key,
		"items":     rankList(items),
	})
	return items, nil
}

// Validate checks every partition. On success the session becomes
// VALIDATED; on failure its state is left alone.
func (s *Session) Validate() error {
	s.mu.Lock()
	if s.state == enum.SessionStatePersisting {
		s.mu.Unlock()
		return ErrPersistInFlight
	}
	if err := rank.ValidateAll(s.store.Scheme(), s.store.AllItems()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.setState(enum.SessionStateValidated)
	s.mu.Unlock()

	s.publishState(enum.SessionStateValidated, "")
	return nil
}

// Persist validates the working set and hands all of it to the backend.
// The lock is released while the backend call runs; moves arriving in the
// meantime get ErrPersistInFlight. A failed persist leaves the session in
// PERSIST_FAILED with every edit intact, ready for another attempt.
func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	if s.state == enum.SessionStatePersisting {
		s.mu.Unlock()
		return ErrPersistInFlight
	}
	items := s.store.AllItems()
	if err := rank.ValidateAll(s.store.Scheme(), items); err != nil {
		s.mu.Unlock()
		return err
	}
	s.setState(enum.SessionStateValidated)
	s.setState(enum.SessionStatePersisting)
	s.mu.Unlock()
	s.publishState(enum.SessionStatePersisting, "")

	err := s.backend.Persist(auth.WithSessionID(ctx, s.id), s.scheme, items)

	s.mu.Lock()
	if err != nil {
		s.setState(enum.SessionStatePersistFailed)
		s.lastErr = err.Error()
	} else {
		s.setState(enum.SessionStatePersisted)
		s.lastErr = ""
	}
	state, lastErr := s.state, s.lastErr
	s.mu.Unlock()

	s.publishState(state, lastErr)
	if err != nil {
		return fmt.Errorf("persist %s: %w", s.scheme.Name, err)
	}
	return nil
}

// Snapshot returns a read-only view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	partitioning := s.store.Scheme()
	var summaries []PartitionSummary
	for _, key := range s.store.Partitions() {
		items := s.store.PartitionOf(key)
		summary := PartitionSummary{Key: key, Size: len(items)}
		if len(items) > 0 {
			summary.Attributes = partitioning.Select(items[0].Attributes)
		}
		summaries = append(summaries, summary)
	}

	return Snapshot{
		ID:         s.id,
		Scheme:     s.scheme.Name,
		State:      s.state,
		Items:      s.store.Len(),
		Partitions: summaries,
		Repairs:    s.repairs,
		LastError:  s.lastErr,
		OpenedAt:   s.openedAt,
		UpdatedAt:  s.updatedAt,
	}
}

// markDirty records an edit. Caller holds s.mu.
func (s *Session) markDirty() {
	s.setState(enum.SessionStateDirty)
}

// setState moves to state. Caller holds s.mu.
func (s *Session) setState(state string) {
	s.state = state
	s.updatedAt = time.Now()
}

func (s *Session) publishState(state, lastErr string) {
	payload := map[string]string{"state": state}
	if lastErr != "" {
		payload["error"] = lastErr
	}
	s.notifier.Publish(s.id, enum.EventSessionState, payload)
}

// rankList is the compact {id, position} form sent to consoles.
func rankList(items []rank.Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{"id": it.ID, "position": it.Rank}
	}
	return out
}
