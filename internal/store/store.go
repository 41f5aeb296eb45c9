// Package store holds the single application state tree. All writes go
// through Dispatch, which runs middleware, applies the reducer, validates the
// result and notifies subscribers.
package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/idgen"
)

// DefaultVersion is the app version stamped into a fresh state
const DefaultVersion = "2.0.0"

// Subscriber is called with the state after every dispatch
type Subscriber func(State)

// Store defines the central state operations
type Store interface {
	// Dispatch applies an action. Returns errors.FailedPrecondition when the
	// resulting state is structurally invalid; the live state is then left
	// untouched.
	Dispatch(a Action) error

	GetState() State
	Bucket(t codex.DataType) Bucket
	Items(t codex.DataType) []codex.Record
	Filters() codex.Filters
	CurrentView() string

	// Subscribe registers fn and returns a function that removes it
	Subscribe(fn Subscriber) (unsubscribe func())
	SubscriberCount() int

	Use(mw Middleware)

	// GetHistory returns committed transitions oldest first
	GetHistory() []HistoryEntry

	// Reset restores the initial state and clears history
	Reset()
}

// Config holds the dependencies for the store
type Config struct {
	Clock       clock.Clock
	IDGenerator idgen.Generator
	HistorySize int
	Version     string
}

// Validate sets defaults for the optional fields
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.HistorySize < 0 {
		vb.Field("HistorySize", "cannot be negative")
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.IDGenerator == nil {
		c.IDGenerator = idgen.NewUUID("tx")
	}
	if c.HistorySize == 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	return nil
}

type subscription struct {
	id uint64
	fn Subscriber
}

type store struct {
	clock   clock.Clock
	ids     idgen.Generator
	version string

	// mu serializes commits and guards every field below
	mu          sync.Mutex
	state       State
	history     *history
	middleware  []Middleware
	subscribers []subscription
	nextSubID   uint64

	// pending holds states awaiting notification, drained FIFO by a single
	// dispatcher at a time
	pending  []State
	draining bool
}

// New creates a store holding the initial state
func New(cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &store{
		clock:   cfg.Clock,
		ids:     cfg.IDGenerator,
		version: cfg.Version,
		state:   InitialState(cfg.Version),
		history: newHistory(cfg.HistorySize),
	}, nil
}

func (s *store) Dispatch(a Action) error {
	c := s.commit(a)
	if c.dropped {
		slog.Warn("dispatch dropped a nil action")
		return nil
	}

	s.drain()
	if c.err != nil {
		name := actionName(c.action)
		slog.Error("state update rejected",
			"action", name,
			"error", c.err)
		return errors.WrapWithCode(c.err, errors.CodeFailedPrecondition, "state update rejected").
			WithMeta("action", name)
	}
	return nil
}

// commitResult is the outcome of one commit under the store lock
type commitResult struct {
	action  Action
	dropped bool
	err     error
}

// commit runs middleware, the reducer and validation while holding the lock.
// A panic in any of them rejects the action and leaves the state untouched.
func (s *store) commit(a Action) (c commitResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state
	c.action = a
	defer func() {
		if r := recover(); r != nil {
			s.state = current
			s.pending = append(s.pending, current)
			c.err = errors.Internalf("dispatch panicked: %v", r)
		}
	}()

	for _, mw := range s.middleware {
		c.action = mw(c.action, current)
	}
	if c.action == nil {
		c.dropped = true
		return c
	}

	now := s.clock.Now()
	next := Reduce(current, c.action, now)
	if err := Validate(next); err != nil {
		s.pending = append(s.pending, current)
		c.err = err
		return c
	}

	entry := HistoryEntry{
		ID:        s.ids.Generate(),
		Timestamp: now,
		Action:    c.action,
		Previous:  current,
		Next:      next,
	}
	s.history.push(entry)
	s.state = next
	s.pending = append(s.pending, next)
	return c
}

func actionName(a Action) string {
	if a == nil {
		return "<nil>"
	}
	return a.Name()
}

// drain delivers pending states to subscribers. A dispatch made while another
// goroutine or an outer frame is draining only enqueues; the active drainer
// delivers it after the states queued before it.
func (s *store) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for len(s.pending) > 0 {
		st := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]subscription, len(s.subscribers))
		copy(subs, s.subscribers)
		s.mu.Unlock()

		for _, sub := range subs {
			notify(sub, st)
		}

		s.mu.Lock()
	}

	s.pending = nil
	s.draining = false
	s.mu.Unlock()
}

func notify(sub subscription, st State) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("subscriber panicked",
				"subscriber", sub.id,
				"panic", fmt.Sprint(r))
		}
	}()
	sub.fn(st)
}

func (s *store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *store) Bucket(t codex.DataType) Bucket {
	return s.GetState().Bucket(t)
}

func (s *store) Items(t codex.DataType) []codex.Record {
	return s.Bucket(t).Items
}

func (s *store) Filters() codex.Filters {
	return s.GetState().UI.Filters.Clone()
}

func (s *store) CurrentView() string {
	return s.GetState().UI.CurrentView
}

func (s *store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *store) Use(mw Middleware) {
	if mw == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middleware = append(s.middleware, mw)
}

func (s *store) GetHistory() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.list()
}

func (s *store) Reset() {
	s.mu.Lock()
	s.state = InitialState(s.version)
	s.history.reset()
	s.pending = append(s.pending, s.state)
	s.mu.Unlock()

	s.drain()
}
