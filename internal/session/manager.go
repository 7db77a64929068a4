package session

import (
	"encoding/json"
	"sync"
	"time"

	"log/slog"
)

// Observer receives committed transitions. Observers run after the
// state change is visible, so reading the manager's state reentrantly
// from an effect always sees a consistent snapshot.
type Observer interface {
	OnTransition(ev Event, next State)
}

// Manager owns the session state and applies events atomically, one at
// a time, in arrival order.
type Manager struct {
	logger    *slog.Logger
	observers []Observer

	dispatchMu sync.Mutex
	stateMu    sync.RWMutex
	state      State
}

// NewManager starts in the restoring state with the given observers
// already subscribed.
func NewManager(logger *slog.Logger, observers ...Observer) *Manager {
	return &Manager{
		logger:    logger,
		observers: observers,
		state:     Initial(),
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Dispatch applies ev through the pure reducer, commits the new state,
// then notifies observers. No two events interleave mid-transition.
func (m *Manager) Dispatch(ev Event) State {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.stateMu.Lock()
	next := Reduce(m.state, ev)
	m.state = next
	m.stateMu.Unlock()

	for _, observer := range m.observers {
		observer.OnTransition(ev, next)
	}
	return next
}

// Restore inspects the stored credential and replays it into the state
// machine. Invalid or expired credentials are cleared silently and fall
// back to unauthenticated: no error surfaces on first load.
func (m *Manager) Restore(store Store) State {
	raw, err := store.Get()
	if err != nil {
		m.logger.Warn("session restore read failed", "error", err)
		return m.Dispatch(RestoreEmpty{})
	}

	validation := ValidateCredential(raw, time.Now())
	if !validation.Valid {
		if validation.Reason != ReasonMissing {
			m.logger.Info("discarding stored session", "reason", string(validation.Reason))
			if err := store.Remove(); err != nil {
				m.logger.Warn("session clear failed", "error", err)
			}
		}
		return m.Dispatch(RestoreEmpty{})
	}

	var credential Credential
	if err := json.Unmarshal(raw, &credential); err != nil || credential.User == nil {
		if err := store.Remove(); err != nil {
			m.logger.Warn("session clear failed", "error", err)
		}
		return m.Dispatch(RestoreEmpty{})
	}

	return m.Dispatch(RestoreSuccess{User: credential.User})
}
