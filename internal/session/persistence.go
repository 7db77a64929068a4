package session

import (
	"encoding/json"
	"time"

	"log/slog"

	"tasknest/internal/auth"
)

// defaultCredentialTTL bounds how long a persisted credential is honored
// when the sign-in event carries no explicit expiry.
const defaultCredentialTTL = 12 * time.Hour

// Credential is the serialized session written to the Store. expiresAt
// is epoch milliseconds.
type Credential struct {
	User        *auth.User `json:"user"`
	ExpiresAt   int64      `json:"expiresAt"`
	AccessToken string     `json:"accessToken,omitempty"`
	IsNewUser   bool       `json:"isNewUser,omitempty"`
}

// Persistor mirrors terminal session transitions into a Store. Sign-in
// success persists the credential; logout and expiry clear it. Storage
// is best-effort: write failures are logged and swallowed, never allowed
// to fail the authentication flow.
type Persistor struct {
	store  Store
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewPersistor wires a persistence observer over store.
func NewPersistor(store Store, logger *slog.Logger) *Persistor {
	return &Persistor{
		store:  store,
		logger: logger,
		ttl:    defaultCredentialTTL,
		now:    time.Now,
	}
}

// OnTransition implements Observer. It runs after the state transition
// has committed.
func (p *Persistor) OnTransition(ev Event, _ State) {
	switch e := ev.(type) {
	case SignInSuccess:
		expiresAt := e.ExpiresAt
		if expiresAt.IsZero() {
			expiresAt = p.now().Add(p.ttl)
		}
		credential := Credential{
			User:        e.User,
			ExpiresAt:   expiresAt.UnixMilli(),
			AccessToken: e.AccessToken,
			IsNewUser:   e.IsNewUser,
		}
		data, err := json.Marshal(credential)
		if err == nil {
			err = p.store.Set(data)
		}
		if err != nil {
			p.logger.Warn("session persist failed", "error", err)
		}

	case Logout, TokenExpired:
		if err := p.store.Remove(); err != nil {
			p.logger.Warn("session clear failed", "error", err)
		}
	}
}

// Load reads the stored credential, returning nil on any read or parse
// failure so a malformed blob never crashes the boot sequence.
func (p *Persistor) Load() *Credential {
	raw, err := p.store.Get()
	if err != nil || len(raw) == 0 {
		return nil
	}
	var credential Credential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return nil
	}
	return &credential
}
