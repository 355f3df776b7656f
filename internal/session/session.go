package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vibeweb/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CredentialKey is the fixed name under which the bearer token is stored.
const CredentialKey = "accessToken"

const (
	flashKey  = "flash"
	issuedKey = "issued"
)

// ErrUnknownSession is returned by Load for an id this server never issued or
// whose state has expired.
var ErrUnknownSession = errors.New("session: unknown id")

// Session is the per-request view of a browser session. It is built once per
// request and handed to controllers; nothing reads the store behind their back.
type Session struct {
	ID    string
	Token string
}

// LoggedIn reports whether a credential is present.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot notification rendered on the next page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Manager reads and writes session state in a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a Manager. ttl bounds how long credentials and flashes live.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// NewID returns a fresh opaque browser session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func key(sid, name string) string {
	return "session:" + sid + ":" + name
}

// Issue mints a new session id and records it as issued. The id is returned
// even when the store write fails so the caller can degrade to an anonymous
// session.
func (m *Manager) Issue(ctx context.Context) (string, error) {
	sid := NewID()
	if err := m.store.Set(ctx, key(sid, issuedKey), m.now().UTC().Format(time.RFC3339), m.ttl); err != nil {
		return sid, fmt.Errorf("issue session: %w", err)
	}
	return sid, nil
}

// Load returns the session for sid. Ids that were not minted by Issue yield
// ErrUnknownSession. An expired token is removed and reported as absent.
func (m *Manager) Load(ctx context.Context, sid string) (Session, error) {
	s := Session{ID: sid}
	if !ValidID(sid) {
		return s, ErrUnknownSession
	}
	if _, err := m.store.Get(ctx, key(sid, issuedKey)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return s, ErrUnknownSession
		}
		return s, fmt.Errorf("load session: %w", err)
	}

	token, err := m.store.Get(ctx, key(sid, CredentialKey))
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("load credential: %w", err)
	}

	if TokenExpired(token, m.now()) {
		observability.Logger.InfoContext(ctx, "dropping expired credential", "session_id", sid)
		if err := m.store.Remove(ctx, key(sid, CredentialKey)); err != nil {
			return s, fmt.Errorf("remove expired credential: %w", err)
		}
		return s, nil
	}
	s.Token = token
	return s, nil
}

// SaveToken stores the bearer token for sid.
func (m *Manager) SaveToken(ctx context.Context, sid, token string) error {
	if err := m.store.Set(ctx, key(sid, CredentialKey), token, m.ttl); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Rotate moves the browser to a freshly issued id carrying token, which may be
// empty for an anonymous session. Pending flashes follow the browser. The old
// id loses its credential and stops being recognized; failures there are
// logged, not returned.
func (m *Manager) Rotate(ctx context.Context, oldSID, token string) (Session, error) {
	sid, err := m.Issue(ctx)
	if err != nil {
		return Session{}, err
	}
	next := Session{ID: sid, Token: token}
	if token != "" {
		if err := m.SaveToken(ctx, sid, token); err != nil {
			return Session{}, err
		}
	}

	pending, err := m.store.Drain(ctx, key(oldSID, flashKey))
	if err != nil {
		observability.Logger.WarnContext(ctx, "flashes not carried over", "error", err)
	}
	for _, v := range pending {
		if err := m.store.Append(ctx, key(sid, flashKey), v, m.ttl); err != nil {
			observability.Logger.WarnContext(ctx, "flashes not carried over", "error", err)
			break
		}
	}

	for _, name := range []string{CredentialKey, issuedKey} {
		if err := m.store.Remove(ctx, key(oldSID, name)); err != nil {
			observability.Logger.WarnContext(ctx, "old session not retired", "session_id", oldSID, "key", name, "error", err)
		}
	}
	return next, nil
}

// Ping checks that the backing store is reachable. Stores without a network
// dependency always succeed.
func (m *Manager) Ping(ctx context.Context) error {
	p, ok := m.store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// ClearToken removes the bearer token for sid.
func (m *Manager) ClearToken(ctx context.Context, sid string) error {
	if err := m.store.Remove(ctx, key(sid, CredentialKey)); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// AddFlash queues a notification for the next rendered page.
func (m *Manager) AddFlash(ctx context.Context, sid, kind, message string) error {
	raw, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return err
	}
	if err := m.store.Append(ctx, key(sid, flashKey), string(raw), m.ttl); err != nil {
		return fmt.Errorf("add flash: %w", err)
	}
	return nil
}

// Flashes returns and consumes the queued notifications. Malformed entries are skipped.
func (m *Manager) Flashes(ctx context.Context, sid string) ([]Flash, error) {
	values, err := m.store.Drain(ctx, key(sid, flashKey))
	if err != nil {
		return nil, fmt.Errorf("read flashes: %w", err)
	}
	out := make([]Flash, 0, len(values))
	for _, v := range values {
		var f Flash
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// TokenExpired reports whether token is a JWT whose exp claim is in the past.
// The signature is not checked; the backend stays the authority. Tokens that
// are not JWTs or carry no exp never expire here.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
