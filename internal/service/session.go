package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SessionState is the authentication state seen by the presentation layer.
type SessionState string

const (
	SessionUnresolved    SessionState = "unresolved"
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

// ErrSessionClosed is returned when a login or registration settles after the
// manager was closed. The result is discarded.
var ErrSessionClosed = errors.New("session manager closed")

// SessionManager tracks the current session on top of a CredentialStore and
// persists it under CurrentSessionKey so a restart resumes it.
type SessionManager struct {
	creds   *CredentialStore
	kv      port.KVStore
	delay   time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.RWMutex
	state    SessionState
	user     *domain.User
	closed   bool
	resolved chan struct{}
	once     sync.Once
}

// NewSessionManager creates a manager in the unresolved state. delay is the
// simulated latency applied to Login and Register; tests pass zero.
func NewSessionManager(creds *CredentialStore, kv port.KVStore, delay time.Duration, metrics *observability.Metrics, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		creds:    creds,
		kv:       kv,
		delay:    delay,
		metrics:  metrics,
		logger:   logger,
		state:    SessionUnresolved,
		resolved: make(chan struct{}),
	}
}

// ============================================================
// Resolution
// ============================================================

// Start resolves the persisted session in the background.
func (m *SessionManager) Start(ctx context.Context) {
	go func() {
		if err := m.Resolve(ctx); err != nil {
			m.logger.Error("session: resolve failed", zap.Error(err))
		}
	}()
}

// Resolve loads the persisted session record once. A present record makes the
// manager authenticated; anything else, including a read failure, leaves it
// anonymous. Later calls are no-ops.
func (m *SessionManager) Resolve(ctx context.Context) error {
	var resolveErr error
	m.once.Do(func() {
		ctx, span := authTracer.Start(ctx, "SessionManager.Resolve")
		defer span.End()

		user, err := m.loadSession(ctx)
		resolveErr = err

		m.mu.Lock()
		if m.state == SessionUnresolved {
			if user != nil {
				m.state, m.user = SessionAuthenticated, user
			} else {
				m.state = SessionAnonymous
			}
		}
		state := m.state
		m.mu.Unlock()
		close(m.resolved)

		span.SetAttributes(attribute.String("session.state", string(state)))
		m.logger.Info("session resolved", zap.String("state", string(state)))
	})
	return resolveErr
}

// Ready is closed once resolution completes.
func (m *SessionManager) Ready() <-chan struct{} {
	return m.resolved
}

// Wait blocks until resolution completes or ctx ends.
func (m *SessionManager) Wait(ctx context.Context) error {
	select {
	case <-m.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current state and, when authenticated, a copy of the
// session's public account.
func (m *SessionManager) Status() (SessionState, *domain.User) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return m.state, nil
	}
	u := *m.user
	return m.state, &u
}

// ============================================================
// Login / Register / Logout
// ============================================================

// Login authenticates after the simulated delay. On failure the state is left
// unchanged and *domain.ErrInvalidCredentials is returned.
func (m *SessionManager) Login(ctx context.Context, email, secret string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "SessionManager.Login")
	defer span.End()
	start := time.Now()
	defer func() { m.metrics.RecordDuration("login", time.Since(start)) }()

	if err := m.settle(ctx); err != nil {
		return nil, err
	}

	user, err := m.creds.Authenticate(ctx, email, secret)
	if err != nil {
		m.metrics.IncrAuth("login", outcome(err))
		var invalid *domain.ErrInvalidCredentials
		if errors.As(err, &invalid) {
			m.logger.Warn("login: invalid credentials", zap.String("email", email))
		}
		return nil, err
	}

	if err := m.establish(ctx, user); err != nil {
		return nil, err
	}

	m.metrics.IncrAuth("login", "success")
	m.logger.Info("account logged in", zap.String("account_id", user.ID))
	return user, nil
}

// Register validates the name, then creates the account after the simulated
// delay and logs it in. On failure the state is left unchanged. Once the
// account is stored the registration succeeds: a failure to persist the
// session record is logged and the session lives in memory only.
func (m *SessionManager) Register(ctx context.Context, name, email, secret string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "SessionManager.Register")
	defer span.End()
	start := time.Now()
	defer func() { m.metrics.RecordDuration("register", time.Since(start)) }()

	if name == "" {
		m.metrics.IncrAuth("register", "validation")
		return nil, &domain.ErrValidation{Field: "name", Message: "Name is required"}
	}

	if err := m.settle(ctx); err != nil {
		return nil, err
	}

	user, err := m.creds.Register(ctx, name, email, secret)
	if err != nil {
		m.metrics.IncrAuth("register", outcome(err))
		return nil, err
	}

	if m.isClosed() {
		return nil, ErrSessionClosed
	}
	if err := m.persist(ctx, user); err != nil {
		m.logger.Error("register: session not persisted, account kept",
			zap.String("account_id", user.ID),
			zap.Error(err),
		)
	}
	if err := m.apply(user); err != nil {
		return nil, err
	}

	m.metrics.IncrAuth("register", "success")
	return user, nil
}

// Logout clears the persisted session and becomes anonymous. A store failure
// is logged; the in-memory state is cleared regardless.
func (m *SessionManager) Logout(ctx context.Context) {
	ctx, span := authTracer.Start(ctx, "SessionManager.Logout")
	defer span.End()

	if err := m.kv.Delete(ctx, CurrentSessionKey); err != nil {
		m.logger.Error("logout: failed to clear persisted session", zap.Error(err))
	}

	m.mu.Lock()
	prev := m.user
	m.state, m.user = SessionAnonymous, nil
	m.mu.Unlock()

	if prev != nil {
		m.logger.Info("account logged out", zap.String("account_id", prev.ID))
	}
}

// Close tears the manager down. Logins and registrations still in flight
// settle with ErrSessionClosed and change nothing.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// ============================================================
// Internals
// ============================================================

// settle waits out the simulated latency. The wait ends early only when ctx
// ends; either way a closed manager discards the attempt.
func (m *SessionManager) settle(ctx context.Context) error {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m.isClosed() {
		return ErrSessionClosed
	}
	return ctx.Err()
}

func (m *SessionManager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// establish persists user as the current session and applies it.
func (m *SessionManager) establish(ctx context.Context, user *domain.User) error {
	if m.isClosed() {
		return ErrSessionClosed
	}
	if err := m.persist(ctx, user); err != nil {
		return err
	}
	return m.apply(user)
}

func (m *SessionManager) persist(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(ctx, CurrentSessionKey, string(raw)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// apply makes user the in-memory session unless the manager is closed.
func (m *SessionManager) apply(user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSessionClosed
	}
	u := *user
	m.state, m.user = SessionAuthenticated, &u
	return nil
}

func (m *SessionManager) loadSession(ctx context.Context) (*domain.User, error) {
	raw, ok, err := m.kv.Get(ctx, CurrentSessionKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warn("session: ignoring malformed session record", zap.Error(err))
		return nil, nil
	}
	return &user, nil
}

func outcome(err error) string {
	var (
		invalid    *domain.ErrInvalidCredentials
		duplicate  *domain.ErrDuplicateAccount
		validation *domain.ErrValidation
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid_credentials"
	case errors.As(err, &duplicate):
		return "duplicate"
	case errors.As(err, &validation):
		return "validation"
	default:
		return "error"
	}
}
