package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"go.uber.org/zap"
)

func newManager(kv port.KVStore, delay time.Duration) (*service.SessionManager, *observability.Metrics) {
	metrics := observability.NewMetrics()
	creds := service.NewCredentialStore(kv, zap.NewNop())
	return service.NewSessionManager(creds, kv, delay, metrics, zap.NewNop()), metrics
}

func resolved(t *testing.T, m *service.SessionManager) (service.SessionState, *domain.User) {
	t.Helper()
	if err := m.Resolve(context.Background()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return m.Status()
}

func TestSessionManager_StartsUnresolved(t *testing.T) {
	m, _ := newManager(newCountingStore(), 0)

	state, user := m.Status()
	if state != service.SessionUnresolved || user != nil {
		t.Fatalf("expected unresolved with no user, got %s %v", state, user)
	}
	select {
	case <-m.Ready():
		t.Fatal("ready closed before resolution")
	default:
	}
}

func TestSessionManager_ResolveEmptyStoreIsAnonymous(t *testing.T) {
	m, _ := newManager(newCountingStore(), 0)

	state, user := resolved(t, m)
	if state != service.SessionAnonymous || user != nil {
		t.Fatalf("expected anonymous, got %s %v", state, user)
	}
	select {
	case <-m.Ready():
	default:
		t.Fatal("ready not closed after resolution")
	}
}

func TestSessionManager_StartResolvesInBackground(t *testing.T) {
	m, _ := newManager(newCountingStore(), 0)
	m.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if state, _ := m.Status(); state != service.SessionAnonymous {
		t.Errorf("expected anonymous, got %s", state)
	}
}

func TestSessionManager_MalformedRecordIsAnonymous(t *testing.T) {
	kv := newCountingStore()
	_ = kv.Set(context.Background(), service.CurrentSessionKey, "{{{")
	m, _ := newManager(kv, 0)

	if state, _ := resolved(t, m); state != service.SessionAnonymous {
		t.Errorf("expected anonymous, got %s", state)
	}
}

func TestSessionManager_RegisterLogsIn(t *testing.T) {
	ctx := context.Background()
	kv := newCountingStore()
	m, metrics := newManager(kv, 0)
	resolved(t, m)

	user, err := m.Register(ctx, "Ada", "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	state, current := m.Status()
	if state != service.SessionAuthenticated || current == nil || *current != *user {
		t.Fatalf("expected authenticated as %+v, got %s %+v", user, state, current)
	}
	if got := metrics.AuthCount("register", "success"); got != 1 {
		t.Errorf("expected 1 successful register, got %v", got)
	}
}

func TestSessionManager_RegisterKeepsAccountWhenSessionWriteFails(t *testing.T) {
	ctx := context.Background()
	kv := newCountingStore()
	kv.setErr = errors.New("disk full")
	kv.failKey = service.CurrentSessionKey
	m, _ := newManager(kv, 0)
	resolved(t, m)

	user, err := m.Register(ctx, "Ada", "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("register should succeed once the account is stored, got %v", err)
	}
	if state, current := m.Status(); state != service.SessionAuthenticated || current == nil || current.ID != user.ID {
		t.Fatalf("expected authenticated as %s, got %s %+v", user.ID, state, current)
	}
	if _, ok, _ := kv.Memory.Get(ctx, service.CurrentSessionKey); ok {
		t.Error("session record should not have been written")
	}

	m.Logout(ctx)
	if _, err := m.Login(ctx, "ada@example.com", "pw"); err == nil {
		t.Fatal("login should still fail while the session key is unwritable")
	}
	kv.failKey = service.AccountsKey
	if _, err := m.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Errorf("the stored account should log in, got %v", err)
	}
}

func TestSessionManager_SessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := newCountingStore()

	first, _ := newManager(kv, 0)
	resolved(t, first)
	if _, err := first.Register(ctx, "Ada", "ada@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	first.Logout(ctx)
	user, err := first.Login(ctx, "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, _ := newManager(kv, 0)
	state, restored := resolved(t, second)
	if state != service.SessionAuthenticated || restored == nil {
		t.Fatalf("expected authenticated after restart, got %s", state)
	}
	if *restored != *user {
		t.Errorf("expected %+v, got %+v", *user, *restored)
	}

	raw, _, _ := kv.Get(ctx, service.CurrentSessionKey)
	var record map[string]any
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("decode session record: %v", err)
	}
	if _, ok := record["password"]; ok {
		t.Error("session record must not carry the secret")
	}
}

func TestSessionManager_LogoutSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := newCountingStore()

	first, _ := newManager(kv, 0)
	resolved(t, first)
	if _, err := first.Register(ctx, "Ada", "ada@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	first.Logout(ctx)

	if state, user := first.Status(); state != service.SessionAnonymous || user != nil {
		t.Fatalf("expected anonymous after logout, got %s %v", state, user)
	}

	second, _ := newManager(kv, 0)
	if state, _ := resolved(t, second); state != service.SessionAnonymous {
		t.Errorf("expected anonymous after restart, got %s", state)
	}
}

func TestSessionManager_LogoutClearsStateEvenIfStoreFails(t *testing.T) {
	ctx := context.Background()
	kv := newCountingStore()
	m, _ := newManager(kv, 0)
	resolved(t, m)
	if _, err := m.Register(ctx, "Ada", "ada@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}

	kv.delErr = errors.New("locked")
	m.Logout(ctx)

	if state, _ := m.Status(); state != service.SessionAnonymous {
		t.Errorf("expected anonymous, got %s", state)
	}
}

func TestSessionManager_LoginFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	m, metrics := newManager(newCountingStore(), 0)
	resolved(t, m)

	_, err := m.Login(ctx, "ghost@example.com", "pw")
	var invalid *domain.ErrInvalidCredentials
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if state, _ := m.Status(); state != service.SessionAnonymous {
		t.Errorf("expected anonymous, got %s", state)
	}
	if got := metrics.AuthCount("login", "invalid_credentials"); got != 1 {
		t.Errorf("expected 1 invalid login, got %v", got)
	}
}

func TestSessionManager_DuplicateRegisterKeepsCurrentSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(newCountingStore(), 0)
	resolved(t, m)

	first, err := m.Register(ctx, "Ada", "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = m.Register(ctx, "Ada Again", "ada@example.com", "other")
	var dup *domain.ErrDuplicateAccount
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, user := m.Status(); user == nil || user.ID != first.ID {
		t.Errorf("expected session to stay on %s, got %+v", first.ID, user)
	}
}

func TestSessionManager_EmptyNameRejectedBeforeStoreAccess(t *testing.T) {
	kv := newCountingStore()
	m, _ := newManager(kv, time.Hour)
	resolved(t, m)
	before := kv.calls()

	start := time.Now()
	_, err := m.Register(context.Background(), "", "ada@example.com", "pw")
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "name" || v.Message != "Name is required" {
		t.Fatalf("expected name validation error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("validation must not wait for the simulated delay")
	}
	if kv.calls() != before {
		t.Errorf("expected no store access, got %d new calls", kv.calls()-before)
	}
}

func TestSessionManager_CancelledDuringDelay(t *testing.T) {
	kv := newCountingStore()
	m, _ := newManager(kv, time.Hour)
	resolved(t, m)
	before := kv.calls()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Register(ctx, "Ada", "ada@example.com", "pw")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if state, _ := m.Status(); state != service.SessionAnonymous {
		t.Errorf("expected anonymous, got %s", state)
	}
	if kv.calls() != before {
		t.Error("cancelled attempt must not touch the store")
	}
}

func TestSessionManager_ClosedDiscardsPendingLogin(t *testing.T) {
	kv := newCountingStore()
	m, _ := newManager(kv, 50*time.Millisecond)
	resolved(t, m)

	done := make(chan error, 1)
	go func() {
		_, err := m.Register(context.Background(), "Ada", "ada@example.com", "pw")
		done <- err
	}()
	m.Close()

	select {
	case err := <-done:
		if !errors.Is(err, service.ErrSessionClosed) {
			t.Fatalf("expected ErrSessionClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("register did not settle")
	}

	if state, _ := m.Status(); state != service.SessionAnonymous {
		t.Errorf("expected anonymous, got %s", state)
	}
	if _, ok, _ := kv.Get(context.Background(), service.CurrentSessionKey); ok {
		t.Error("closed manager must not persist a session")
	}
}

func TestSessionManager_LoginBeforeResolveWins(t *testing.T) {
	ctx := context.Background()
	kv := newCountingStore()

	seed, _ := newManager(kv, 0)
	resolved(t, seed)
	if _, err := seed.Register(ctx, "Ada", "ada@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	seed.Logout(ctx)

	m, _ := newManager(kv, 0)
	if _, err := m.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if state, _ := resolved(t, m); state != service.SessionAuthenticated {
		t.Errorf("late resolution must not override login, got %s", state)
	}
}
