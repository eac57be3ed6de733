package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/handler"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/cache"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/ingest"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/pdf"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/resilience"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/storage"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"go.uber.org/zap"
)

// app is one process lifetime over a shared SQLite file.
type app struct {
	server  *httptest.Server
	store   *storage.GormStore
	session *service.SessionManager
	cache   *cache.TTL[[]byte]
}

func startApp(t *testing.T, dbPath string) *app {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	db, err := storage.OpenSQLite(dbPath, logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	kv := storage.NewResilient(db, resilience.NewCircuitBreaker("kv-store", logger), resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 5 * time.Millisecond,
	})

	session := service.NewSessionManager(service.NewCredentialStore(kv, logger), kv, 10*time.Millisecond, metrics, logger)
	session.Start(context.Background())

	editor := service.NewInvoiceEditor(ingest.NewDataURLIngester(4, metrics, logger), domain.DocumentOptions{}, metrics, logger)
	printCache := cache.New[[]byte](time.Minute)

	router := handler.NewRouter(handler.Dependencies{
		Session: session,
		Editor:  editor,
		Tokens:  service.NewTokenIssuer("integration-secret", time.Hour),
		Printer: pdf.NewCachedPrinter(pdf.NewExporter(logger), printCache),
		Store:   db,
		Metrics: metrics,
		Logger:  logger,
	})

	return &app{server: httptest.NewServer(router), store: db, session: session, cache: printCache}
}

func (a *app) stop() {
	a.server.Close()
	a.session.Close()
	a.cache.Stop()
	a.store.Close()
}

func (a *app) call(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, a.server.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sessionState(t *testing.T, a *app) domain.SessionResponse {
	t.Helper()
	var s domain.SessionResponse
	if err := json.NewDecoder(a.call(t, http.MethodGet, "/v1/session", "", nil).Body).Decode(&s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s
}

// TestIntegration_FullFlow registers, edits an invoice, prints it, restarts
// over the same database and logs out.
func TestIntegration_FullFlow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "invoicer.db")
	first := startApp(t, dbPath)

	if s := sessionState(t, first); s.State != "anonymous" {
		t.Fatalf("expected anonymous on a fresh database, got %s", s.State)
	}

	resp := first.call(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Dtech Admin", "email": "admin@dtech.test", "password": "pw",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var auth domain.AuthResponse
	json.NewDecoder(resp.Body).Decode(&auth)
	if auth.AccessToken == "" || auth.User.Role != "admin" {
		t.Fatalf("unexpected auth response %+v", auth)
	}

	first.call(t, http.MethodPatch, "/v1/invoice/fields", auth.AccessToken, map[string]any{"field": "taxRate", "value": 10})
	first.call(t, http.MethodPatch, "/v1/invoice/items/1", auth.AccessToken, map[string]any{"field": "quantity", "value": "5"})
	resp = first.call(t, http.MethodPut, "/v1/invoice/currency", auth.AccessToken, map[string]string{"code": "GHS"})

	var view domain.InvoiceView
	json.NewDecoder(resp.Body).Decode(&view)
	// 40*100 + 5*80 = 4400; +10% tax = 4840
	if view.Totals.GrandTotal != "4840.00" {
		t.Errorf("expected grand total 4840.00, got %s", view.Totals.GrandTotal)
	}
	if view.Totals.GrandDisplay != "GH₵4840.00" {
		t.Errorf("expected GH₵4840.00, got %s", view.Totals.GrandDisplay)
	}

	resp = first.call(t, http.MethodGet, "/v1/invoice/print", auth.AccessToken, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("print: expected a PDF, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	first.stop()

	// The session record survives a restart over the same database.
	second := startApp(t, dbPath)
	s := sessionState(t, second)
	if s.State != "authenticated" || s.User == nil || s.User.ID != auth.User.ID {
		t.Fatalf("expected the session to resume as %s, got %+v", auth.User.ID, s)
	}

	if resp := second.call(t, http.MethodGet, "/v1/invoice", auth.AccessToken, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("token should still match the resumed session, got %d", resp.StatusCode)
	}

	if resp := second.call(t, http.MethodPost, "/v1/auth/logout", "", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}
	if resp := second.call(t, http.MethodGet, "/v1/invoice", auth.AccessToken, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	second.stop()

	// Logout is persisted too; the account itself remains.
	third := startApp(t, dbPath)
	defer third.stop()
	if s := sessionState(t, third); s.State != "anonymous" {
		t.Fatalf("expected anonymous after logout and restart, got %s", s.State)
	}
	resp = third.call(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "admin@dtech.test", "password": "pw",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login after restart: expected 200, got %d", resp.StatusCode)
	}
}
