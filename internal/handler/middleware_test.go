package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/handler"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/storage"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"go.uber.org/zap"
)

func TestSessionAuthMiddleware_PassesAccountID(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	session := service.NewSessionManager(service.NewCredentialStore(kv, zap.NewNop()), kv, 0, observability.NewMetrics(), zap.NewNop())
	if err := session.Resolve(ctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	user, err := session.Register(ctx, "Ada", "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	tokens := service.NewTokenIssuer("test-secret", time.Hour)
	token, err := tokens.Issue(*user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = handler.AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mw := handler.SessionAuthMiddleware(tokens, session, zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/invoice", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if seen != user.ID {
		t.Errorf("expected account %s in context, got %q", user.ID, seen)
	}
	if got := handler.AccountIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty account outside the middleware, got %q", got)
	}
}
