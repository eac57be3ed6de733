package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	if l := observability.NewLogger("debug"); !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger should enable debug")
	}
	if l := observability.NewLogger("warn"); l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("warn logger should not enable info")
	}
	if l := observability.NewLogger("nonsense"); !l.Core().Enabled(zapcore.InfoLevel) || l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("unknown level should fall back to info")
	}
}

func TestZapLoggerMiddleware_LevelsAndRoute(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := chi.NewRouter()
	r.Use(observability.ZapLoggerMiddleware(zap.New(core)))
	r.Get("/items/{index}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for _, path := range []string{"/items/3", "/missing", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("line %d: expected %s, got %s", i, want[i], e.Level)
		}
	}
	if route := entries[0].ContextMap()["route"]; route != "/items/{index}" {
		t.Errorf("expected route pattern, got %v", route)
	}
}
