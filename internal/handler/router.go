package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Dependencies groups what the router wires into its handlers.
type Dependencies struct {
	Session *service.SessionManager
	Editor  *service.InvoiceEditor
	Tokens  *service.TokenIssuer
	Printer port.DocumentPrinter
	Store   port.HealthChecker // optional
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Store))
	r.Get("/readyz", readyzHandler(deps.Session))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", sessionHandler(deps.Session, logger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(deps.Session, deps.Tokens, logger))
			r.Post("/login", authLoginHandler(deps.Session, deps.Tokens, logger))
			r.Post("/logout", authLogoutHandler(deps.Session))
		})

		// Everything below requires the current session's token.
		r.Group(func(r chi.Router) {
			r.Use(SessionAuthMiddleware(deps.Tokens, deps.Session, logger))

			r.Get("/currencies", listCurrenciesHandler())

			r.Route("/invoice", func(r chi.Router) {
				r.Get("/", getInvoiceHandler(deps.Editor))
				r.Post("/reset", resetInvoiceHandler(deps.Editor))
				r.Patch("/fields", updateFieldHandler(deps.Editor, logger))
				r.Patch("/client", updateClientHandler(deps.Editor, logger))
				r.Patch("/project", updateProjectHandler(deps.Editor, logger))
				r.Put("/currency", setCurrencyHandler(deps.Editor, logger))

				r.Post("/items", addLineItemHandler(deps.Editor))
				r.Patch("/items/{index}", changeLineItemHandler(deps.Editor, logger))
				r.Delete("/items/{index}", removeLineItemHandler(deps.Editor))

				r.Post("/logo", uploadImageHandler(deps.Editor, service.SlotLogo, logger))
				r.Post("/watermark", uploadImageHandler(deps.Editor, service.SlotWatermark, logger))

				r.Get("/print", printInvoiceHandler(deps.Editor, deps.Printer, logger))
			})
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(store port.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "invoicer-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			start := time.Now()
			err := store.Ping(ctx)
			cancel()
			status := "healthy"
			if err != nil {
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "kv-store", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		code := http.StatusOK
		if overallStatus == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

// readyzHandler reports ready once the persisted session has been resolved.
func readyzHandler(session *service.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-session.Ready():
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		default:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "resolving session"})
		}
	}
}
