package handler

import (
	"net/http"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Session & authentication
// ============================================================

func sessionHandler(session *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := session.Wait(r.Context()); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		state, user := session.Status()
		writeJSON(w, http.StatusOK, domain.SessionResponse{State: string(state), User: user})
	}
}

func authRegisterHandler(session *service.SessionManager, tokens *service.TokenIssuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/register")
		defer span.End()

		var req domain.RegisterRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := session.Register(ctx, req.Name, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeAuthResponse(w, http.StatusCreated, *user, tokens, logger)
	}
}

func authLoginHandler(session *service.SessionManager, tokens *service.TokenIssuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := session.Login(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeAuthResponse(w, http.StatusOK, *user, tokens, logger)
	}
}

func authLogoutHandler(session *service.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		session.Logout(ctx)
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeAuthResponse(w http.ResponseWriter, status int, user domain.User, tokens *service.TokenIssuer, logger *zap.Logger) {
	token, err := tokens.Issue(user)
	if err != nil {
		handleServiceError(w, err, logger)
		return
	}
	writeJSON(w, status, domain.AuthResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   int(tokens.TTL().Seconds()),
	})
}
