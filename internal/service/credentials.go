// Package service provides the business logic layer (use cases).
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// Persisted keys.
const (
	AccountsKey       = "accounts-collection"
	CurrentSessionKey = "current-session"
)

// CredentialStore keeps the registered accounts as one JSON array under
// AccountsKey. Every call reads the full collection; registration writes the
// full collection back.
type CredentialStore struct {
	kv     port.KVStore
	newID  func() string
	logger *zap.Logger
}

// NewCredentialStore creates a credential store over kv.
func NewCredentialStore(kv port.KVStore, logger *zap.Logger) *CredentialStore {
	return &CredentialStore{
		kv:     kv,
		newID:  func() string { return uuid.New().String() },
		logger: logger,
	}
}

// ============================================================
// Register
// ============================================================

// Register appends a new admin account. The email must not match any stored
// account exactly (case-sensitive).
func (s *CredentialStore) Register(ctx context.Context, name, email, secret string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "CredentialStore.Register")
	defer span.End()

	accounts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, a := range accounts {
		if a.Email == email {
			s.logger.Info("register: duplicate email", zap.String("email", email))
			return nil, &domain.ErrDuplicateAccount{Email: email}
		}
	}

	account := domain.Account{
		ID:       s.newID(),
		Name:     name,
		Email:    email,
		Password: secret,
		Role:     domain.RoleAdmin,
	}
	accounts = append(accounts, account)

	raw, err := json.Marshal(accounts)
	if err != nil {
		return nil, fmt.Errorf("encode accounts: %w", err)
	}
	if err := s.kv.Set(ctx, AccountsKey, string(raw)); err != nil {
		return nil, fmt.Errorf("store accounts: %w", err)
	}

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("email", email),
	)

	user := account.Public()
	return &user, nil
}

// ============================================================
// Authenticate
// ============================================================

// Authenticate finds the account whose email and secret both match exactly.
func (s *CredentialStore) Authenticate(ctx context.Context, email, secret string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "CredentialStore.Authenticate")
	defer span.End()

	accounts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, a := range accounts {
		if a.Email == email && a.Password == secret {
			user := a.Public()
			return &user, nil
		}
	}
	return nil, &domain.ErrInvalidCredentials{}
}

// load reads and decodes the whole accounts collection. A missing key is an
// empty collection.
func (s *CredentialStore) load(ctx context.Context) ([]domain.Account, error) {
	raw, ok, err := s.kv.Get(ctx, AccountsKey)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var accounts []domain.Account
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		s.logger.Error("accounts collection is not valid JSON", zap.Error(err))
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return accounts, nil
}
