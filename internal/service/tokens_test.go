package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := service.NewTokenIssuer("test-secret", time.Hour)
	user := domain.User{ID: "acc-1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin}

	token, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Sub != "acc-1" || claims.Email != "ada@example.com" || claims.Role != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	a := service.NewTokenIssuer("secret-a", time.Hour)
	b := service.NewTokenIssuer("secret-b", time.Hour)

	token, _ := a.Issue(domain.User{ID: "acc-1"})
	_, err := b.Validate(token)
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := service.NewTokenIssuer("test-secret", -time.Minute)

	token, _ := issuer.Issue(domain.User{ID: "acc-1"})
	if _, err := issuer.Validate(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := service.NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Validate("not.a.token"); err == nil {
		t.Fatal("expected garbage to be rejected")
	}
}
