package domain

// ============================================================
// Accounts & Sessions
// ============================================================

// RoleAdmin is the only role an account can hold.
const RoleAdmin = "admin"

// Account is a registered account as persisted in the accounts collection,
// secret included.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Public returns the account without its secret.
func (a Account) Public() User {
	return User{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// User is the public projection of an Account. It is what the current
// session record holds.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// SessionResponse is returned by GET /v1/session.
type SessionResponse struct {
	State string `json:"state"`
	User  *User  `json:"user,omitempty"`
}
