package session

import (
	"context"
	"slices"
)

// Credentials are exchanged for a bearer token at the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the payload returned by the login endpoint.
type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	TokenType   string   `json:"tokenType,omitempty"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
}

// Identity is the raw "who am I" answer from the backend before defaults are applied.
type Identity struct {
	ID       string
	Username string
	Email    string
	Roles    []string
}

// UserProfile is the cached description of the signed-in user.
type UserProfile struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the profile carries role.
func (p *UserProfile) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// HasAnyRole reports whether the profile carries at least one of roles.
func (p *UserProfile) HasAnyRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}

// Authenticator performs the two auth endpoint calls the store depends on.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	CurrentUser(ctx context.Context) (*Identity, error)
}

// Navigator performs a hard navigation that discards in-memory view state.
type Navigator interface {
	Reset(route string)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

func profileFromLogin(resp *LoginResponse) *UserProfile {
	email := resp.Email
	if email == "" {
		email = resp.Username
	}
	return &UserProfile{
		ID:       resp.Username,
		Username: resp.Username,
		Email:    email,
		Roles:    append([]string(nil), resp.Roles...),
	}
}

func profileFromIdentity(id *Identity) *UserProfile {
	p := &UserProfile{
		ID:       id.ID,
		Username: id.Username,
		Email:    id.Email,
		Roles:    append([]string(nil), id.Roles...),
	}
	if p.ID == "" {
		p.ID = id.Username
	}
	if p.Email == "" {
		p.Email = id.Username + "@example.com"
	}
	return p
}
