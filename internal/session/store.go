// Package session owns the signed-in user's token and profile, persists them
// through a pluggable Storage and publishes authentication changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/branch-booking/internal/observable"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// LoginRoute is where the user lands after the session ends.
const LoginRoute = "/login"

// LogoutPrompt is asked before an interactive logout.
const LogoutPrompt = "Are you sure you want to logout?"

// ErrMissingToken is returned when the login endpoint answers without a token.
var ErrMissingToken = errors.New("session: login response carried no access token")

// Store is the single source of truth for authentication state.
type Store struct {
	storage Storage
	auth    Authenticator
	nav     Navigator
	confirm Confirmer
	logger  *logging.Logger

	mu          sync.Mutex
	token       string
	profile     *UserProfile
	generation  int64
	invalidated int64

	authenticated *observable.Cell[bool]
	profiles      *observable.Cell[*UserProfile]
}

// Option customizes a Store.
type Option func(*Store)

// WithNavigator sets the navigator used when the session ends.
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// WithConfirmer sets the prompt used by an interactive logout.
func WithConfirmer(c Confirmer) Option {
	return func(s *Store) { s.confirm = c }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore loads any persisted session from storage. A corrupt profile is
// discarded rather than failing startup.
func NewStore(ctx context.Context, storage Storage, auth Authenticator, opts ...Option) (*Store, error) {
	if storage == nil {
		return nil, errors.New("session: storage is required")
	}
	s := &Store{
		storage:     storage,
		auth:        auth,
		logger:      logging.Discard(),
		invalidated: -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	token, err := storage.Get(ctx, AccessTokenKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("session: load token: %w", err)
	}
	s.token = token

	raw, err := storage.Get(ctx, UserProfileKey)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("session: load profile: %w", err)
	default:
		var p UserProfile
		if jerr := json.Unmarshal([]byte(raw), &p); jerr != nil {
			s.logger.Warn("discarding unreadable stored profile", "error", jerr)
			_ = storage.Delete(ctx, UserProfileKey)
		} else {
			s.profile = &p
		}
	}

	s.authenticated = observable.NewCell(s.token != "")
	s.profiles = observable.NewCell(s.profile)
	return s, nil
}

// Authenticated is the observable "has a token" state.
func (s *Store) Authenticated() *observable.Cell[bool] { return s.authenticated }

// ProfileChanges is the observable current profile; nil when signed out.
func (s *Store) ProfileChanges() *observable.Cell[*UserProfile] { return s.profiles }

// IsAuthenticated reports whether a token is held. The token is not validated.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// AccessToken returns the stored bearer token.
func (s *Store) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Profile returns a copy of the cached profile, or nil.
func (s *Store) Profile() *UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	cp := *s.profile
	cp.Roles = append([]string(nil), s.profile.Roles...)
	return &cp
}

// HasRole reports whether the signed-in user carries role.
func (s *Store) HasRole(role string) bool {
	return s.Profile().HasRole(role)
}

// HasAnyRole reports whether the signed-in user carries any of roles.
func (s *Store) HasAnyRole(roles ...string) bool {
	return s.Profile().HasAnyRole(roles...)
}

// Login exchanges credentials for a token and stores the derived profile.
// Any failure leaves the store signed out; no navigation happens.
func (s *Store) Login(ctx context.Context, creds Credentials) (*UserProfile, error) {
	if s.auth == nil {
		return nil, errors.New("session: no authenticator configured")
	}
	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.clear(ctx)
		return nil, err
	}
	if resp == nil || resp.AccessToken == "" {
		s.clear(ctx)
		return nil, ErrMissingToken
	}

	profile := profileFromLogin(resp)
	if err := s.persist(ctx, resp.AccessToken, profile); err != nil {
		s.clear(ctx)
		return nil, err
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	s.profile = profile
	s.generation++
	s.mu.Unlock()

	s.logger.Info("signed in", "username", profile.Username)
	s.authenticated.Set(true)
	s.profiles.Set(s.Profile())
	return s.Profile(), nil
}

// Logout clears the session and hard-navigates to the login route. When
// requireConfirmation is set and the user declines, or no confirmer is
// configured, nothing changes and false is returned.
func (s *Store) Logout(ctx context.Context, requireConfirmation bool) bool {
	if requireConfirmation && (s.confirm == nil || !s.confirm.Confirm(LogoutPrompt)) {
		return false
	}
	s.clear(ctx)
	s.logger.Info("signed out")
	s.navigate()
	return true
}

// Invalidate ends the session after the backend rejected it. Only the first
// call per login generation clears state and navigates; later calls return
// false so concurrent 401 responses produce a single redirect.
func (s *Store) Invalidate(ctx context.Context, reason string) bool {
	s.mu.Lock()
	if s.invalidated == s.generation {
		s.mu.Unlock()
		s.logger.Debug("session already invalidated", "reason", reason)
		return false
	}
	s.invalidated = s.generation
	s.mu.Unlock()

	s.logger.Warn("session invalidated", "reason", reason)
	s.clear(ctx)
	s.navigate()
	return true
}

// CheckTokenValidity asks the backend who the token belongs to. A missing
// token is not an error. On rejection the session is invalidated; on success
// the cached profile is refreshed and persisted.
func (s *Store) CheckTokenValidity(ctx context.Context) error {
	if !s.IsAuthenticated() || s.auth == nil {
		return nil
	}
	id, err := s.auth.CurrentUser(ctx)
	if err != nil {
		s.Invalidate(ctx, "token validation failed")
		return err
	}
	if id == nil {
		s.Invalidate(ctx, "token validation returned no user")
		return errors.New("session: empty user response")
	}

	profile := profileFromIdentity(id)
	if err := s.saveProfile(ctx, profile); err != nil {
		s.logger.Warn("failed to persist refreshed profile", "error", err)
	}
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	s.profiles.Set(s.Profile())
	return nil
}

// TokenClaims is an unverified view of the stored token.
type TokenClaims struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry before now.
func (c *TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the stored token without verifying its signature. It is
// informational only; the backend remains the authority on validity.
func (s *Store) Claims() (*TokenClaims, error) {
	token, ok := s.AccessToken()
	if !ok {
		return nil, ErrNotFound
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("session: decode token: %w", err)
	}
	out := &TokenClaims{}
	out.Subject, _ = claims.GetSubject()
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		out.ExpiresAt = exp.Time
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if rs, ok := r.(string); ok {
				out.Roles = append(out.Roles, rs)
			}
		}
	}
	return out, nil
}

func (s *Store) persist(ctx context.Context, token string, profile *UserProfile) error {
	if err := s.storage.Set(ctx, AccessTokenKey, token); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return s.saveProfile(ctx, profile)
}

func (s *Store) saveProfile(ctx context.Context, profile *UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("session: encode profile: %w", err)
	}
	if err := s.storage.Set(ctx, UserProfileKey, string(data)); err != nil {
		return fmt.Errorf("session: save profile: %w", err)
	}
	return nil
}

func (s *Store) clear(ctx context.Context) {
	for _, key := range []string{AccessTokenKey, UserProfileKey} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete session key", "key", key, "error", err)
		}
	}
	s.mu.Lock()
	wasAuthenticated := s.token != "" || s.profile != nil
	s.token = ""
	s.profile = nil
	s.mu.Unlock()

	if wasAuthenticated || s.authenticated.Get() {
		s.authenticated.Set(false)
		s.profiles.Set(nil)
	}
}

func (s *Store) navigate() {
	if s.nav != nil {
		s.nav.Reset(LoginRoute)
	}
}
