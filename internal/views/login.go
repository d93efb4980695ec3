package views

import (
	"context"
	"sync"

	"github.com/wolfman30/branch-booking/internal/pipeline"
	"github.com/wolfman30/branch-booking/internal/session"
)

// Login field names.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

const loginFailed = "Login failed. Please check your credentials."

// Login drives the sign-in screen.
type Login struct {
	deps      Deps
	form      *Form
	returnURL string

	mu      sync.Mutex
	loading bool
	err     string
}

// NewLogin creates the login view. returnURL is where a successful login
// lands; empty means the booking page.
func NewLogin(deps Deps, returnURL string) *Login {
	form := NewForm().
		Add(FieldUsername, Required()).
		Add(FieldPassword, Required())
	if returnURL == "" {
		returnURL = RouteAppointments
	}
	return &Login{deps: deps.withDefaults(), form: form, returnURL: returnURL}
}

// Form exposes the field state.
func (l *Login) Form() *Form { return l.form }

// ReturnURL is the post-login destination.
func (l *Login) ReturnURL() string { return l.returnURL }

// Init sends an already signed-in user straight to the booking page.
func (l *Login) Init() bool {
	if l.deps.Session != nil && l.deps.Session.IsAuthenticated() {
		l.deps.Navigator.Navigate(RouteAppointments)
		return true
	}
	return false
}

// Submit validates and signs in. An invalid form marks every field touched
// and returns ErrInvalidForm without calling the backend.
func (l *Login) Submit(ctx context.Context) error {
	if !l.form.Valid() {
		l.form.MarkAllTouched()
		return ErrInvalidForm
	}

	l.mu.Lock()
	l.loading = true
	l.err = ""
	l.mu.Unlock()

	_, err := l.deps.Session.Login(ctx, session.Credentials{
		Username: l.form.Value(FieldUsername),
		Password: l.form.Value(FieldPassword),
	})

	l.mu.Lock()
	l.loading = false
	if err != nil {
		l.err = loginFailed
		if he, ok := pipeline.AsHTTPError(err); ok && he.ErrorDescription != "" {
			l.err = he.ErrorDescription
		}
	}
	l.mu.Unlock()

	if err != nil {
		l.deps.Logger.Debug("login failed", "error", err)
		return err
	}
	l.deps.Navigator.Navigate(l.returnURL)
	return nil
}

// Loading reports whether a submit is in progress.
func (l *Login) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Error is the message shown above the form.
func (l *Login) Error() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
