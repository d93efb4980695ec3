package views

import (
	"net/url"
	"sync"

	"github.com/wolfman30/branch-booking/internal/booking"
)

// Routes understood by the front end.
const (
	RouteLogin          = "/login"
	RouteAppointments   = "/appointments"
	RouteMyAppointments = "/my-appointments"
)

// AppointmentDetailsRoute is the detail page for reference.
func AppointmentDetailsRoute(reference string) string {
	return "/appointment-details/" + url.PathEscape(reference)
}

// ConfirmationRoute is the page shown after a booking succeeds.
func ConfirmationRoute(reference string) string {
	return "/confirmation/" + url.PathEscape(reference)
}

// LoginRouteReturningTo sends the user to login and back to returnURL afterwards.
func LoginRouteReturningTo(returnURL string) string {
	if returnURL == "" {
		return RouteLogin
	}
	return RouteLogin + "?" + url.Values{"returnUrl": {returnURL}}.Encode()
}

// ReturnURLFrom extracts the returnUrl query parameter from a login route.
func ReturnURLFrom(route string) string {
	u, err := url.Parse(route)
	if err != nil {
		return ""
	}
	return u.Query().Get("returnUrl")
}

// Navigator moves between routes. Reset discards all in-memory view state.
type Navigator interface {
	Navigate(route string)
	Reset(route string)
}

// StateNavigator can hand a value to the destination view.
type StateNavigator interface {
	NavigateWithState(route string, state any)
}

// RescheduleState is handed to the booking form when rescheduling.
type RescheduleState struct {
	Appointment booking.AppointmentResponse
}

func navigateWithState(nav Navigator, route string, state any) {
	if sn, ok := nav.(StateNavigator); ok {
		sn.NavigateWithState(route, state)
		return
	}
	nav.Navigate(route)
}

// Navigation is one recorded call on a RecordingNavigator.
type Navigation struct {
	Route string
	Reset bool
	State any
}

// RecordingNavigator remembers every navigation.
type RecordingNavigator struct {
	mu      sync.Mutex
	history []Navigation
}

func (r *RecordingNavigator) Navigate(route string) {
	r.record(Navigation{Route: route})
}

func (r *RecordingNavigator) Reset(route string) {
	r.record(Navigation{Route: route, Reset: true})
}

func (r *RecordingNavigator) NavigateWithState(route string, state any) {
	r.record(Navigation{Route: route, State: state})
}

func (r *RecordingNavigator) record(n Navigation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, n)
}

// History returns all navigations in order.
func (r *RecordingNavigator) History() []Navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Navigation(nil), r.history...)
}

// Last returns the most recent navigation.
func (r *RecordingNavigator) Last() (Navigation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return Navigation{}, false
	}
	return r.history[len(r.history)-1], true
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }
