// Package views holds the screen controllers of the booking front end. They
// own form state and user feedback and talk to the backend through the
// booking client; rendering is left to the caller.
package views

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/clock"
	"github.com/wolfman30/branch-booking/internal/notify"
	"github.com/wolfman30/branch-booking/internal/pipeline"
	"github.com/wolfman30/branch-booking/internal/session"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// DefaultBookingWindowDays is how far ahead appointments may be booked.
const DefaultBookingWindowDays = 90

// BookingAPI is the subset of the booking client the views call.
type BookingAPI interface {
	Branches(ctx context.Context) ([]booking.Branch, error)
	AvailableTimeSlots(ctx context.Context, branchID, date string) ([]booking.TimeSlot, error)
	CreateAppointment(ctx context.Context, req booking.AppointmentRequest) (*booking.AppointmentResponse, error)
	MyAppointments(ctx context.Context) ([]booking.AppointmentResponse, error)
	AppointmentByReference(ctx context.Context, reference string) (*booking.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, reference string) error
}

// SessionAPI is the subset of the session store the views call.
type SessionAPI interface {
	IsAuthenticated() bool
	Login(ctx context.Context, creds session.Credentials) (*session.UserProfile, error)
	Profile() *session.UserProfile
}

// Notifier shows transient feedback.
type Notifier interface {
	Success(content string, opts ...notify.ShowOption) *notify.Message
	Error(content string, opts ...notify.ShowOption) *notify.Message
}

// Deps are the collaborators shared by every view.
type Deps struct {
	API               BookingAPI
	Session           SessionAPI
	Navigator         Navigator
	Confirmer         Confirmer
	Notifier          Notifier
	Clock             clock.Clock
	BookingWindowDays int
	Logger            *logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.BookingWindowDays <= 0 {
		d.BookingWindowDays = DefaultBookingWindowDays
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Confirmer == nil {
		d.Confirmer = ConfirmFunc(func(string) bool { return false })
	}
	if d.Navigator == nil {
		d.Navigator = &RecordingNavigator{}
	}
	return d
}

func (d Deps) success(msg string) {
	if d.Notifier != nil {
		d.Notifier.Success(msg)
	}
}

func (d Deps) failure(msg string) {
	if d.Notifier != nil {
		d.Notifier.Error(msg)
	}
}

// backendMessage returns the "message" field of an HTTP error body.
func backendMessage(err error) string {
	if he, ok := pipeline.AsHTTPError(err); ok {
		return he.Message
	}
	return ""
}

// Cancel feedback shared by the list and detail views.
const (
	CancelPrompt           = "Are you sure you want to cancel this appointment?"
	CancelSucceeded        = "Appointment cancelled successfully"
	cancelFailedDefault    = "Failed to cancel appointment. Please try again."
	cancelFailedBadRequest = "Cannot cancel this appointment. It may be already cancelled or in the past."
)

func cancelErrorMessage(err error) string {
	if msg := backendMessage(err); msg != "" {
		return msg
	}
	if pipeline.StatusIs(err, http.StatusBadRequest) {
		return cancelFailedBadRequest
	}
	return cancelFailedDefault
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
