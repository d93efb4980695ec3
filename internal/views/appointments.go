package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfman30/branch-booking/internal/booking"
)

const (
	appointmentsLoadFailed = "Failed to load your appointments. Please try again."
	detailLoadFailed       = "Failed to load appointment details. Please try again."
	missingReference       = "No appointment reference provided"
)

// AppointmentList drives the "my appointments" screen.
type AppointmentList struct {
	deps Deps

	mu           sync.Mutex
	appointments []booking.AppointmentResponse
	loading      bool
	err          string
	canceling    map[string]struct{}
}

// NewAppointmentList creates the list view.
func NewAppointmentList(deps Deps) *AppointmentList {
	return &AppointmentList{deps: deps.withDefaults(), canceling: make(map[string]struct{})}
}

// Load fetches the signed-in user's appointments.
func (l *AppointmentList) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.err = ""
	l.mu.Unlock()

	appts, err := l.deps.API.MyAppointments(ctx)

	l.mu.Lock()
	l.loading = false
	if err != nil {
		l.err = appointmentsLoadFailed
		l.mu.Unlock()
		l.deps.failure(appointmentsLoadFailed)
		return err
	}
	l.appointments = appts
	l.mu.Unlock()
	return nil
}

// Cancel asks for confirmation, cancels reference and reloads the list. It
// reports whether a cancellation was attempted.
func (l *AppointmentList) Cancel(ctx context.Context, reference string) (bool, error) {
	if !l.deps.Confirmer.Confirm(CancelPrompt) {
		return false, nil
	}

	l.mu.Lock()
	l.canceling[reference] = struct{}{}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.canceling, reference)
		l.mu.Unlock()
	}()

	if err := l.deps.API.CancelAppointment(ctx, reference); err != nil {
		l.deps.failure(cancelErrorMessage(err))
		return true, err
	}
	l.deps.success(CancelSucceeded)
	l.deps.Logger.Info("appointment cancelled", "reference", reference)
	if err := l.Load(ctx); err != nil {
		return true, fmt.Errorf("reload after cancel: %w", err)
	}
	return true, nil
}

// IsCanceling reports whether reference has a cancellation in flight.
func (l *AppointmentList) IsCanceling(reference string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.canceling[reference]
	return ok
}

// Reschedule opens the booking form prefilled from appt.
func (l *AppointmentList) Reschedule(appt booking.AppointmentResponse) {
	navigateWithState(l.deps.Navigator, RouteAppointments, RescheduleState{Appointment: appt})
}

// ViewDetails opens the detail page for reference.
func (l *AppointmentList) ViewDetails(reference string) {
	l.deps.Navigator.Navigate(AppointmentDetailsRoute(reference))
}

// CanCancel reports whether the cancel action is offered for appt.
func (l *AppointmentList) CanCancel(appt booking.AppointmentResponse) bool {
	return booking.CanCancel(appt, l.deps.Clock.Now())
}

// CanReschedule reports whether the reschedule action is offered for appt.
func (l *AppointmentList) CanReschedule(appt booking.AppointmentResponse) bool {
	return booking.CanReschedule(appt, l.deps.Clock.Now())
}

// Appointments returns the loaded appointments.
func (l *AppointmentList) Appointments() []booking.AppointmentResponse {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]booking.AppointmentResponse(nil), l.appointments...)
}

func (l *AppointmentList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *AppointmentList) Error() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// AppointmentDetail drives the single-appointment screen.
type AppointmentDetail struct {
	deps      Deps
	reference string

	mu          sync.Mutex
	appointment *booking.AppointmentResponse
	loading     bool
	canceling   bool
	err         string
}

// NewAppointmentDetail creates the detail view for reference.
func NewAppointmentDetail(deps Deps, reference string) *AppointmentDetail {
	return &AppointmentDetail{deps: deps.withDefaults(), reference: reference}
}

// Reference is the booking reference shown.
func (d *AppointmentDetail) Reference() string { return d.reference }

// Load fetches the appointment.
func (d *AppointmentDetail) Load(ctx context.Context) error {
	if d.reference == "" {
		d.mu.Lock()
		d.err = missingReference
		d.mu.Unlock()
		return fmt.Errorf("views: %s", missingReference)
	}

	d.mu.Lock()
	d.loading = true
	d.err = ""
	d.mu.Unlock()

	appt, err := d.deps.API.AppointmentByReference(ctx, d.reference)

	d.mu.Lock()
	d.loading = false
	if err != nil {
		d.err = detailLoadFailed
		d.mu.Unlock()
		d.deps.failure(detailLoadFailed)
		return err
	}
	d.appointment = appt
	d.mu.Unlock()
	return nil
}

// CancelPrompt is the confirmation text naming the branch and date.
func (d *AppointmentDetail) CancelPrompt() string {
	appt := d.Appointment()
	if appt == nil {
		return CancelPrompt
	}
	return fmt.Sprintf("Are you sure you want to cancel your appointment at %s on %s?",
		appt.BranchName, booking.FormatDate(appt.AppointmentDate))
}

// Cancel asks for confirmation, cancels and reloads the appointment. It
// reports whether a cancellation was attempted.
func (d *AppointmentDetail) Cancel(ctx context.Context) (bool, error) {
	if d.Appointment() == nil {
		return false, nil
	}
	if !d.deps.Confirmer.Confirm(d.CancelPrompt()) {
		return false, nil
	}

	d.mu.Lock()
	d.canceling = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.canceling = false
		d.mu.Unlock()
	}()

	if err := d.deps.API.CancelAppointment(ctx, d.reference); err != nil {
		d.deps.failure(cancelErrorMessage(err))
		return true, err
	}
	d.deps.success(CancelSucceeded)
	if err := d.Load(ctx); err != nil {
		return true, fmt.Errorf("reload after cancel: %w", err)
	}
	return true, nil
}

// Reschedule opens the booking form prefilled from this appointment.
func (d *AppointmentDetail) Reschedule() {
	appt := d.Appointment()
	if appt == nil {
		return
	}
	navigateWithState(d.deps.Navigator, RouteAppointments, RescheduleState{Appointment: *appt})
}

// Back returns to the appointment list.
func (d *AppointmentDetail) Back() { d.deps.Navigator.Navigate(RouteMyAppointments) }

// BookNew opens an empty booking form.
func (d *AppointmentDetail) BookNew() { d.deps.Navigator.Navigate(RouteAppointments) }

func (d *AppointmentDetail) CanCancel() bool {
	appt := d.Appointment()
	return appt != nil && booking.CanCancel(*appt, d.deps.Clock.Now())
}

func (d *AppointmentDetail) CanReschedule() bool {
	appt := d.Appointment()
	return appt != nil && booking.CanReschedule(*appt, d.deps.Clock.Now())
}

// Appointment returns the loaded appointment or nil.
func (d *AppointmentDetail) Appointment() *booking.AppointmentResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.appointment == nil {
		return nil
	}
	cp := *d.appointment
	return &cp
}

func (d *AppointmentDetail) Canceling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canceling
}

func (d *AppointmentDetail) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

func (d *AppointmentDetail) Error() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}
