package views

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/pipeline"
)

// Booking form field names.
const (
	FieldBranchID        = "branchId"
	FieldAppointmentDate = "appointmentDate"
	FieldStartTime       = "startTime"
	FieldCustomerName    = "customerName"
	FieldCustomerEmail   = "customerEmail"
	FieldCustomerPhone   = "customerPhone"
)

// Booking form feedback.
const (
	BookingSucceeded      = "Appointment booked successfully!"
	bookingFailed         = "Failed to create appointment. Please try again."
	bookingFormIncomplete = "Please fill in all required fields correctly."
	branchesFailed        = "Failed to load branches. Please try again later."
)

var phoneFieldPattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)

// BookingForm drives the new-appointment screen.
type BookingForm struct {
	deps Deps
	form *Form

	mu           sync.Mutex
	branches     []booking.Branch
	slots        []booking.TimeSlot
	loading      bool
	loadingSlots bool
	slotGen      uint64
	err          string
	success      string
	rescheduling *booking.AppointmentResponse
}

// NewBookingForm creates the booking view with its validation rules.
func NewBookingForm(deps Deps) *BookingForm {
	b := &BookingForm{deps: deps.withDefaults()}
	b.form = NewForm().
		Add(FieldBranchID, Required()).
		Add(FieldAppointmentDate, Required(), Check("daterange", b.inWindow, "")).
		Add(FieldStartTime, Required()).
		Add(FieldCustomerName, Required(), MinLength(2), MaxLength(100)).
		Add(FieldCustomerEmail, Required(), Email(booking.ValidEmail)).
		Add(FieldCustomerPhone, Required(), Pattern(phoneFieldPattern))
	return b
}

// Form exposes the field state.
func (b *BookingForm) Form() *Form { return b.form }

// DateBounds returns the first and last bookable dates as YYYY-MM-DD.
func (b *BookingForm) DateBounds() (string, string) {
	today := booking.Today(b.deps.Clock.Now())
	last := today.AddDate(0, 0, b.deps.BookingWindowDays)
	return today.Format(booking.DateLayout), last.Format(booking.DateLayout)
}

func (b *BookingForm) inWindow(v string) bool {
	now := b.deps.Clock.Now()
	day, ok := booking.ParseDate(v, now.Location())
	if !ok {
		return false
	}
	today := booking.Today(now)
	return !day.Before(today) && !day.After(today.AddDate(0, 0, b.deps.BookingWindowDays))
}

// ErrorText returns the message for field, including the date window text
// the generic messages do not cover.
func (b *BookingForm) ErrorText(name string) string {
	text := b.form.ErrorText(name)
	if text != "" || name != FieldAppointmentDate {
		return text
	}
	for _, e := range b.form.Errors(name) {
		if e.Kind == "daterange" {
			lo, hi := b.DateBounds()
			return fmt.Sprintf("Please choose a date between %s and %s", lo, hi)
		}
	}
	return ""
}

// Init loads branches and prefills the customer from the signed-in profile.
func (b *BookingForm) Init(ctx context.Context) error {
	b.prefillFromProfile()

	b.mu.Lock()
	b.loading = true
	b.mu.Unlock()

	branches, err := b.deps.API.Branches(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		b.err = branchesFailed
		return err
	}
	b.branches = branches
	b.applyRescheduleBranchLocked()
	return nil
}

func (b *BookingForm) prefillFromProfile() {
	if b.deps.Session == nil {
		return
	}
	p := b.deps.Session.Profile()
	if p == nil || p.Username == "" {
		return
	}
	b.form.Patch(FieldCustomerName, p.Username)
	if p.Email != "" {
		b.form.Patch(FieldCustomerEmail, p.Email)
	}
}

// PrefillReschedule copies the customer details of an existing appointment
// and preselects its branch once branches are known.
func (b *BookingForm) PrefillReschedule(appt booking.AppointmentResponse) {
	b.form.Patch(FieldCustomerName, appt.CustomerName)
	b.form.Patch(FieldCustomerEmail, appt.CustomerEmail)
	b.form.Patch(FieldCustomerPhone, appt.CustomerPhone)

	b.mu.Lock()
	defer b.mu.Unlock()
	cp := appt
	b.rescheduling = &cp
	b.applyRescheduleBranchLocked()
}

// Rescheduling returns the appointment being replaced, if any.
func (b *BookingForm) Rescheduling() *booking.AppointmentResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rescheduling == nil {
		return nil
	}
	cp := *b.rescheduling
	return &cp
}

func (b *BookingForm) applyRescheduleBranchLocked() {
	if b.rescheduling == nil || b.form.Value(FieldBranchID) != "" {
		return
	}
	for _, br := range b.branches {
		if strings.EqualFold(br.Name, b.rescheduling.BranchName) {
			b.form.Patch(FieldBranchID, br.ID.String())
			return
		}
	}
}

// SetBranch selects a branch and refreshes the slot list.
func (b *BookingForm) SetBranch(ctx context.Context, branchID string) error {
	b.form.Set(FieldBranchID, branchID)
	return b.refreshSlots(ctx)
}

// SetDate selects a date and refreshes the slot list.
func (b *BookingForm) SetDate(ctx context.Context, date string) error {
	b.form.Set(FieldAppointmentDate, date)
	return b.refreshSlots(ctx)
}

// Set changes any other field.
func (b *BookingForm) Set(name, value string) { b.form.Set(name, value) }

// refreshSlots clears the chosen time and fetches the available slots for the
// current branch and date. Each fetch is stamped; a response that arrives
// after a newer fetch started is dropped.
func (b *BookingForm) refreshSlots(ctx context.Context) error {
	branchID := b.form.Value(FieldBranchID)
	date := b.form.Value(FieldAppointmentDate)

	b.mu.Lock()
	b.slotGen++
	gen := b.slotGen
	b.slots = nil
	if branchID == "" || date == "" {
		b.loadingSlots = false
		b.mu.Unlock()
		return nil
	}
	b.loadingSlots = true
	b.mu.Unlock()
	b.form.Patch(FieldStartTime, "")

	slots, err := b.deps.API.AvailableTimeSlots(ctx, branchID, date)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.slotGen {
		return nil
	}
	b.loadingSlots = false
	if err != nil {
		if !isCanceled(err) {
			b.deps.Logger.Warn("failed to load available slots", "branch_id", branchID, "date", date, "error", err)
		}
		return err
	}
	available := make([]booking.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	b.slots = available
	return nil
}

// Submit validates and books. An invalid form marks every field touched and
// returns ErrInvalidForm without calling the backend.
func (b *BookingForm) Submit(ctx context.Context) (*booking.AppointmentResponse, error) {
	if !b.form.Valid() {
		b.form.MarkAllTouched()
		b.mu.Lock()
		b.err = bookingFormIncomplete
		b.mu.Unlock()
		return nil, ErrInvalidForm
	}

	branchID, err := strconv.ParseInt(b.form.Value(FieldBranchID), 10, 64)
	if err != nil {
		b.mu.Lock()
		b.err = bookingFormIncomplete
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: branch id %q is not numeric", ErrInvalidForm, b.form.Value(FieldBranchID))
	}
	req := booking.AppointmentRequest{
		BranchID:        branchID,
		CustomerName:    b.form.Value(FieldCustomerName),
		CustomerEmail:   b.form.Value(FieldCustomerEmail),
		CustomerPhone:   b.form.Value(FieldCustomerPhone),
		AppointmentDate: b.form.Value(FieldAppointmentDate),
		StartTime:       b.form.Value(FieldStartTime),
	}

	b.mu.Lock()
	b.loading = true
	b.err = ""
	b.success = ""
	b.mu.Unlock()

	appt, err := b.deps.API.CreateAppointment(ctx, req)

	b.mu.Lock()
	b.loading = false
	if err != nil {
		b.err = backendMessage(err)
		if b.err == "" {
			b.err = bookingFailed
		}
		b.mu.Unlock()
		if pipeline.StatusIs(err, http.StatusUnauthorized, http.StatusForbidden) {
			b.deps.Navigator.Navigate(LoginRouteReturningTo(RouteAppointments))
		}
		return nil, err
	}
	b.success = BookingSucceeded
	b.mu.Unlock()

	b.deps.Logger.Info("appointment booked", "reference", appt.BookingReference)
	b.deps.success(BookingSucceeded)
	b.deps.Navigator.Navigate(ConfirmationRoute(appt.BookingReference))
	return appt, nil
}

// Branches returns the loaded branches.
func (b *BookingForm) Branches() []booking.Branch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]booking.Branch(nil), b.branches...)
}

// SelectedBranch returns the branch matching the chosen id.
func (b *BookingForm) SelectedBranch() (booking.Branch, bool) {
	id := b.form.Value(FieldBranchID)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, br := range b.branches {
		if br.ID.String() == id {
			return br, true
		}
	}
	return booking.Branch{}, false
}

// AvailableSlots returns the bookable slots for the current branch and date.
func (b *BookingForm) AvailableSlots() []booking.TimeSlot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]booking.TimeSlot(nil), b.slots...)
}

// LoadingSlots reports whether a slot fetch is outstanding.
func (b *BookingForm) LoadingSlots() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadingSlots
}

// Loading reports whether branches are loading or a submit is in progress.
func (b *BookingForm) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Error is the message shown above the form.
func (b *BookingForm) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Success is the confirmation shown after booking.
func (b *BookingForm) Success() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.success
}
