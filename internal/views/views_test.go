package views

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/clock"
	"github.com/wolfman30/branch-booking/internal/notify"
	"github.com/wolfman30/branch-booking/internal/pipeline"
	"github.com/wolfman30/branch-booking/internal/session"
)

type fakeAPI struct {
	mu sync.Mutex

	branches    []booking.Branch
	branchesErr error
	slotsFn     func(branchID, date string) ([]booking.TimeSlot, error)
	createReq   *booking.AppointmentRequest
	createResp  *booking.AppointmentResponse
	createErr   error
	mine        []booking.AppointmentResponse
	mineErr     error
	mineCalls   int
	byRef       map[string]booking.AppointmentResponse
	byRefErr    error
	cancelErr   error
	cancelled   []string
	calls       int
}

func (f *fakeAPI) Branches(context.Context) ([]booking.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.branches, f.branchesErr
}

func (f *fakeAPI) AvailableTimeSlots(_ context.Context, branchID, date string) ([]booking.TimeSlot, error) {
	f.mu.Lock()
	f.calls++
	fn := f.slotsFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(branchID, date)
}

func (f *fakeAPI) CreateAppointment(_ context.Context, req booking.AppointmentRequest) (*booking.AppointmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.createReq = &req
	return f.createResp, f.createErr
}

func (f *fakeAPI) MyAppointments(context.Context) ([]booking.AppointmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.mineCalls++
	return f.mine, f.mineErr
}

func (f *fakeAPI) AppointmentByReference(_ context.Context, ref string) (*booking.AppointmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.byRefErr != nil {
		return nil, f.byRefErr
	}
	a := f.byRef[ref]
	return &a, nil
}

func (f *fakeAPI) CancelAppointment(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, ref)
	if a, ok := f.byRef[ref]; ok {
		a.Status = "CANCELLED"
		f.byRef[ref] = a
	}
	return nil
}

type fakeSession struct {
	authenticated bool
	profile       *session.UserProfile
	loginErr      error
	logins        int
}

func (s *fakeSession) IsAuthenticated() bool { return s.authenticated }
func (s *fakeSession) Profile() *session.UserProfile { return s.profile }
func (s *fakeSession) Login(context.Context, session.Credentials) (*session.UserProfile, error) {
	s.logins++
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	s.authenticated = true
	return s.profile, nil
}

type harness struct {
	api     *fakeAPI
	sess    *fakeSession
	nav     *RecordingNavigator
	ch      *notify.Channel
	prompts []string
	answer  bool
	deps    Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	h := &harness{
		api:    &fakeAPI{byRef: map[string]booking.AppointmentResponse{}},
		sess:   &fakeSession{},
		nav:    &RecordingNavigator{},
		ch:     notify.NewChannel(notify.WithClock(fake)),
		answer: true,
	}
	h.deps = Deps{
		API:       h.api,
		Session:   h.sess,
		Navigator: h.nav,
		Notifier:  h.ch,
		Clock:     fake,
		Confirmer: ConfirmFunc(func(p string) bool {
			h.prompts = append(h.prompts, p)
			return h.answer
		}),
	}
	return h
}

func (h *harness) lastMessage(t *testing.T) *notify.Message {
	t.Helper()
	msgs := h.ch.Messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func TestLoginInvalidSubmitMakesNoCall(t *testing.T) {
	h := newHarness(t)
	view := NewLogin(h.deps, "")

	err := view.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Zero(t, h.sess.logins)
	assert.True(t, view.Form().Touched(FieldUsername))
	assert.True(t, view.Form().Touched(FieldPassword))
	assert.True(t, view.Form().Invalid(FieldUsername))
	assert.Equal(t, "This field is required", view.Form().ErrorText(FieldPassword))
	assert.Empty(t, h.nav.History())
}

func TestLoginSuccessNavigates(t *testing.T) {
	h := newHarness(t)
	view := NewLogin(h.deps, "")
	view.Form().Set(FieldUsername, "jane")
	view.Form().Set(FieldPassword, "pw")

	require.NoError(t, view.Submit(context.Background()))
	last, ok := h.nav.Last()
	require.True(t, ok)
	assert.Equal(t, RouteAppointments, last.Route)
	assert.False(t, view.Loading())
}

func TestLoginHonoursReturnURL(t *testing.T) {
	h := newHarness(t)
	view := NewLogin(h.deps, ReturnURLFrom(LoginRouteReturningTo(RouteMyAppointments)))
	view.Form().Set(FieldUsername, "jane")
	view.Form().Set(FieldPassword, "pw")

	require.NoError(t, view.Submit(context.Background()))
	last, _ := h.nav.Last()
	assert.Equal(t, RouteMyAppointments, last.Route)
}

func TestLoginFailureMessages(t *testing.T) {
	h := newHarness(t)
	view := NewLogin(h.deps, "")
	view.Form().Set(FieldUsername, "jane")
	view.Form().Set(FieldPassword, "bad")

	h.sess.loginErr = &pipeline.HTTPError{Status: 401, ErrorDescription: "Invalid username or password"}
	require.Error(t, view.Submit(context.Background()))
	assert.Equal(t, "Invalid username or password", view.Error())

	h.sess.loginErr = errors.New("connection refused")
	require.Error(t, view.Submit(context.Background()))
	assert.Equal(t, "Login failed. Please check your credentials.", view.Error())
	assert.Empty(t, h.nav.History())
}

func TestLoginInitRedirectsAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.sess.authenticated = true
	assert.True(t, NewLogin(h.deps, "").Init())
	last, _ := h.nav.Last()
	assert.Equal(t, RouteAppointments, last.Route)
}

func fillValidBooking(t *testing.T, h *harness, form *BookingForm) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, form.SetBranch(ctx, "1"))
	require.NoError(t, form.SetDate(ctx, "2026-05-05"))
	form.Set(FieldStartTime, "09:00:00")
	form.Set(FieldCustomerName, "Jane Doe")
	form.Set(FieldCustomerEmail, "jane@example.com")
	form.Set(FieldCustomerPhone, "+1 555 123 4567")
}

func TestBookingFormPrefillAndBranches(t *testing.T) {
	h := newHarness(t)
	h.sess.profile = &session.UserProfile{Username: "jane", Email: "jane@example.com"}
	h.api.branches = []booking.Branch{{ID: "1", Name: "Downtown"}}

	form := NewBookingForm(h.deps)
	require.NoError(t, form.Init(context.Background()))
	assert.Equal(t, "jane", form.Form().Value(FieldCustomerName))
	assert.Equal(t, "jane@example.com", form.Form().Value(FieldCustomerEmail))
	assert.Len(t, form.Branches(), 1)
	assert.False(t, form.Form().Invalid(FieldCustomerName), "prefill does not mark dirty")

	lo, hi := form.DateBounds()
	assert.Equal(t, "2026-05-04", lo)
	assert.Equal(t, "2026-08-02", hi)
}

func TestBookingFormBranchLoadFailure(t *testing.T) {
	h := newHarness(t)
	h.api.branchesErr = errors.New("down")
	form := NewBookingForm(h.deps)
	require.Error(t, form.Init(context.Background()))
	assert.Equal(t, "Failed to load branches. Please try again later.", form.Error())
}

func TestBookingFormKeepsOnlyAvailableSlots(t *testing.T) {
	h := newHarness(t)
	h.api.slotsFn = func(branchID, date string) ([]booking.TimeSlot, error) {
		return []booking.TimeSlot{
			{ID: 1, StartTime: "09:00:00", Available: true},
			{ID: 2, StartTime: "09:30:00", Available: false},
		}, nil
	}
	form := NewBookingForm(h.deps)
	ctx := context.Background()

	require.NoError(t, form.SetBranch(ctx, "1"))
	assert.Empty(t, form.AvailableSlots(), "no fetch without a date")

	require.NoError(t, form.SetDate(ctx, "2026-05-05"))
	slots := form.AvailableSlots()
	require.Len(t, slots, 1)
	assert.Equal(t, int64(1), slots[0].ID)

	form.Set(FieldStartTime, "09:00:00")
	require.NoError(t, form.SetDate(ctx, "2026-05-06"))
	assert.Empty(t, form.Form().Value(FieldStartTime), "changing date clears the chosen time")
}

func TestBookingFormDropsStaleSlotResponse(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	started := make(chan struct{})
	h.api.slotsFn = func(branchID, date string) ([]booking.TimeSlot, error) {
		if date == "2026-05-05" {
			close(started)
			<-release
			return []booking.TimeSlot{{ID: 5, Available: true}}, nil
		}
		return []booking.TimeSlot{{ID: 6, Available: true}}, nil
	}
	form := NewBookingForm(h.deps)
	form.Form().Set(FieldBranchID, "1")
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- form.SetDate(ctx, "2026-05-05") }()
	<-started
	require.NoError(t, form.SetDate(ctx, "2026-05-06"))
	close(release)
	require.NoError(t, <-done)

	slots := form.AvailableSlots()
	require.Len(t, slots, 1)
	assert.Equal(t, int64(6), slots[0].ID)
	assert.False(t, form.LoadingSlots())
}

func TestBookingFormValidation(t *testing.T) {
	h := newHarness(t)
	form := NewBookingForm(h.deps)
	f := form.Form()

	f.Set(FieldCustomerName, "J")
	assert.Equal(t, "Minimum length is 2 characters", f.ErrorText(FieldCustomerName))
	f.Set(FieldCustomerEmail, "not-an-email")
	assert.Equal(t, "Please enter a valid email address", f.ErrorText(FieldCustomerEmail))
	f.Set(FieldCustomerPhone, "12345")
	assert.Equal(t, "Please enter a valid phone number", f.ErrorText(FieldCustomerPhone))
	f.Set(FieldAppointmentDate, "2026-05-03")
	assert.Equal(t, "Please choose a date between 2026-05-04 and 2026-08-02", form.ErrorText(FieldAppointmentDate))
	f.Set(FieldAppointmentDate, "2026-08-02")
	assert.Empty(t, form.ErrorText(FieldAppointmentDate))
	f.Set(FieldAppointmentDate, "2026-08-03")
	assert.NotEmpty(t, form.ErrorText(FieldAppointmentDate))

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, "Please fill in all required fields correctly.", form.Error())
	assert.Nil(t, h.api.createReq)
	assert.True(t, f.Touched(FieldStartTime))
}

func TestBookingFormSubmitSuccess(t *testing.T) {
	h := newHarness(t)
	h.api.createResp = &booking.AppointmentResponse{BookingReference: "REF-9"}
	form := NewBookingForm(h.deps)
	fillValidBooking(t, h, form)

	appt, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "REF-9", appt.BookingReference)
	assert.Equal(t, int64(1), h.api.createReq.BranchID)
	assert.Equal(t, "09:00:00", h.api.createReq.StartTime)
	assert.Equal(t, BookingSucceeded, form.Success())
	assert.Equal(t, BookingSucceeded, h.lastMessage(t).Content)

	last, _ := h.nav.Last()
	assert.Equal(t, "/confirmation/REF-9", last.Route)
}

func TestBookingFormSubmitErrors(t *testing.T) {
	h := newHarness(t)
	form := NewBookingForm(h.deps)
	fillValidBooking(t, h, form)
	ctx := context.Background()

	h.api.createErr = &pipeline.HTTPError{Status: 409, Message: "Time slot is fully booked"}
	_, err := form.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, "Time slot is fully booked", form.Error())

	h.api.createErr = &pipeline.HTTPError{Status: 500}
	_, err = form.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, "Failed to create appointment. Please try again.", form.Error())
	assert.Empty(t, h.nav.History())

	h.api.createErr = &pipeline.HTTPError{Status: 403}
	_, err = form.Submit(ctx)
	require.Error(t, err)
	last, _ := h.nav.Last()
	assert.Equal(t, RouteLogin, last.Route[:len(RouteLogin)])
	assert.Equal(t, RouteAppointments, ReturnURLFrom(last.Route))
}

func TestBookingFormReschedulePrefill(t *testing.T) {
	h := newHarness(t)
	h.api.branches = []booking.Branch{{ID: "1", Name: "Downtown"}, {ID: "2", Name: "Uptown"}}
	form := NewBookingForm(h.deps)
	form.PrefillReschedule(booking.AppointmentResponse{
		BookingReference: "REF-1",
		CustomerName:     "Jane Doe",
		CustomerEmail:    "jane@example.com",
		CustomerPhone:    "5551234567",
		BranchName:       "uptown",
	})
	require.NoError(t, form.Init(context.Background()))

	assert.Equal(t, "2", form.Form().Value(FieldBranchID))
	assert.Equal(t, "5551234567", form.Form().Value(FieldCustomerPhone))
	require.NotNil(t, form.Rescheduling())
	br, ok := form.SelectedBranch()
	require.True(t, ok)
	assert.Equal(t, "Uptown", br.Name)
}

func TestAppointmentListCancelFlow(t *testing.T) {
	h := newHarness(t)
	h.api.mine = []booking.AppointmentResponse{{BookingReference: "REF-1", Status: "CONFIRMED", AppointmentDate: "2026-05-10"}}
	list := NewAppointmentList(h.deps)
	ctx := context.Background()
	require.NoError(t, list.Load(ctx))
	require.Len(t, list.Appointments(), 1)
	assert.True(t, list.CanCancel(list.Appointments()[0]))

	h.answer = false
	attempted, err := list.Cancel(ctx, "REF-1")
	require.NoError(t, err)
	assert.False(t, attempted)
	assert.Empty(t, h.api.cancelled)
	assert.Equal(t, []string{CancelPrompt}, h.prompts)

	h.answer = true
	attempted, err = list.Cancel(ctx, "REF-1")
	require.NoError(t, err)
	assert.True(t, attempted)
	assert.Equal(t, []string{"REF-1"}, h.api.cancelled)
	assert.Equal(t, 2, h.api.mineCalls, "list reloads after cancel")
	assert.Equal(t, CancelSucceeded, h.lastMessage(t).Content)
	assert.False(t, list.IsCanceling("REF-1"))
}

func TestCancelWithoutConfirmerIsDeclined(t *testing.T) {
	h := newHarness(t)
	h.api.mine = []booking.AppointmentResponse{{BookingReference: "REF-1", Status: "CONFIRMED", AppointmentDate: "2026-05-10"}}
	h.api.byRef["REF-1"] = h.api.mine[0]
	h.deps.Confirmer = nil
	ctx := context.Background()

	list := NewAppointmentList(h.deps)
	attempted, err := list.Cancel(ctx, "REF-1")
	require.NoError(t, err)
	assert.False(t, attempted)

	detail := NewAppointmentDetail(h.deps, "REF-1")
	require.NoError(t, detail.Load(ctx))
	attempted, err = detail.Cancel(ctx)
	require.NoError(t, err)
	assert.False(t, attempted)

	assert.Empty(t, h.api.cancelled)
}

func TestAppointmentListCancelErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"backend message", &pipeline.HTTPError{Status: 400, Message: "Already cancelled"}, "Already cancelled"},
		{"bad request", &pipeline.HTTPError{Status: 400}, "Cannot cancel this appointment. It may be already cancelled or in the past."},
		{"other", &pipeline.HTTPError{Status: 500}, "Failed to cancel appointment. Please try again."},
		{"network", errors.New("dial"), "Failed to cancel appointment. Please try again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.api.cancelErr = tc.err
			list := NewAppointmentList(h.deps)

			attempted, err := list.Cancel(context.Background(), "REF-1")
			assert.True(t, attempted)
			require.Error(t, err)
			msg := h.lastMessage(t)
			assert.Equal(t, tc.want, msg.Content)
			assert.Equal(t, notify.TypeError, msg.Type)
			assert.False(t, list.IsCanceling("REF-1"))
		})
	}
}

func TestAppointmentListLoadFailure(t *testing.T) {
	h := newHarness(t)
	h.api.mineErr = errors.New("boom")
	list := NewAppointmentList(h.deps)
	require.Error(t, list.Load(context.Background()))
	assert.Equal(t, "Failed to load your appointments. Please try again.", list.Error())
	assert.Equal(t, list.Error(), h.lastMessage(t).Content)
}

func TestAppointmentListNavigation(t *testing.T) {
	h := newHarness(t)
	list := NewAppointmentList(h.deps)
	appt := booking.AppointmentResponse{BookingReference: "REF-2", Status: "CONFIRMED"}

	list.ViewDetails("REF-2")
	list.Reschedule(appt)

	history := h.nav.History()
	require.Len(t, history, 2)
	assert.Equal(t, "/appointment-details/REF-2", history[0].Route)
	assert.Equal(t, RouteAppointments, history[1].Route)
	assert.Equal(t, RescheduleState{Appointment: appt}, history[1].State)
}

func TestAppointmentDetail(t *testing.T) {
	h := newHarness(t)
	h.api.byRef["REF-1"] = booking.AppointmentResponse{
		BookingReference: "REF-1",
		Status:           "CONFIRMED",
		AppointmentDate:  "2026-05-04",
		BranchName:       "Downtown",
	}
	detail := NewAppointmentDetail(h.deps, "REF-1")
	ctx := context.Background()
	require.NoError(t, detail.Load(ctx))
	assert.True(t, detail.CanCancel())
	assert.True(t, detail.CanReschedule())

	attempted, err := detail.Cancel(ctx)
	require.NoError(t, err)
	assert.True(t, attempted)
	assert.Equal(t, []string{"Are you sure you want to cancel your appointment at Downtown on Monday, May 4, 2026?"}, h.prompts)
	assert.Equal(t, booking.StatusCancelled, detail.Appointment().State())
	assert.False(t, detail.CanCancel())
	assert.False(t, detail.Canceling())

	detail.Back()
	last, _ := h.nav.Last()
	assert.Equal(t, RouteMyAppointments, last.Route)
}

func TestAppointmentDetailLoadErrors(t *testing.T) {
	h := newHarness(t)
	missing := NewAppointmentDetail(h.deps, "")
	require.Error(t, missing.Load(context.Background()))
	assert.Equal(t, "No appointment reference provided", missing.Error())
	assert.Zero(t, h.api.calls)

	h.api.byRefErr = &pipeline.HTTPError{Status: 404}
	detail := NewAppointmentDetail(h.deps, "REF-X")
	require.Error(t, detail.Load(context.Background()))
	assert.Equal(t, "Failed to load appointment details. Please try again.", detail.Error())

	attempted, err := detail.Cancel(context.Background())
	assert.False(t, attempted)
	assert.NoError(t, err)
}
