package mockapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/clock"
)

// Schedule is the slot grid every branch offers each day.
type Schedule struct {
	Open       time.Duration // offset from midnight
	Close      time.Duration
	Step       time.Duration
	Capacity   int
	WindowDays int
}

// DefaultSchedule opens 09:00 to 17:00 in half-hour slots of two seats,
// bookable up to 90 days ahead.
var DefaultSchedule = Schedule{
	Open:       9 * time.Hour,
	Close:      17 * time.Hour,
	Step:       30 * time.Minute,
	Capacity:   2,
	WindowDays: 90,
}

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
}

// IsAdmin reports whether u may see every appointment.
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, "ADMIN") {
			return true
		}
	}
	return false
}

type branchRecord struct {
	booking.Branch
	id  int64
	loc *time.Location
}

type slotKey struct {
	branchID int64
	date     string
	start    string
}

type slotState struct {
	id     int64
	booked int
}

type appointmentRecord struct {
	booking.AppointmentResponse
	owner    string
	branchID int64
	start    time.Time
}

// Store is the in-memory state of the mock backend. It is safe for
// concurrent use.
type Store struct {
	mu           sync.RWMutex
	clock        clock.Clock
	schedule     Schedule
	users        map[string]*User
	branches     []*branchRecord
	slots        map[slotKey]*slotState
	appointments map[string]*appointmentRecord
	nextSlotID   int64
	nextApptID   int64
	hashCost     int
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) StoreOption {
	return func(s *Store) { s.hashCost = cost }
}

// NewStore creates a store serving branches on schedule.
func NewStore(clk clock.Clock, schedule Schedule, branches []booking.Branch, opts ...StoreOption) (*Store, error) {
	if clk == nil {
		clk = clock.New()
	}
	if schedule.Step <= 0 || schedule.Close <= schedule.Open || schedule.Capacity < 1 {
		return nil, fmt.Errorf("mockapi: invalid schedule %+v", schedule)
	}
	s := &Store{
		clock:        clk,
		schedule:     schedule,
		users:        make(map[string]*User),
		slots:        make(map[slotKey]*slotState),
		appointments: make(map[string]*appointmentRecord),
		hashCost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, b := range branches {
		id, ok := b.ID.Int64()
		if !ok {
			return nil, fmt.Errorf("mockapi: branch %q has non-numeric id %q", b.Name, b.ID)
		}
		loc, err := time.LoadLocation(b.Timezone)
		if err != nil || b.Timezone == "" {
			loc = time.UTC
		}
		s.branches = append(s.branches, &branchRecord{Branch: b, id: id, loc: loc})
	}
	return s, nil
}

// AddUser registers a user with a bcrypt-hashed password.
func (s *Store) AddUser(username, email, password string, roles ...string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	fe := fieldErrors{}
	if err := checkStruct(registrationInput{Username: username, Email: email, Password: password}, fe); err != nil {
		return nil, err
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("mockapi: hash password: %w", err)
	}
	if len(roles) == 0 {
		roles = []string{"USER"}
	}
	u := &User{Username: username, Email: email, PasswordHash: string(hash), Roles: roles}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if _, exists := s.users[key]; exists {
		return nil, ErrUserExists
	}
	u.ID = int64(len(s.users) + 1)
	s.users[key] = u
	return u, nil
}

// Authenticate checks a username and password.
func (s *Store) Authenticate(username, password string) (*User, error) {
	u, err := s.User(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// User looks up a user by name, case-insensitively.
func (s *Store) User(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

// Branches lists every branch in seed order.
func (s *Store) Branches() []booking.Branch {
	out := make([]booking.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		out = append(out, b.Branch)
	}
	return out
}

func (s *Store) branch(id int64) (*branchRecord, bool) {
	for _, b := range s.branches {
		if b.id == id {
			return b, true
		}
	}
	return nil, false
}

// slotStarts returns every start time of the daily grid as HH:MM:SS.
func (s *Store) slotStarts() []string {
	var out []string
	for t := s.schedule.Open; t+s.schedule.Step <= s.schedule.Close; t += s.schedule.Step {
		out = append(out, clockTime(t))
	}
	return out
}

func clockTime(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	sec := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

func (s *Store) onGrid(start string) bool {
	for _, st := range s.slotStarts() {
		if st == start {
			return true
		}
	}
	return false
}

func slotStart(b *branchRecord, date, start string) (time.Time, error) {
	return time.ParseInLocation(booking.DateLayout+" "+booking.TimeLayout, date+" "+start, b.loc)
}

func (s *Store) endTime(start string) string {
	t, err := time.Parse(booking.TimeLayout, start)
	if err != nil {
		return start
	}
	return t.Add(s.schedule.Step).Format(booking.TimeLayout)
}

// slotLocked returns the slot state, creating it on first use.
func (s *Store) slotLocked(key slotKey) *slotState {
	st, ok := s.slots[key]
	if !ok {
		s.nextSlotID++
		st = &slotState{id: s.nextSlotID}
		s.slots[key] = st
	}
	return st
}

// AvailableSlots lists the bookable slots at branchID on date. Slots that
// have started or are full are left out.
func (s *Store) AvailableSlots(branchID int64, date string) ([]booking.TimeSlot, error) {
	b, ok := s.branch(branchID)
	if !ok {
		return nil, ErrNotFound
	}
	if err := checkDate("date", date); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]booking.TimeSlot, 0)
	for _, start := range s.slotStarts() {
		at, err := slotStart(b, date, start)
		if err != nil || !at.After(now) {
			continue
		}
		st := s.slotLocked(slotKey{branchID: branchID, date: date, start: start})
		if st.booked >= s.schedule.Capacity {
			continue
		}
		slots = append(slots, booking.TimeSlot{
			ID:          st.id,
			BranchID:    branchID,
			BranchName:  b.Name,
			SlotDate:    date,
			StartTime:   start,
			EndTime:     s.endTime(start),
			Capacity:    s.schedule.Capacity,
			BookedCount: st.booked,
			Available:   true,
		})
	}
	return slots, nil
}

func (s *Store) validateRequest(req booking.AppointmentRequest, now time.Time) (*branchRecord, time.Time, error) {
	fe := fieldErrors{}
	in := bookingInput{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
	}
	if err := checkStruct(in, fe); err != nil {
		return nil, time.Time{}, err
	}
	b, ok := s.branch(req.BranchID)
	if !ok {
		fe.add("branchId", "Branch not found")
	}
	if !s.onGrid(req.StartTime) {
		fe.add("startTime", "Start time is not a valid slot")
	}
	if err := fe.err(); err != nil {
		return nil, time.Time{}, err
	}

	at, err := slotStart(b, req.AppointmentDate, req.StartTime)
	if err != nil {
		return nil, time.Time{}, &ValidationError{Fields: map[string]string{"startTime": "Start time is not a valid slot"}}
	}
	if !at.After(now) {
		fe.add("appointmentDate", "Appointment must be in the future")
	} else if s.schedule.WindowDays > 0 && at.After(now.AddDate(0, 0, s.schedule.WindowDays+1)) {
		fe.add("appointmentDate", fmt.Sprintf("Appointments can be booked up to %d days ahead", s.schedule.WindowDays))
	}
	if err := fe.err(); err != nil {
		return nil, time.Time{}, err
	}
	return b, at, nil
}

// Book reserves a seat in the requested slot for owner.
func (s *Store) Book(owner string, req booking.AppointmentRequest) (*booking.AppointmentResponse, error) {
	now := s.clock.Now()
	b, at, err := s.validateRequest(req, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.slotLocked(slotKey{branchID: b.id, date: req.AppointmentDate, start: req.StartTime})
	if st.booked >= s.schedule.Capacity {
		return nil, ErrSlotFull
	}
	st.booked++
	s.nextApptID++

	rec := &appointmentRecord{
		AppointmentResponse: booking.AppointmentResponse{
			ID:               s.nextApptID,
			CustomerName:     strings.TrimSpace(req.CustomerName),
			CustomerEmail:    req.CustomerEmail,
			CustomerPhone:    req.CustomerPhone,
			BookingReference: newReference(),
			Status:           string(booking.StatusConfirmed),
			AppointmentDate:  req.AppointmentDate,
			StartTime:        req.StartTime,
			EndTime:          s.endTime(req.StartTime),
			BranchName:       b.Name,
			BranchAddress:    b.Address,
		},
		owner:    strings.ToLower(owner),
		branchID: b.id,
		start:    at,
	}
	s.appointments[rec.BookingReference] = rec
	resp := rec.AppointmentResponse
	return &resp, nil
}

func newReference() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Appointments lists the appointments owned by owner, soonest first.
func (s *Store) Appointments(owner string) []booking.AppointmentResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner = strings.ToLower(owner)
	recs := make([]*appointmentRecord, 0)
	for _, rec := range s.appointments {
		if rec.owner == owner {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].start.Equal(recs[j].start) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].start.Before(recs[j].start)
	})
	out := make([]booking.AppointmentResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.AppointmentResponse)
	}
	return out
}

func (s *Store) visibleLocked(reference string, caller *User) (*appointmentRecord, error) {
	rec, ok := s.appointments[reference]
	if !ok {
		return nil, ErrNotFound
	}
	if caller == nil || (rec.owner != strings.ToLower(caller.Username) && !caller.IsAdmin()) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Appointment returns one appointment visible to caller.
func (s *Store) Appointment(reference string, caller *User) (*booking.AppointmentResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.visibleLocked(reference, caller)
	if err != nil {
		return nil, err
	}
	resp := rec.AppointmentResponse
	return &resp, nil
}

// Cancel marks an appointment cancelled and frees its seat.
func (s *Store) Cancel(reference string, caller *User) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.visibleLocked(reference, caller)
	if err != nil {
		return err
	}
	if booking.ParseStatus(rec.Status) == booking.StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !rec.start.After(now) {
		return ErrPastAppointment
	}
	rec.Status = string(booking.StatusCancelled)
	if st, ok := s.slots[slotKey{branchID: rec.branchID, date: rec.AppointmentDate, start: rec.StartTime}]; ok && st.booked > 0 {
		st.booked--
	}
	return nil
}
