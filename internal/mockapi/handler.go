package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/clock"
	"github.com/wolfman30/branch-booking/internal/http/middleware"
	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/internal/session"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Store    *Store
	Secret   string
	TokenTTL time.Duration
	Clock    clock.Clock
	Logger   *logging.Logger
	Metrics  *metrics.ServerMetrics
}

// Handler serves the auth and booking endpoints.
type Handler struct {
	store   *Store
	secret  string
	ttl     time.Duration
	clock   clock.Clock
	logger  *logging.Logger
	metrics *metrics.ServerMetrics
}

// NewHandler creates a handler over cfg.Store.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		store:   cfg.Store,
		secret:  cfg.Secret,
		ttl:     cfg.TokenTTL,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if h.ttl <= 0 {
		h.ttl = 8 * time.Hour
	}
	if h.clock == nil {
		h.clock = clock.New()
	}
	if h.logger == nil {
		h.logger = logging.Default()
	}
	return h
}

// Secret is the key tokens are signed with.
func (h *Handler) Secret() string { return h.secret }

// Now is the handler's time source, shared with token verification.
func (h *Handler) Now() time.Time { return h.clock.Now() }

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type userBody struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	user, err := h.store.Authenticate(creds.Username, creds.Password)
	h.metrics.ObserveLogin(err == nil)
	if err != nil {
		h.logger.Info("login rejected", "username", creds.Username)
		middleware.WriteError(w, http.StatusUnauthorized, "invalid_grant", "Invalid username or password")
		return
	}
	h.writeToken(w, http.StatusOK, user)
}

// Register handles POST /auth/register and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	user, err := h.store.AddUser(req.Username, req.Email, req.Password)
	if err != nil {
		h.writeStoreError(w, err, "register")
		return
	}
	h.logger.Info("user registered", "username", user.Username)
	h.writeToken(w, http.StatusCreated, user)
}

func (h *Handler) writeToken(w http.ResponseWriter, status int, user *User) {
	token, err := middleware.IssueToken(h.secret, user.Username, user.Email, user.Roles, h.clock.Now(), h.ttl)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "server_error", "Could not issue token")
		return
	}
	middleware.WriteJSON(w, status, session.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Username:    user.Username,
		Email:       user.Email,
		Roles:       user.Roles,
	})
}

// caller resolves the signed-in user, writing 401 when there is none.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*User, bool) {
	claims, ok := middleware.UserClaimsFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return nil, false
	}
	user, err := h.store.User(claims.Subject)
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "invalid_token", "User no longer exists")
		return nil, false
	}
	return user, true
}

// CurrentUser handles GET /auth/user.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, userBody{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.Roles,
	})
}

// ListBranches handles GET /api/branches.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Branches())
}

// AvailableSlots handles GET /api/timeslots/available?branchId=&date=.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	branchID, err := strconv.ParseInt(strings.TrimSpace(q.Get("branchId")), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request", "branchId must be a number")
		return
	}
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request", "date is required")
		return
	}
	slots, err := h.store.AvailableSlots(branchID, date)
	if err != nil {
		h.writeStoreError(w, err, "slots")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, slots)
}

// CreateAppointment handles POST /api/appointments.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req booking.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	appt, err := h.store.Book(user.Username, req)
	if err != nil {
		h.metrics.ObserveAppointment("create", outcome(err))
		h.writeStoreError(w, err, "appointment")
		return
	}
	h.metrics.ObserveAppointment("create", "success")
	h.logger.Info("appointment created",
		"reference", appt.BookingReference,
		"branch", appt.BranchName,
		"date", appt.AppointmentDate,
		"start", appt.StartTime,
	)
	middleware.WriteJSON(w, http.StatusCreated, appt)
}

// MyAppointments handles GET /api/appointments/my-appointments.
func (h *Handler) MyAppointments(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.store.Appointments(user.Username))
}

// GetAppointment handles GET /api/appointments/{reference}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	appt, err := h.store.Appointment(chi.URLParam(r, "reference"), user)
	if err != nil {
		h.writeStoreError(w, err, "appointment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, appt)
}

// CancelAppointment handles DELETE /api/appointments/{reference}.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	reference := chi.URLParam(r, "reference")
	if err := h.store.Cancel(reference, user); err != nil {
		h.metrics.ObserveAppointment("cancel", outcome(err))
		h.writeStoreError(w, err, "appointment")
		return
	}
	h.metrics.ObserveAppointment("cancel", "success")
	h.logger.Info("appointment cancelled", "reference", reference, "by", user.Username)
	w.WriteHeader(http.StatusNoContent)
}

func outcome(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, ErrSlotFull):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyCancelled), errors.Is(err, ErrPastAppointment):
		return "rejected"
	default:
		return "error"
	}
}

// writeStoreError maps store errors to status codes. what names the missing
// resource in 404 messages.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error, what string) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, middleware.ErrorBody{
			Error:   "validation_failed",
			Message: "Validation failed",
			Errors:  ve.Fields,
		})
	case errors.Is(err, ErrNotFound):
		switch what {
		case "slots":
			middleware.WriteError(w, http.StatusNotFound, "not_found", "Branch not found")
		default:
			middleware.WriteError(w, http.StatusNotFound, "not_found", "Appointment not found")
		}
	case errors.Is(err, ErrSlotFull):
		middleware.WriteError(w, http.StatusConflict, "slot_full", "This time slot is no longer available")
	case errors.Is(err, ErrUserExists):
		middleware.WriteError(w, http.StatusConflict, "user_exists", "Username is already taken")
	case errors.Is(err, ErrAlreadyCancelled):
		middleware.WriteError(w, http.StatusBadRequest, "already_cancelled", "Appointment is already cancelled")
	case errors.Is(err, ErrPastAppointment):
		middleware.WriteError(w, http.StatusBadRequest, "past_appointment", "Past appointments cannot be cancelled")
	default:
		h.logger.Error("request failed", "error", err, "resource", what)
		middleware.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong")
	}
}
