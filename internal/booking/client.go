// Package booking is the typed client for the branch booking REST API.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/branch-booking/internal/pipeline"
	"github.com/wolfman30/branch-booking/internal/session"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

var bookingTracer = otel.Tracer("branchbooking.internal.booking")

// Client calls the auth and appointment APIs through a request pipeline.
type Client struct {
	doer    pipeline.Doer
	authURL string
	apiURL  string
	logger  *logging.Logger
}

// NewClient builds a client. Both base URLs are used without a trailing slash.
func NewClient(doer pipeline.Doer, authURL, apiURL string, logger *logging.Logger) *Client {
	if doer == nil {
		doer = pipeline.StatusDoer(http.DefaultClient)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		doer:    doer,
		authURL: strings.TrimRight(authURL, "/"),
		apiURL:  strings.TrimRight(apiURL, "/"),
		logger:  logger,
	}
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (*session.LoginResponse, error) {
	var resp session.LoginResponse
	if err := c.doJSON(ctx, "booking.login", http.MethodPost, c.authURL+"/login", creds, &resp); err != nil {
		return nil, fmt.Errorf("booking: login: %w", err)
	}
	return &resp, nil
}

// CurrentUser returns who the stored token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*session.Identity, error) {
	var resp userResponse
	if err := c.doJSON(ctx, "booking.current_user", http.MethodGet, c.authURL+"/user", nil, &resp); err != nil {
		return nil, fmt.Errorf("booking: current user: %w", err)
	}
	return &session.Identity{
		ID:       resp.ID.String(),
		Username: resp.Username,
		Email:    resp.Email,
		Roles:    resp.Roles,
	}, nil
}

// Branches lists every branch.
func (c *Client) Branches(ctx context.Context) ([]Branch, error) {
	var branches []Branch
	if err := c.doJSON(ctx, "booking.branches", http.MethodGet, c.apiURL+"/branches", nil, &branches); err != nil {
		return nil, fmt.Errorf("booking: list branches: %w", err)
	}
	return branches, nil
}

// AvailableTimeSlots lists the time slots at a branch on date (YYYY-MM-DD).
func (c *Client) AvailableTimeSlots(ctx context.Context, branchID, date string) ([]TimeSlot, error) {
	q := url.Values{}
	q.Set("branchId", branchID)
	q.Set("date", date)

	var slots []TimeSlot
	endpoint := c.apiURL + "/timeslots/available?" + q.Encode()
	if err := c.doJSON(ctx, "booking.available_slots", http.MethodGet, endpoint, nil, &slots); err != nil {
		return nil, fmt.Errorf("booking: available slots: %w", err)
	}
	return slots, nil
}

// CreateAppointment books an appointment.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	var resp AppointmentResponse
	if err := c.doJSON(ctx, "booking.create_appointment", http.MethodPost, c.apiURL+"/appointments", req, &resp); err != nil {
		return nil, fmt.Errorf("booking: create appointment: %w", err)
	}
	return &resp, nil
}

// MyAppointments lists the signed-in user's appointments.
func (c *Client) MyAppointments(ctx context.Context) ([]AppointmentResponse, error) {
	var appts []AppointmentResponse
	if err := c.doJSON(ctx, "booking.my_appointments", http.MethodGet, c.apiURL+"/appointments/my-appointments", nil, &appts); err != nil {
		return nil, fmt.Errorf("booking: my appointments: %w", err)
	}
	return appts, nil
}

// AppointmentByReference fetches one appointment.
func (c *Client) AppointmentByReference(ctx context.Context, reference string) (*AppointmentResponse, error) {
	var resp AppointmentResponse
	endpoint := c.apiURL + "/appointments/" + url.PathEscape(reference)
	if err := c.doJSON(ctx, "booking.get_appointment", http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("booking: get appointment %s: %w", reference, err)
	}
	return &resp, nil
}

// CancelAppointment cancels an appointment by reference.
func (c *Client) CancelAppointment(ctx context.Context, reference string) error {
	endpoint := c.apiURL + "/appointments/" + url.PathEscape(reference)
	if err := c.doJSON(ctx, "booking.cancel_appointment", http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("booking: cancel appointment %s: %w", reference, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, spanName, method, endpoint string, body, out any) (err error) {
	ctx, span := bookingTracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", endpoint),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if he, ok := pipeline.AsHTTPError(err); ok {
				span.SetAttributes(attribute.Int("http.status_code", he.Status))
			}
		}
	}()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		c.logger.Warn("booking API returned undecodable body", "url", endpoint, "status", resp.StatusCode)
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
