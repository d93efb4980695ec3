package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/wolfman30/branch-booking/internal/notify"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

const maxErrorBody = 1 << 20

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Status           int
	StatusText       string
	Message          string
	ErrorDescription string
	Errors           map[string]string
	Body             []byte
}

func (e *HTTPError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.ErrorDescription
	}
	if detail == "" {
		detail = e.StatusText
	}
	return fmt.Sprintf("http %d: %s", e.Status, detail)
}

// AsHTTPError extracts an *HTTPError from err's chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// StatusIs reports whether err is an HTTPError with one of statuses.
func StatusIs(err error, statuses ...int) bool {
	he, ok := AsHTTPError(err)
	if !ok {
		return false
	}
	for _, s := range statuses {
		if he.Status == s {
			return true
		}
	}
	return false
}

type errorBody struct {
	Message          string         `json:"message"`
	ErrorDescription string         `json:"error_description"`
	Errors           map[string]any `json:"errors"`
}

// StatusDoer is the terminal stage. It sends the request with client and
// turns every non-2xx response into an *HTTPError with the body consumed.
func StatusDoer(client Doer) Doer {
	if client == nil {
		client = http.DefaultClient
	}
	return DoerFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newHTTPError(resp.StatusCode, resp.Status, body)
	})
}

func newHTTPError(status int, statusLine string, body []byte) *HTTPError {
	he := &HTTPError{
		Status:     status,
		StatusText: reasonPhrase(status, statusLine),
		Body:       body,
	}
	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		he.Message = parsed.Message
		he.ErrorDescription = parsed.ErrorDescription
		if len(parsed.Errors) > 0 {
			he.Errors = make(map[string]string, len(parsed.Errors))
			for k, v := range parsed.Errors {
				he.Errors[k] = flattenValidation(v)
			}
		}
	}
	return he
}

// reasonPhrase takes the text after the code in a "499 Client Closed" status
// line, falling back to the registered text for status.
func reasonPhrase(status int, statusLine string) string {
	text := strings.TrimSpace(statusLine)
	text = strings.TrimSpace(strings.TrimPrefix(text, strconv.Itoa(status)))
	if text == "" {
		text = http.StatusText(status)
	}
	return text
}

func flattenValidation(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// UserMessage maps a pipeline failure to the text shown to the user.
func UserMessage(err error) string {
	he, ok := AsHTTPError(err)
	if !ok {
		var ue *url.Error
		if errors.As(err, &ue) && ue.Err != nil {
			return "Error: " + ue.Err.Error()
		}
		return "Error: " + err.Error()
	}

	switch he.Status {
	case http.StatusBadRequest:
		if he.Message != "" {
			return he.Message
		}
		return "Bad request. Please check your input."
	case http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case http.StatusForbidden:
		return "You do not have permission to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "This time slot is already booked. Please choose another time."
	case http.StatusUnprocessableEntity:
		if len(he.Errors) > 0 {
			keys := make([]string, 0, len(he.Errors))
			for k := range he.Errors {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			msgs := make([]string, 0, len(keys))
			for _, k := range keys {
				msgs = append(msgs, he.Errors[k])
			}
			return strings.Join(msgs, ", ")
		}
		return "Validation failed. Please check your input."
	case http.StatusInternalServerError:
		return "Internal server error. Please try again later."
	case http.StatusServiceUnavailable:
		return "Service temporarily unavailable. Please try again later."
	default:
		return fmt.Sprintf("Error %d: %s", he.Status, he.StatusText)
	}
}

// Notifier receives the user-facing error text.
type Notifier interface {
	Error(content string, opts ...notify.ShowOption) *notify.Message
}

// RejectedCredentialsMessage is shown when a public endpoint such as login
// answers 401 without a description of its own.
const RejectedCredentialsMessage = "Login failed. Please check your credentials."

// credentialsMessage is the text for a 401 from a public endpoint.
func credentialsMessage(err error) string {
	if he, ok := AsHTTPError(err); ok {
		if he.ErrorDescription != "" {
			return he.ErrorDescription
		}
		if he.Message != "" {
			return he.Message
		}
	}
	return RejectedCredentialsMessage
}

// Errors notifies the user about every failed request and hands 401s from
// protected endpoints to onUnauthorized. A 401 from a public endpoint only
// notifies. The original error is always returned unchanged. Requests
// cancelled by their own context are not reported.
func Errors(n Notifier, onUnauthorized func(ctx context.Context), public *PublicEndpoints, logger *logging.Logger) Middleware {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err == nil {
				return resp, nil
			}
			if req.Context().Err() != nil && errors.Is(err, req.Context().Err()) {
				return nil, err
			}

			msg := UserMessage(err)
			unauthorized := StatusIs(err, http.StatusUnauthorized)
			rejected := unauthorized && public.Match(req.URL)
			if rejected {
				msg = credentialsMessage(err)
			}
			logger.Warn("api request failed",
				"method", req.Method,
				"url", req.URL.Redacted(),
				"error", err,
			)
			if n != nil {
				n.Error(msg)
			}
			if unauthorized && !rejected && onUnauthorized != nil {
				onUnauthorized(req.Context())
			}
			return resp, err
		})
	}
}
