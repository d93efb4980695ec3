package booking

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Date and time layouts used on the wire.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// ID accepts either a JSON string or a JSON number and keeps its text form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Int64 parses the id as a number, returning false when it is not one.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func (id ID) String() string { return string(id) }

// Branch is a physical location where appointments happen.
type Branch struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	Timezone       string `json:"timezone"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	Email          string `json:"email,omitempty"`
	OperatingHours string `json:"operatingHours,omitempty"`
}

// TimeSlot is a bookable window at a branch on a date.
type TimeSlot struct {
	ID          int64  `json:"id"`
	BranchID    int64  `json:"branchId"`
	BranchName  string `json:"branchName"`
	SlotDate    string `json:"slotDate"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Capacity    int    `json:"capacity"`
	BookedCount int    `json:"bookedCount"`
	Available   bool   `json:"available"`
}

// AppointmentRequest is the payload for creating an appointment.
type AppointmentRequest struct {
	BranchID        int64  `json:"branchId"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	AppointmentDate string `json:"appointmentDate"`
	StartTime       string `json:"startTime"`
}

// AppointmentResponse is an appointment as returned by the backend.
type AppointmentResponse struct {
	ID               int64  `json:"id"`
	CustomerName     string `json:"customerName"`
	CustomerEmail    string `json:"customerEmail"`
	CustomerPhone    string `json:"customerPhone"`
	BookingReference string `json:"bookingReference"`
	Status           string `json:"status"`
	AppointmentDate  string `json:"appointmentDate"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	BranchName       string `json:"branchName"`
	BranchAddress    string `json:"branchAddress"`
}

// State parses the free-form status text.
func (a AppointmentResponse) State() Status { return ParseStatus(a.Status) }

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusPending   Status = "PENDING"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusUnknown   Status = "UNKNOWN"
)

// ParseStatus matches s case-insensitively; anything else is StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusConfirmed:
		return StatusConfirmed
	case StatusPending:
		return StatusPending
	case StatusCancelled:
		return StatusCancelled
	case StatusCompleted:
		return StatusCompleted
	default:
		return StatusUnknown
	}
}

// Class is the presentation class for the status badge.
func (s Status) Class() string {
	switch s {
	case StatusConfirmed:
		return "status-confirmed"
	case StatusPending:
		return "status-pending"
	case StatusCancelled:
		return "status-cancelled"
	case StatusCompleted:
		return "status-completed"
	default:
		return "status-unknown"
	}
}

// userResponse is the body of the "who am I" endpoint.
type userResponse struct {
	ID       ID       `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}
