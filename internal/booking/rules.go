package booking

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// ValidPhone accepts an optional leading plus followed by at least ten
// digits, spaces, hyphens or parentheses.
func ValidPhone(s string) bool { return phonePattern.MatchString(s) }

// ParseDate reads a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Today is midnight of now's calendar day in now's location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// notPast reports whether the appointment date is today or later relative
// to now. Unparseable dates count as past.
func notPast(a AppointmentResponse, now time.Time) bool {
	day, ok := ParseDate(a.AppointmentDate, now.Location())
	if !ok {
		return false
	}
	return !day.Before(Today(now))
}

// CanCancel reports whether a confirmed or pending appointment is still
// upcoming (today counts).
func CanCancel(a AppointmentResponse, now time.Time) bool {
	switch a.State() {
	case StatusConfirmed, StatusPending:
		return notPast(a, now)
	default:
		return false
	}
}

// CanReschedule reports whether a confirmed appointment is still upcoming.
func CanReschedule(a AppointmentResponse, now time.Time) bool {
	return a.State() == StatusConfirmed && notPast(a, now)
}

// FormatDate renders a YYYY-MM-DD date as "Monday, January 2, 2006". Input
// that is not a date is returned unchanged.
func FormatDate(s string) string {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format("Monday, January 2, 2006")
}

// FormatTime renders HH:MM or HH:MM:SS as a 12-hour clock, e.g. "9:30 AM".
func FormatTime(s string) string {
	v := strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("3:04 PM")
		}
	}
	return s
}
