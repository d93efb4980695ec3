package mockapi

import (
	"github.com/wolfman30/branch-booking/internal/booking"
)

// DefaultBranches are the locations served out of the box.
func DefaultBranches() []booking.Branch {
	return []booking.Branch{
		{
			ID:             "1",
			Name:           "Downtown Branch",
			Address:        "100 Main Street, Springfield",
			Timezone:       "America/New_York",
			PhoneNumber:    "+1 555 010 1000",
			Email:          "downtown@branch-booking.test",
			OperatingHours: "Mon-Fri 09:00-17:00",
		},
		{
			ID:             "2",
			Name:           "Riverside Branch",
			Address:        "42 River Road, Springfield",
			Timezone:       "America/New_York",
			PhoneNumber:    "+1 555 010 2000",
			OperatingHours: "Mon-Fri 09:00-17:00",
		},
		{
			ID:       "3",
			Name:     "Airport Branch",
			Address:  "Terminal 2, Springfield Airport",
			Timezone: "UTC",
		},
	}
}

// SeedUser is an account created at startup.
type SeedUser struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// DefaultUsers are the demo accounts.
func DefaultUsers() []SeedUser {
	return []SeedUser{
		{Username: "john", Email: "john@example.com", Password: "password123", Roles: []string{"USER"}},
		{Username: "jane", Email: "jane@example.com", Password: "password123", Roles: []string{"USER"}},
		{Username: "admin", Email: "admin@example.com", Password: "admin12345", Roles: []string{"USER", "ADMIN"}},
	}
}

// Seed registers users in s.
func Seed(s *Store, users []SeedUser) error {
	for _, u := range users {
		if _, err := s.AddUser(u.Username, u.Email, u.Password, u.Roles...); err != nil {
			return err
		}
	}
	return nil
}
