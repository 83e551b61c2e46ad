// Package slots accumulates structured booking data out of free-form
// conversation text. Extraction is rule-based and per-field first-match-wins;
// once a slot is filled for a session it is never overwritten.
package slots

import "strings"

// State is the running slot state for one conversation session.
type State struct {
	Name             string `json:"name,omitempty"`
	Phone            string `json:"phone,omitempty"` // digits only
	Email            string `json:"email,omitempty"`
	DateOfBirth      string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Date             string `json:"date,omitempty"`          // YYYY-MM-DD
	Time             string `json:"time,omitempty"`          // "H:MM AM"/"HH:MM"
	ConfirmationCode string `json:"confirmation_code,omitempty"`
	ServiceType      string `json:"service_type,omitempty"`
}

// BookingComplete reports whether every slot required to book is filled.
func (s State) BookingComplete() bool {
	return s.Name != "" && s.Phone != "" && s.Date != "" && s.Time != ""
}

// Empty reports whether no slot has been filled yet.
func (s State) Empty() bool {
	return s == State{}
}

// Merge fills empty slots in s from other, never replacing a filled slot.
func (s *State) Merge(other State) {
	if s.Name == "" {
		s.Name = other.Name
	}
	if s.Phone == "" {
		s.Phone = other.Phone
	}
	if s.Email == "" {
		s.Email = other.Email
	}
	if s.DateOfBirth == "" {
		s.DateOfBirth = other.DateOfBirth
	}
	if s.Date == "" {
		s.Date = other.Date
	}
	if s.Time == "" {
		s.Time = other.Time
	}
	if s.ConfirmationCode == "" {
		s.ConfirmationCode = other.ConfirmationCode
	}
	if s.ServiceType == "" {
		s.ServiceType = other.ServiceType
	}
}

// Missing lists the booking-required slots still unfilled, in a stable order
// suitable for user-facing prompts.
func (s State) Missing() []string {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Phone == "" {
		missing = append(missing, "phone")
	}
	if s.Date == "" {
		missing = append(missing, "date")
	}
	if s.Time == "" {
		missing = append(missing, "time")
	}
	return missing
}

// FirstName splits the extracted full name, mirroring how patient records
// store first/last separately. A single token is used for both parts.
func (s State) FirstName() string {
	first, _ := SplitName(s.Name)
	return first
}

// LastName returns the last-name portion of the extracted full name.
func (s State) LastName() string {
	_, last := SplitName(s.Name)
	return last
}

// SplitName breaks a full name into first and last; the remainder after the
// first token becomes the last name, falling back to the first token when
// only one was given.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) == 1 {
		return first, first
	}
	return first, strings.Join(parts[1:], " ")
}
