package patients

import (
	"time"
)

// Patient is a person known to the clinic. The canonical phone number is the
// natural key: every channel resolves callers by phone before anything else.
// Patients are never hard-deleted.
type Patient struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email,omitempty"`
	DateOfBirth       string    `json:"date_of_birth,omitempty"`
	PreferredLanguage string    `json:"preferred_language"`
	ConsentSMS        bool      `json:"consent_sms"`
	ConsentVoice      bool      `json:"consent_voice"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FullName joins first and last name, tolerating placeholder halves.
func (p *Patient) FullName() string {
	switch {
	case p.FirstName == "" && p.LastName == "":
		return ""
	case p.LastName == "":
		return p.FirstName
	case p.FirstName == "":
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// Fields carries the optional attributes a channel has learned about a
// caller. Empty values mean "unknown", never "clear".
type Fields struct {
	FirstName         string
	LastName          string
	Email             string
	DateOfBirth       string
	PreferredLanguage string
}

// Channel identifies which adapter is resolving the patient. It decides the
// placeholder name and which consent flag a first contact implies.
type Channel string

const (
	ChannelWebChat Channel = "web_chat"
	ChannelSMS     Channel = "sms"
	ChannelVoice   Channel = "voice"
)

// placeholderName returns the first/last name used when a channel creates a
// patient it knows nothing about yet.
func (c Channel) placeholderName() (string, string) {
	switch c {
	case ChannelSMS:
		return "SMS", "Patient"
	case ChannelVoice:
		return "Voice", "Caller"
	default:
		return "Web", "Visitor"
	}
}

// impliedConsent reports which contact consents a first inbound contact on
// this channel grants.
func (c Channel) impliedConsent() (sms, voice bool) {
	switch c {
	case ChannelSMS:
		return true, false
	case ChannelVoice:
		return false, true
	default:
		return false, false
	}
}
