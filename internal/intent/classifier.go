// Package intent maps user utterances to appointment actions. Classification
// is deliberately rule-based: the language model writes replies, it never
// decides whether data gets mutated, so every mutation stays deterministic
// and auditable.
package intent

import (
	"strings"

	"github.com/clinicasanmiguel/riley/internal/slots"
)

// Intent is the action the latest user turn asks for.
type Intent string

const (
	Book       Intent = "book"
	Cancel     Intent = "cancel"
	Reschedule Intent = "reschedule"
	None       Intent = "none"
)

// Wire labels recorded on interaction rows, kept compatible with the
// dashboard's expectations.
const (
	LabelBooking      = "appointment_booking"
	LabelCancellation = "appointment_cancellation"
	LabelReschedule   = "appointment_reschedule"
	LabelDeletion     = "appointment_deletion"
	LabelGeneral      = "general_inquiry"
)

var affirmations = []string{"yes", "confirm", "correct", "ok", "sure", "please"}

// Classify decides the intent of message given the session's accumulated slot
// state. An affirmation while all booking slots are filled counts as booking
// consent, which lets "yes, that's right" close out a multi-turn booking.
func Classify(message string, st slots.State) Intent {
	lower := strings.ToLower(message)

	if st.BookingComplete() && containsAffirmation(lower) {
		return Book
	}
	// Cancel and reschedule are checked first: "cancel my appointment" and
	// "reschedule" both contain booking keywords.
	if strings.Contains(lower, "cancel") {
		return Cancel
	}
	if strings.Contains(lower, "reschedule") || strings.Contains(lower, "change") {
		return Reschedule
	}
	if strings.Contains(lower, "book") || strings.Contains(lower, "schedule") || strings.Contains(lower, "appointment") {
		return Book
	}
	return None
}

// Label translates an Intent to the label written on interaction rows.
func (i Intent) Label() string {
	switch i {
	case Book:
		return LabelBooking
	case Cancel:
		return LabelCancellation
	case Reschedule:
		return LabelReschedule
	default:
		return LabelGeneral
	}
}

func containsAffirmation(lower string) bool {
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	for _, token := range tokens {
		for _, word := range affirmations {
			if token == word {
				return true
			}
		}
	}
	return false
}
