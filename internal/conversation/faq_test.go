package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckFAQCache(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantHit  bool
		contains string
	}{
		{"hours", "What are your hours?", true, "8:00 AM to 8:00 PM"},
		{"hours when open", "when do you open on saturday", true, "Walk-ins are welcome"},
		{"locations", "where are you located?", true, "Houston"},
		{"address", "what's the address of the Dallas clinic", true, "4343 W Jefferson Blvd"},
		{"services", "what services do you offer?", true, "immigration exams"},
		{"pricing", "how much is a visit?", true, "flat-rate"},
		{"insurance", "do you take insurance?", true, "never need insurance"},
		{"walk-ins", "do you accept walk-ins?", true, "walk-ins at all of our clinics"},
		{"spanish", "do you speak spanish?", true, "Spanish"},
		{"booking not cached", "I'd like to book an appointment", false, ""},
		{"medical question not cached", "do I need to fast before my visit?", false, ""},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := CheckFAQCache(tt.message)
			assert.Equal(t, tt.wantHit, hit)
			if tt.wantHit {
				assert.Contains(t, got, tt.contains)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}
