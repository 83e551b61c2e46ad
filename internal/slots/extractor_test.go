package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Saturday, so "tomorrow" resolves to the 30th and "monday" to Sep 1.
var testNow = time.Date(2026, time.August, 29, 9, 0, 0, 0, time.UTC)

func TestExtractFullTranscript(t *testing.T) {
	text := "Hi there! So my name is John Smith, phone 555-123-4567, I'd like to come in tomorrow at 10am if that works"
	st := Extract(text, testNow)

	assert.Equal(t, "John Smith", st.Name)
	assert.Equal(t, "5551234567", st.Phone)
	assert.Equal(t, "2026-08-30", st.Date)
	assert.Equal(t, "10:00 AM", st.Time)
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"my name is", "my name is Maria Lopez and I need an appointment", "Maria Lopez"},
		{"i'm", "Hello, I'm James Carter", "James Carter"},
		{"this is", "this is Ana Reyes calling", "Ana Reyes"},
		{"bare fallback", "Robert Chen would like a checkup", "Robert Chen"},
		{"lowercase ignored", "my name is maria lopez", ""},
		{"no name", "i want to book something", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, testNow).Name)
		})
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"dashed", "call me at 555-123-4567", "5551234567"},
		{"dotted", "555.123.4567 is my number", "5551234567"},
		{"contiguous", "my number is 5551234567", "5551234567"},
		{"e164 spaced", "reach me at +1 555 123 4567", "5551234567"},
		{"none", "no number here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, testNow).Phone)
		})
	}
}

func TestExtractDOB(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"iso with keyword", "I was born 1990-04-15", "1990-04-15"},
		{"slash with keyword", "date of birth: 1990/04/15", "1990-04-15"},
		{"us order with keyword", "my dob is 04-15-1990", "1990-04-15"},
		{"bare iso without keyword ignored", "see you 1990-04-15", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, testNow).DateOfBirth)
		})
	}
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"iso", "book me for 2026-09-10 please", "2026-09-10"},
		{"us", "how about 9/10/2026", "2026-09-10"},
		{"today", "can I come in today", "2026-08-29"},
		{"tomorrow", "tomorrow works", "2026-08-30"},
		{"weekday", "monday morning", "2026-08-31"},
		{"same weekday rolls a week", "saturday please", "2026-09-05"},
		{"day month", "the 3rd September works", "2026-09-03"},
		{"month day", "September 3rd works", "2026-09-03"},
		{"passed month rolls to next year", "January 5 please", "2027-01-05"},
		{"none", "whenever", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, testNow).Date)
		})
	}
}

func TestExtractDateSkipsDOB(t *testing.T) {
	st := Extract("I was born 1990-04-15, book me for 2026-09-10", testNow)
	assert.Equal(t, "1990-04-15", st.DateOfBirth)
	assert.Equal(t, "2026-09-10", st.Date)
}

func TestExtractTime(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"h:mm am", "at 2:30 pm", "2:30 PM"},
		{"bare hour", "2pm works", "2:00 PM"},
		{"24 hour", "at 14:30", "14:30"},
		{"invalid hour skipped", "code 99:30 ok", ""},
		{"none", "sometime", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, testNow).Time)
		})
	}
}

func TestExtractConfirmationCode(t *testing.T) {
	assert.Equal(t, "CHAT-12345", Extract("cancel chat-12345 please", testNow).ConfirmationCode)
	assert.Equal(t, "VAPI-98765", Extract("my code is VAPI-98765", testNow).ConfirmationCode)
	assert.Equal(t, "SMS-55555", Extract("sms-55555", testNow).ConfirmationCode)
	assert.Equal(t, "", Extract("no code here", testNow).ConfirmationCode)
}

func TestExtractServiceType(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I need a consultation", "consultation"},
		{"immigration exam for my visa", "immigration exam"},
		{"just an exam", "exam"},
		{"urgent care visit", "urgent care"},
		{"annual physical", "physical"},
		{"regular checkup", "checkup"},
		{"see a specialist", "specialist"},
		{"nothing medical", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, testNow).ServiceType)
		})
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"reason colon", "cancel SMS-12345 reason: can't make it", "can't make it"},
		{"reason bare", "cancel CHAT-11111 reason car trouble", "car trouble"},
		{"because", "I need to cancel because my flight got moved.", "my flight got moved"},
		{"none", "cancel CHAT-11111 please", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.text))
		})
	}
}

func TestPhoneDigits(t *testing.T) {
	assert.Equal(t, "5551234567", PhoneDigits("+15551234567"))
	assert.Equal(t, "5551234567", PhoneDigits("555-123-4567"))
	assert.Equal(t, "5551234567", PhoneDigits("5551234567"))
}

func TestMergeNeverOverwrites(t *testing.T) {
	st := State{Name: "Maria Lopez", Phone: "5551234567"}
	st.Merge(State{Name: "Other Person", Email: "m@example.com", Date: "2026-09-01"})

	assert.Equal(t, "Maria Lopez", st.Name)
	assert.Equal(t, "5551234567", st.Phone)
	assert.Equal(t, "m@example.com", st.Email)
	assert.Equal(t, "2026-09-01", st.Date)
}

func TestBookingComplete(t *testing.T) {
	st := State{Name: "Maria Lopez", Phone: "5551234567", Date: "2026-09-01"}
	require.False(t, st.BookingComplete())
	assert.Equal(t, []string{"time"}, st.Missing())

	st.Time = "2:00 PM"
	require.True(t, st.BookingComplete())
	assert.Empty(t, st.Missing())
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Maria Lopez Garcia")
	assert.Equal(t, "Maria", first)
	assert.Equal(t, "Lopez Garcia", last)

	first, last = SplitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Equal(t, "Cher", last)
}
