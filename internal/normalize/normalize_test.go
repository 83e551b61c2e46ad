package normalize

import "testing"

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ten digits", "5551234567", "+15551234567"},
		{"dashed", "555-123-4567", "+15551234567"},
		{"dotted", "555.123.4567", "+15551234567"},
		{"parens and spaces", "(555) 123 4567", "+15551234567"},
		{"eleven with country code", "15551234567", "+15551234567"},
		{"already e164", "+15551234567", "+15551234567"},
		{"too short passes through", "12345", "12345"},
		{"non-us length passes through", "+442071838750", "+442071838750"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Phone(tt.in); got != tt.want {
				t.Errorf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhoneIdempotent(t *testing.T) {
	inputs := []string{"5551234567", "555-123-4567", "15551234567", "+15551234567", "garbage"}
	for _, in := range inputs {
		once := Phone(in)
		if twice := Phone(once); twice != once {
			t.Errorf("Phone not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestTo24Hour(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12:00 AM", "00:00"},
		{"12:00 PM", "12:00"},
		{"1:05 PM", "13:05"},
		{"9:30 am", "09:30"},
		{"11:59 pm", "23:59"},
		{"12:30 am", "00:30"},
		{"10:00AM", "10:00"},
		{"14:00", "14:00"},     // no AM/PM, unchanged
		{"not a time", "not a time"},
		{"25:00 PM", "25:00 PM"}, // out of range, unchanged
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := To24Hour(tt.in); got != tt.want {
				t.Errorf("To24Hour(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCombineDateTime(t *testing.T) {
	got := CombineDateTime("2026-09-01", "14:00")
	if got != "2026-09-01T14:00:00" {
		t.Errorf("CombineDateTime = %q", got)
	}
}
