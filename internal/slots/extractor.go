package slots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	namePhraseRE   = regexp.MustCompile(`(?:(?i:my name is|i'm|i am|this is))\s+([A-Z][a-z]+ [A-Z][a-z]+)`)
	nameBareRE     = regexp.MustCompile(`\b([A-Z][a-z]+ [A-Z][a-z]+)\b`)
	phoneDashedRE  = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	phoneE164RE    = regexp.MustCompile(`\+1[\s-]?\d{3}[\s-]?\d{3}[\s-]?\d{4}\b`)
	emailRE        = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	dobKeywordRE   = regexp.MustCompile(`(?i)(?:born|birth|dob)\D{0,20}(\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{4})`)
	isoDateRE      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usDateRE       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	relativeDayRE  = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)
	weekdayRE      = regexp.MustCompile(`(?i)\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	dayMonthRE     = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	monthDayRE     = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	time12RE       = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	timeBareHourRE = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	time24RE       = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	confCodeRE     = regexp.MustCompile(`(?i)\b((?:CHAT|VAPI|SMS)-\d+)\b`)
	reasonRE       = regexp.MustCompile(`(?i)\b(?:reason|because)\s*[:\-]?\s+(.+?)[.!?]?\s*$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// serviceVocabulary is ordered so that more specific phrases win over their
// substrings ("immigration exam" before "exam").
var serviceVocabulary = []string{
	"immigration exam",
	"consultation",
	"urgent care",
	"specialist",
	"physical",
	"checkup",
	"exam",
}

// Extract runs every field extractor over text. Relative dates are resolved
// against now. Callers merge the result into their session state; Extract
// itself is stateless.
func Extract(text string, now time.Time) State {
	st := State{
		Name:             extractName(text),
		Phone:            extractPhone(text),
		Email:            emailRE.FindString(text),
		DateOfBirth:      extractDOB(text),
		Time:             extractTime(text),
		ConfirmationCode: strings.ToUpper(confCodeRE.FindString(text)),
		ServiceType:      extractService(text),
	}
	st.Date = extractDate(text, now, st.DateOfBirth)
	return st
}

func extractName(text string) string {
	if m := namePhraseRE.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := nameBareRE.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractPhone(text string) string {
	if m := phoneE164RE.FindString(text); m != "" {
		return PhoneDigits(m)
	}
	if m := phoneDashedRE.FindString(text); m != "" {
		return digitsOnly(m)
	}
	return ""
}

// PhoneDigits reduces a phone number to the 10-digit form slots store,
// dropping a leading US country code.
func PhoneDigits(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		return digits[1:]
	}
	return digits
}

// Reason pulls the caller's stated reason out of a cancel or reschedule
// message, e.g. "cancel SMS-12345 reason: car trouble". The reason runs to
// the end of the message; trailing punctuation is dropped.
func Reason(text string) string {
	if m := reasonRE.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractDOB(text string) string {
	if m := dobKeywordRE.FindStringSubmatch(text); m != nil {
		if iso := normalizeDOB(m[1]); iso != "" {
			return iso
		}
	}
	// Fall back to a bare ISO date only when a birth keyword exists anywhere,
	// so appointment dates are not misread as a date of birth.
	lower := strings.ToLower(text)
	if strings.Contains(lower, "born") || strings.Contains(lower, "birth") || strings.Contains(lower, "dob") {
		if m := isoDateRE.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// normalizeDOB turns YYYY/MM/DD and MM-DD-YYYY variants into YYYY-MM-DD.
func normalizeDOB(raw string) string {
	raw = strings.ReplaceAll(raw, "/", "-")
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return ""
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ""
		}
		nums[i] = n
	}
	if len(parts[0]) == 4 {
		return fmt.Sprintf("%04d-%02d-%02d", nums[0], nums[1], nums[2])
	}
	if len(parts[2]) == 4 {
		return fmt.Sprintf("%04d-%02d-%02d", nums[2], nums[0], nums[1])
	}
	return ""
}

func extractDate(text string, now time.Time, dob string) string {
	// ISO dates win, but not the one already claimed as a date of birth.
	for _, m := range isoDateRE.FindAllString(text, -1) {
		if m != dob {
			return m
		}
	}
	if m := usDateRE.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	if m := relativeDayRE.FindString(text); m != "" {
		switch strings.ToLower(m) {
		case "today":
			return now.Format("2006-01-02")
		case "tomorrow":
			return now.AddDate(0, 0, 1).Format("2006-01-02")
		}
	}
	if m := weekdayRE.FindString(text); m != "" {
		target := weekdays[strings.ToLower(m)]
		ahead := (int(target) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format("2006-01-02")
	}
	if m := dayMonthRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		return resolveMonthDay(months[strings.ToLower(m[2])], day, now)
	}
	if m := monthDayRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])
		return resolveMonthDay(months[strings.ToLower(m[1])], day, now)
	}
	return ""
}

// resolveMonthDay picks the next occurrence of the given month/day, rolling
// into next year when the date has already passed.
func resolveMonthDay(month time.Month, day int, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if candidate.Before(today) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate.Format("2006-01-02")
}

func extractTime(text string) string {
	if m := time12RE.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s:%s %s", m[1], m[2], strings.ToUpper(m[3]))
	}
	if m := timeBareHourRE.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s:00 %s", m[1], strings.ToUpper(m[2]))
	}
	if m := time24RE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour <= 23 {
			return fmt.Sprintf("%02d:%s", hour, m[2])
		}
	}
	return ""
}

func extractService(text string) string {
	lower := strings.ToLower(text)
	for _, svc := range serviceVocabulary {
		if strings.Contains(lower, svc) {
			return svc
		}
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
