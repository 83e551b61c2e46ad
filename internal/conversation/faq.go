package conversation

import (
	"regexp"
	"strings"
)

// FAQEntry is one pre-computed answer for a common clinic question.
type FAQEntry struct {
	Pattern  *regexp.Regexp
	Keywords []string // Alternative matching keywords
	Response string
}

// faqCache holds answers for the questions patients ask constantly. These
// bypass the model entirely, so the answers stay deterministic and instant.
var faqCache = []FAQEntry{
	// Hours of operation
	{
		Pattern:  regexp.MustCompile(`(?i)(what|when).*\b(hours|open|close|closing)\b|\b(hours of operation|business hours)\b`),
		Keywords: []string{"hours", "open", "close", "time"},
		Response: `We're open Monday through Saturday from 8:00 AM to 8:00 PM, and Sunday from 9:00 AM to 5:00 PM. Walk-ins are welcome, but booking ahead guarantees your spot. Would you like to schedule an appointment?`,
	},
	// Locations and addresses
	{
		Pattern:  regexp.MustCompile(`(?i)\b(where (are|is) (you|your)|locations?|address|directions)\b`),
		Keywords: []string{"where", "located", "clinic"},
		Response: `We have four locations across Texas: Fresno (7424 FM 521 Rd), Houston (5822 Bellaire Blvd), Dallas (4343 W Jefferson Blvd), and Fort Worth (3529 Hemphill St). Which one is closest to you? I can help you book a visit there.`,
	},
	// Services offered
	{
		Pattern:  regexp.MustCompile(`(?i)(what|which)\b.*\b(services|treatments?)\b|\b(services|treatments?) (do you|offered|available)\b`),
		Keywords: []string{"services", "offer", "treatments"},
		Response: `We offer general consultations, annual physicals, checkups, immigration exams, urgent care, and specialist referrals. Everything is priced up front with no surprises. Would you like to book one of these?`,
	},
	// Pricing and insurance
	{
		Pattern:  regexp.MustCompile(`(?i)\b(how much|price|prices|pricing|cost|costs|insurance)\b`),
		Keywords: []string{"much", "cost", "insurance"},
		Response: `Our visits are flat-rate and affordable, and you never need insurance to be seen. A standard consultation starts at $19, with exact pricing confirmed when you book. Would you like me to set up an appointment?`,
	},
	// Walk-ins
	{
		Pattern:  regexp.MustCompile(`(?i)\bwalk[\s-]?ins?\b`),
		Keywords: []string{},
		Response: `Yes, we accept walk-ins at all of our clinics during business hours. Booking ahead still gets you in fastest. Want me to reserve a time for you?`,
	},
	// Spanish-speaking staff
	{
		Pattern:  regexp.MustCompile(`(?i)\b(speak|habla|hablan)\b.*\b(spanish|español|espanol)\b|\b(spanish|español|espanol)\b.*\b(spoken|speaking|habla|hablan)\b`),
		Keywords: []string{},
		Response: `¡Sí! Our entire staff speaks Spanish, and every visit can be done completely in Spanish. ¿Le gustaría agendar una cita?`,
	},
}

// CheckFAQCache looks for a cached answer to the message. It returns the
// answer and true on a match, or empty and false when the model should reply.
func CheckFAQCache(message string) (string, bool) {
	message = strings.ToLower(strings.TrimSpace(message))
	if message == "" {
		return "", false
	}

	for _, faq := range faqCache {
		if faq.Pattern != nil && faq.Pattern.MatchString(message) {
			return faq.Response, true
		}

		// Keyword fallback needs at least two hits to avoid false matches.
		if len(faq.Keywords) > 0 {
			matched := 0
			for _, kw := range faq.Keywords {
				if strings.Contains(message, kw) {
					matched++
				}
			}
			if matched >= 2 {
				return faq.Response, true
			}
		}
	}

	return "", false
}
