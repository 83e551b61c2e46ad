package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinicasanmiguel/riley/internal/slots"
)

// ClinicContext is the static business context injected into every prompt.
type ClinicContext struct {
	Name         string
	PhoneDisplay string
	Hours        string
	Services     []string
}

// PatientContext is what the model may know about a verified caller.
type PatientContext struct {
	Name              string
	PreferredLanguage string
	Upcoming          []string
}

const personaPrompt = `You are Riley, a friendly and professional scheduling assistant for %s.

Your role is to:
- Help patients schedule, reschedule, cancel, or delete appointments
- Answer questions about services, hours, and locations
- Guide patients through the appointment booking process step by step
- Be warm, empathetic, and efficient

Important guidelines:
- Never provide medical diagnoses or treatment advice
- Always verify patient identity before sharing personal information
- Escalate complex medical questions to human staff
- Be concise and clear in your responses
- Support both English and Spanish languages
- Keep responses under 150 words

When booking an appointment, collect information one piece at a time: full name, phone number, preferred date and time, and type of service. Once everything is collected, repeat it back and ask the patient to confirm.`

// BuildSystemPrompt assembles the persona, business rules, current slot state
// and any verified patient context into the system prompt contract the
// responder guarantees the model receives.
func BuildSystemPrompt(clinic ClinicContext, st slots.State, patient *PatientContext) []string {
	system := []string{fmt.Sprintf(personaPrompt, clinic.Name)}

	var info strings.Builder
	info.WriteString("Key Information:\n")
	if clinic.Hours != "" {
		info.WriteString("- Hours: " + clinic.Hours + "\n")
	}
	if len(clinic.Services) > 0 {
		info.WriteString("- Services: " + strings.Join(clinic.Services, ", ") + "\n")
	}
	if clinic.PhoneDisplay != "" {
		info.WriteString("- Phone: " + clinic.PhoneDisplay + "\n")
	}
	system = append(system, info.String())

	if !st.Empty() {
		if data, err := json.Marshal(st); err == nil {
			system = append(system, "Appointment data collected so far: "+string(data)+
				"\nDo not ask again for anything already collected.")
		}
	}

	if patient != nil && patient.Name != "" {
		var pc strings.Builder
		pc.WriteString("Patient Context (verified):\nName: " + patient.Name + "\n")
		if patient.PreferredLanguage != "" {
			pc.WriteString("Preferred language: " + patient.PreferredLanguage + "\n")
		}
		if len(patient.Upcoming) > 0 {
			pc.WriteString("Upcoming appointments:\n")
			for _, appt := range patient.Upcoming {
				pc.WriteString("- " + appt + "\n")
			}
		}
		system = append(system, pc.String())
	}

	return system
}

// ApologyMessage is the canned degraded-mode reply, localized for the caller.
func ApologyMessage(language, phoneDisplay string) string {
	if language == "es" {
		return fmt.Sprintf("Disculpe, estoy teniendo problemas para procesar su solicitud. Por favor intente de nuevo o llámenos al %s.", phoneDisplay)
	}
	return fmt.Sprintf("I apologize, but I'm having trouble processing your request. Please try again or call us at %s.", phoneDisplay)
}
