package patients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clinicasanmiguel/riley/internal/normalize"
)

// Resolver finds or creates the patient behind a phone number. Every channel
// adapter funnels through it, so a caller texting and then phoning ends up as
// one patient row.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve canonicalizes the phone, looks the patient up, and either merges the
// newly learned fields into the existing row or creates one with the channel's
// placeholder name and implied consent. Resolving the same phone twice yields
// the same patient.
func (r *Resolver) Resolve(ctx context.Context, phone string, known Fields, channel Channel) (*Patient, error) {
	canonical := normalize.Phone(phone)
	if normalize.Digits(canonical) == "" {
		return nil, ErrMissingPhone
	}

	existing, err := r.repo.GetByPhone(ctx, canonical)
	if err == nil {
		if merge(existing, known) {
			if err := r.repo.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("patients: merge update: %w", err)
			}
			r.logger.Info("patient fields merged", "patient_id", existing.ID, "channel", channel)
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("patients: lookup: %w", err)
	}

	first, last := channel.placeholderName()
	if known.FirstName != "" {
		first = known.FirstName
	}
	if known.LastName != "" {
		last = known.LastName
	}
	lang := known.PreferredLanguage
	if lang == "" {
		lang = "en"
	}
	consentSMS, consentVoice := channel.impliedConsent()

	p := &Patient{
		FirstName:         first,
		LastName:          last,
		Phone:             canonical,
		Email:             known.Email,
		DateOfBirth:       known.DateOfBirth,
		PreferredLanguage: lang,
		ConsentSMS:        consentSMS,
		ConsentVoice:      consentVoice,
	}
	if err := r.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("patients: create: %w", err)
	}
	r.logger.Info("patient created", "patient_id", p.ID, "channel", channel)
	return p, nil
}

// merge fills empty fields on the stored patient from the newly learned ones
// and upgrades placeholder names to real ones. It never clears a filled field.
func merge(p *Patient, known Fields) bool {
	changed := false
	if known.FirstName != "" && known.LastName != "" && isPlaceholderName(p.FirstName, p.LastName) {
		p.FirstName = known.FirstName
		p.LastName = known.LastName
		changed = true
	}
	if known.Email != "" && p.Email == "" {
		p.Email = known.Email
		changed = true
	}
	if known.DateOfBirth != "" && p.DateOfBirth == "" {
		p.DateOfBirth = known.DateOfBirth
		changed = true
	}
	if known.PreferredLanguage != "" && p.PreferredLanguage == "en" && known.PreferredLanguage != "en" {
		p.PreferredLanguage = known.PreferredLanguage
		changed = true
	}
	return changed
}

func isPlaceholderName(first, last string) bool {
	switch first + " " + last {
	case "SMS Patient", "Voice Caller", "Web Visitor", " ":
		return true
	}
	return false
}
