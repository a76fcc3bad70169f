package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/intake"
)

// SampleProfile returns the development profile seeded into empty stores.
func SampleProfile() domain.ClientProfile {
	return domain.ClientProfile{
		ClientCode:          "READYONE01",
		ClientName:          "ReadyOne Industries",
		BrandVoiceRules:     "Direct, confident, workforce-centered. Avoid corporate fluff.",
		WordsToAvoid:        []string{"empowerment journey", "disruption"},
		RequiredDisclaimers: "EOE employer statement required on recruitment materials.",
		PreferredTone:       "confident and straightforward",
		CommonAudiences:     []string{"job seekers", "employers", "internal staff"},
		DefaultApprover:     "Lupita R.",
		SubscriptionTier:    "Tier 2",
		CreditMenu: map[string]int{
			"custom_graphic":      25,
			"newsletter_internal": 75,
			"newsletter_external": 90,
			"press_release":       90,
			"campaign_set":        85,
		},
		TurnaroundRules: "Urgent requests should include business impact in notes.",
		ComplianceNotes: "Use EOE disclaimer where required.",
		ServiceOptions:  defaultServiceOptions(),
	}
}

func defaultServiceOptions() []string {
	return append([]string(nil), intake.DefaultServiceOptions...)
}

// Seed inserts the sample profile when it is missing.
func Seed(ctx context.Context, repo Repository) error {
	sample := SampleProfile()
	_, err := repo.GetClientProfile(ctx, sample.ClientCode)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check sample profile: %w", err)
	}
	if _, err := repo.UpsertClientProfile(ctx, sample); err != nil {
		return fmt.Errorf("seed sample profile: %w", err)
	}
	return nil
}
