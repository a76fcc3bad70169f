// Package domain contains core domain types for the biaBot intake service.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ClientProfile is a customer account identified by its client code.
type ClientProfile struct {
	ClientCode          string         `json:"client_code"`
	ClientName          string         `json:"client_name"`
	BrandVoiceRules     string         `json:"brand_voice_rules"`
	WordsToAvoid        []string       `json:"words_to_avoid"`
	RequiredDisclaimers string         `json:"required_disclaimers,omitempty"`
	PreferredTone       string         `json:"preferred_tone,omitempty"`
	CommonAudiences     []string       `json:"common_audiences"`
	DefaultApprover     string         `json:"default_approver,omitempty"`
	SubscriptionTier    string         `json:"subscription_tier,omitempty"`
	CreditMenu          map[string]int `json:"credit_menu"`
	TurnaroundRules     string         `json:"turnaround_rules,omitempty"`
	ComplianceNotes     string         `json:"compliance_notes,omitempty"`
	ServiceOptions      []string       `json:"service_options"`
}

var (
	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("invalid client profile")
	// ErrInvalidClientCode is returned when a client code matches no profile.
	ErrInvalidClientCode = errors.New("invalid client code")
)

// NormalizeClientCode trims and upper-cases a client code.
func NormalizeClientCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Normalize cleans up a profile in place before it is stored.
func (p *ClientProfile) Normalize() {
	p.ClientCode = NormalizeClientCode(p.ClientCode)
	p.ClientName = strings.TrimSpace(p.ClientName)
	p.BrandVoiceRules = strings.TrimSpace(p.BrandVoiceRules)
	p.WordsToAvoid = cleanList(p.WordsToAvoid)
	p.CommonAudiences = cleanList(p.CommonAudiences)
	p.ServiceOptions = cleanList(p.ServiceOptions)
	if p.CreditMenu == nil {
		p.CreditMenu = map[string]int{}
	}
}

// Validate checks the fields required for an admin upsert.
func (p *ClientProfile) Validate() error {
	if n := len(p.ClientCode); n < 3 || n > 64 {
		return fmt.Errorf("%w: client_code must be 3-64 characters", ErrInvalidProfile)
	}
	if p.ClientName == "" {
		return fmt.Errorf("%w: client_name is required", ErrInvalidProfile)
	}
	if p.BrandVoiceRules == "" {
		return fmt.Errorf("%w: brand_voice_rules is required", ErrInvalidProfile)
	}
	for key, cost := range p.CreditMenu {
		if cost < 0 {
			return fmt.Errorf("%w: credit_menu[%s] must not be negative", ErrInvalidProfile, key)
		}
	}
	return nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ClientAuth is issued when a client code is verified.
type ClientAuth struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	Profile     ClientProfile `json:"profile"`
}
