package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// PricingModel enumerates the known pricing models for a tracked tool.
type PricingModel string

const (
	PricingFree         PricingModel = "free"
	PricingFreemium     PricingModel = "freemium"
	PricingSubscription PricingModel = "subscription"
	PricingUsageBased   PricingModel = "usage_based"
	PricingOneTime      PricingModel = "one_time"
	PricingEnterprise   PricingModel = "enterprise"
)

// KnownPricingModels lists every accepted pricing model value.
var KnownPricingModels = []PricingModel{
	PricingFree,
	PricingFreemium,
	PricingSubscription,
	PricingUsageBased,
	PricingOneTime,
	PricingEnterprise,
}

// IsKnownPricingModel reports whether m is one of the accepted pricing models.
func IsKnownPricingModel(m string) bool {
	for _, known := range KnownPricingModels {
		if PricingModel(strings.ToLower(strings.TrimSpace(m))) == known {
			return true
		}
	}
	return false
}

// Document is one snapshot of a tracked tool's known facts. A Document is
// immutable once accepted as current or archived as a version snapshot.
type Document struct {
	Description string `json:"description,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	DocsURL     string `json:"docs_url,omitempty"`

	Version      *VersionInfo  `json:"version,omitempty"`
	Pricing      *Pricing      `json:"pricing,omitempty"`
	Features     []Feature     `json:"features,omitempty"`
	Integrations []Integration `json:"integrations,omitempty"`
	Company      *CompanyInfo  `json:"company,omitempty"`

	IsOpenSource *bool  `json:"is_open_source,omitempty"`
	LicenseType  string `json:"license_type,omitempty"`

	// Metadata holds any remaining top-level scalar facts not covered by a
	// named section.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CollectedAt is when the research snapshot was produced. Freshness
	// scoring treats a nil timestamp as maximally stale.
	CollectedAt *time.Time `json:"collected_at,omitempty"`
}

// VersionInfo describes the tool's release state.
type VersionInfo struct {
	Current         string     `json:"current"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	ReleaseNotesURL string     `json:"release_notes_url,omitempty"`
}

// Pricing describes the tool's commercial model.
type Pricing struct {
	Model string        `json:"model,omitempty"`
	Tiers []PricingTier `json:"tiers,omitempty"`
}

// PricingTier is one named price point within a pricing model.
type PricingTier struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Feature is one capability of the tool, keyed by Name.
type Feature struct {
	Category    string `json:"category,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Integration is one external system the tool connects to, keyed by
// (Type, Name).
type Integration struct {
	Type string `json:"integration_type,omitempty"`
	Name string `json:"integration_name"`
}

// Key returns the composite identity of an integration.
func (i Integration) Key() string {
	if i.Type == "" {
		return i.Name
	}
	return i.Type + "/" + i.Name
}

// CompanyInfo holds facts about the company behind the tool.
type CompanyInfo struct {
	Name          string `json:"name,omitempty"`
	FoundedYear   *int   `json:"founded_year,omitempty"`
	EmployeeCount *int   `json:"employee_count,omitempty"`
	Headquarters  string `json:"headquarters,omitempty"`
}

// Validate checks the structural requirements a Document must meet before
// the comparators may run. It rejects records that are present but unkeyed
// (a tier, feature, or integration without a name cannot participate in
// set-difference comparison). Scoring concerns like negative prices or
// unknown pricing models are the Quality Assessor's job, not errors.
func (d *Document) Validate() error {
	if d.Pricing != nil {
		for i, tier := range d.Pricing.Tiers {
			if strings.TrimSpace(tier.Name) == "" {
				return eris.Errorf("model: pricing tier %d has no name", i)
			}
		}
	}
	for i, f := range d.Features {
		if strings.TrimSpace(f.Name) == "" {
			return eris.Errorf("model: feature %d has no name", i)
		}
	}
	for i, in := range d.Integrations {
		if strings.TrimSpace(in.Name) == "" {
			return eris.Errorf("model: integration %d has no name", i)
		}
	}
	return nil
}
