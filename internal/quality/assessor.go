// Package quality scores a Document's trustworthiness independently of any
// diff: a document can contain zero detected changes and still fail quality
// (e.g. a re-submitted snapshot with a stale timestamp).
package quality

import (
	"net/url"
	"strings"
	"time"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// Weights holds the dimension weights combined into the overall score.
type Weights struct {
	Completeness float64 `yaml:"completeness" mapstructure:"completeness"`
	Accuracy     float64 `yaml:"accuracy" mapstructure:"accuracy"`
	Consistency  float64 `yaml:"consistency" mapstructure:"consistency"`
	Freshness    float64 `yaml:"freshness" mapstructure:"freshness"`
}

// Config configures the assessor.
type Config struct {
	Weights Weights

	// FreshnessWindowDays is the age up to which a snapshot earns full
	// freshness credit. FreshnessHorizonDays is the age at which credit
	// reaches zero; decay between the two is linear.
	FreshnessWindowDays  int
	FreshnessHorizonDays int
}

// DefaultConfig returns the standard quality weights and freshness windows.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Completeness: 0.3,
			Accuracy:     0.4,
			Consistency:  0.2,
			Freshness:    0.1,
		},
		FreshnessWindowDays:  30,
		FreshnessHorizonDays: 180,
	}
}

// Assessor computes QualityScores.
type Assessor struct {
	cfg Config
}

// New creates an Assessor with the given config.
func New(cfg Config) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess scores the document's completeness, accuracy, consistency, and
// freshness, combining them with the configured weights. Zero total weight
// falls back to completeness-only.
func (a *Assessor) Assess(doc *model.Document, now time.Time) model.QualityScore {
	comp := scoreCompleteness(doc)
	acc := scoreAccuracy(doc, now)
	cons := scoreConsistency(doc)
	fresh := a.scoreFreshness(doc, now)

	w := a.cfg.Weights
	totalWeight := w.Completeness + w.Accuracy + w.Consistency + w.Freshness

	overall := comp
	if totalWeight > 0 {
		overall = (w.Completeness*comp + w.Accuracy*acc + w.Consistency*cons + w.Freshness*fresh) / totalWeight
	}

	return model.QualityScore{
		Completeness: comp,
		Accuracy:     acc,
		Consistency:  cons,
		Freshness:    fresh,
		Overall:      overall,
	}
}

// scoreCompleteness is the fraction of the expected-field checklist that is
// populated: description, at least one pricing tier, at least one feature,
// company name, and at least one URL.
func scoreCompleteness(doc *model.Document) float64 {
	checks := 0
	passed := 0

	check := func(ok bool) {
		checks++
		if ok {
			passed++
		}
	}

	check(strings.TrimSpace(doc.Description) != "")
	check(doc.Pricing != nil && len(doc.Pricing.Tiers) > 0)
	check(len(doc.Features) > 0)
	check(doc.Company != nil && strings.TrimSpace(doc.Company.Name) != "")
	check(strings.TrimSpace(doc.WebsiteURL) != "" || strings.TrimSpace(doc.DocsURL) != "")

	return float64(passed) / float64(checks)
}

// scoreAccuracy is the fraction of structurally-validatable fields that
// pass validation: URLs are well-formed, numeric fields are non-negative,
// and the pricing model is in the known value set. A document with nothing
// validatable scores full accuracy — absence is a completeness problem.
func scoreAccuracy(doc *model.Document, now time.Time) float64 {
	checks := 0
	passed := 0

	check := func(ok bool) {
		checks++
		if ok {
			passed++
		}
	}

	if doc.WebsiteURL != "" {
		check(validURL(doc.WebsiteURL))
	}
	if doc.DocsURL != "" {
		check(validURL(doc.DocsURL))
	}
	if doc.Version != nil && doc.Version.ReleaseNotesURL != "" {
		check(validURL(doc.Version.ReleaseNotesURL))
	}
	if doc.Pricing != nil {
		if doc.Pricing.Model != "" {
			check(model.IsKnownPricingModel(doc.Pricing.Model))
		}
		for _, tier := range doc.Pricing.Tiers {
			check(tier.Price >= 0)
		}
	}
	if doc.Company != nil {
		if doc.Company.EmployeeCount != nil {
			check(*doc.Company.EmployeeCount >= 0)
		}
		if doc.Company.FoundedYear != nil {
			check(*doc.Company.FoundedYear > 0 && *doc.Company.FoundedYear <= now.Year())
		}
	}

	if checks == 0 {
		return 1.0
	}
	return float64(passed) / float64(checks)
}

// scoreConsistency is 1 minus the fraction of evaluable internal-consistency
// checks that found a contradiction. Checks are only counted when both
// sides of the rule are present.
func scoreConsistency(doc *model.Document) float64 {
	checks := 0
	violations := 0

	// Open-source tools should not carry a proprietary license.
	if doc.IsOpenSource != nil && *doc.IsOpenSource && doc.LicenseType != "" {
		checks++
		if strings.EqualFold(strings.TrimSpace(doc.LicenseType), "proprietary") {
			violations++
		}
	}

	if doc.Pricing != nil && doc.Pricing.Model != "" && len(doc.Pricing.Tiers) > 0 {
		switch model.PricingModel(strings.ToLower(strings.TrimSpace(doc.Pricing.Model))) {
		case model.PricingFree:
			// A free tool must not have paid tiers.
			checks++
			if anyPaidTier(doc.Pricing.Tiers) {
				violations++
			}
		case model.PricingFreemium:
			// Freemium implies at least one zero-price tier.
			checks++
			if !anyFreeTier(doc.Pricing.Tiers) {
				violations++
			}
		}
	}

	if checks == 0 {
		return 1.0
	}
	return 1.0 - float64(violations)/float64(checks)
}

// scoreFreshness gives full credit inside the recency window, decays
// linearly to zero at the horizon, and scores zero when the document
// carries no timestamp at all.
func (a *Assessor) scoreFreshness(doc *model.Document, now time.Time) float64 {
	if doc.CollectedAt == nil {
		return 0.0
	}

	days := now.Sub(*doc.CollectedAt).Hours() / 24
	window := float64(a.cfg.FreshnessWindowDays)
	horizon := float64(a.cfg.FreshnessHorizonDays)

	switch {
	case days <= window:
		return 1.0
	case days >= horizon:
		return 0.0
	default:
		return 1.0 - (days-window)/(horizon-window)
	}
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func anyPaidTier(tiers []model.PricingTier) bool {
	for _, t := range tiers {
		if t.Price > 0 {
			return true
		}
	}
	return false
}

func anyFreeTier(tiers []model.PricingTier) bool {
	for _, t := range tiers {
		if t.Price == 0 {
			return true
		}
	}
	return false
}
