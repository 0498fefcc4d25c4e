// Package diff implements structured comparison of tool Documents: six
// field comparators plus the change detector that orchestrates them.
package diff

// Tuning holds the per-signal confidence and impact constants the
// comparators attach to emitted changes. The values are hand-tuned
// heuristics carried as configuration so tests and callers can substitute
// alternate tables without global mutation.
type Tuning struct {
	VersionConfidence float64 `yaml:"version_confidence" mapstructure:"version_confidence"`
	VersionImpact     float64 `yaml:"version_impact" mapstructure:"version_impact"`

	PricingModelConfidence float64 `yaml:"pricing_model_confidence" mapstructure:"pricing_model_confidence"`
	PricingModelImpact     float64 `yaml:"pricing_model_impact" mapstructure:"pricing_model_impact"`
	PricingTierConfidence  float64 `yaml:"pricing_tier_confidence" mapstructure:"pricing_tier_confidence"`
	PricingTierImpact      float64 `yaml:"pricing_tier_impact" mapstructure:"pricing_tier_impact"`

	FeatureConfidence         float64 `yaml:"feature_confidence" mapstructure:"feature_confidence"`
	FeatureImpact             float64 `yaml:"feature_impact" mapstructure:"feature_impact"`
	FeatureModifiedConfidence float64 `yaml:"feature_modified_confidence" mapstructure:"feature_modified_confidence"`
	FeatureModifiedImpact     float64 `yaml:"feature_modified_impact" mapstructure:"feature_modified_impact"`

	IntegrationConfidence float64 `yaml:"integration_confidence" mapstructure:"integration_confidence"`
	IntegrationImpact     float64 `yaml:"integration_impact" mapstructure:"integration_impact"`

	CompanyConfidence float64 `yaml:"company_confidence" mapstructure:"company_confidence"`
	CompanyImpact     float64 `yaml:"company_impact" mapstructure:"company_impact"`

	MetadataConfidence float64 `yaml:"metadata_confidence" mapstructure:"metadata_confidence"`
	MetadataImpact     float64 `yaml:"metadata_impact" mapstructure:"metadata_impact"`
}

// DefaultTuning returns the standard confidence/impact table.
// Version strings are lexical and nearly unambiguous (0.95) but a bump's
// downstream importance is moderate (0.8). Pricing-model shifts are both
// easy to detect and highly consequential (0.9/0.9). Description edits are
// the noisiest signal and score lowest among feature changes.
func DefaultTuning() Tuning {
	return Tuning{
		VersionConfidence: 0.95,
		VersionImpact:     0.8,

		PricingModelConfidence: 0.9,
		PricingModelImpact:     0.9,
		PricingTierConfidence:  0.85,
		PricingTierImpact:      0.7,

		FeatureConfidence:         0.8,
		FeatureImpact:             0.6,
		FeatureModifiedConfidence: 0.6,
		FeatureModifiedImpact:     0.4,

		IntegrationConfidence: 0.8,
		IntegrationImpact:     0.5,

		CompanyConfidence: 0.7,
		CompanyImpact:     0.5,

		MetadataConfidence: 0.5,
		MetadataImpact:     0.3,
	}
}
