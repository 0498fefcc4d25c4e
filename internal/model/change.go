package model

// ChangeType classifies a detected field-level difference.
type ChangeType string

const (
	VersionChange     ChangeType = "version_change"
	PriceChange       ChangeType = "price_change"
	FeatureChange     ChangeType = "feature_change"
	IntegrationChange ChangeType = "integration_change"
	CompanyChange     ChangeType = "company_change"
	MetadataChange    ChangeType = "metadata_change"
)

// DataChange is one detected field-level difference between two Documents.
// OldValue and NewValue differ unless the field transitioned between absent
// and present, in which case the absent side is nil.
type DataChange struct {
	Type        ChangeType `json:"change_type"`
	FieldName   string     `json:"field_name"`
	OldValue    any        `json:"old_value"`
	NewValue    any        `json:"new_value"`
	Confidence  float64    `json:"confidence"`
	ImpactScore float64    `json:"impact_score"`
}

// ChangeAnalysis is the full set of DataChanges for one document comparison
// plus derived aggregates. SignificantChanges is always an order-preserving
// subset of DetectedChanges.
type ChangeAnalysis struct {
	DetectedChanges    []DataChange `json:"detected_changes"`
	IsInitialAnalysis  bool         `json:"is_initial_analysis"`
	SignificantChanges []DataChange `json:"significant_changes"`
	OverallConfidence  float64      `json:"overall_confidence"`
}

// QualityScore is an independent trustworthiness assessment of a single
// Document, computed without reference to any diff.
type QualityScore struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Freshness    float64 `json:"freshness"`
	Overall      float64 `json:"overall"`
}
