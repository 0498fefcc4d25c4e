package diff

import (
	"github.com/sells-group/tooltrack-cli/internal/model"
)

// Detector runs the six field comparators over a document pair in a fixed
// order. The order (version, pricing, features, integrations, company,
// metadata) is the tie-break for any list rendering or "first N changes"
// truncation downstream.
type Detector struct {
	tuning Tuning
}

// NewDetector creates a Detector with the given tuning table.
func NewDetector(t Tuning) *Detector {
	return &Detector{tuning: t}
}

// Detect compares two Documents and returns the full change analysis.
// A nil oldDoc means no prior snapshot existed: the analysis is marked
// initial, carries no changes, and the document is accepted as
// authoritative pending only the quality gate. newDoc must be non-nil.
//
// SignificantChanges is left empty; the significance scorer owns that
// filtering.
func (d *Detector) Detect(oldDoc, newDoc *model.Document) model.ChangeAnalysis {
	if oldDoc == nil {
		return model.ChangeAnalysis{
			DetectedChanges:   []model.DataChange{},
			IsInitialAnalysis: true,
			OverallConfidence: 1.0,
		}
	}

	changes := make([]model.DataChange, 0, 8)
	changes = append(changes, compareVersion(oldDoc.Version, newDoc.Version, d.tuning)...)
	changes = append(changes, comparePricing(oldDoc.Pricing, newDoc.Pricing, d.tuning)...)
	changes = append(changes, compareFeatures(oldDoc.Features, newDoc.Features, d.tuning)...)
	changes = append(changes, compareIntegrations(oldDoc.Integrations, newDoc.Integrations, d.tuning)...)
	changes = append(changes, compareCompany(oldDoc.Company, newDoc.Company, d.tuning)...)
	changes = append(changes, compareMetadata(oldDoc, newDoc, d.tuning)...)

	// "Nothing changed" is a confident conclusion.
	confidence := 1.0
	if len(changes) > 0 {
		sum := 0.0
		for _, c := range changes {
			sum += c.Confidence
		}
		confidence = sum / float64(len(changes))
	}

	return model.ChangeAnalysis{
		DetectedChanges:   changes,
		IsInitialAnalysis: false,
		OverallConfidence: confidence,
	}
}
