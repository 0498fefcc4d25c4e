package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

func TestScoreFormula(t *testing.T) {
	s := New(DefaultConfig())

	tests := []struct {
		name   string
		change model.DataChange
		want   float64
	}{
		{
			"pricing model shift",
			model.DataChange{Type: model.PriceChange, Confidence: 0.9, ImpactScore: 0.9},
			0.729, // 0.9 * 0.9 * 0.9
		},
		{
			"pricing tier added",
			model.DataChange{Type: model.PriceChange, Confidence: 0.85, ImpactScore: 0.7},
			0.5355, // 0.9 * 0.85 * 0.7
		},
		{
			"version bump",
			model.DataChange{Type: model.VersionChange, Confidence: 0.95, ImpactScore: 0.8},
			0.608, // 0.8 * 0.95 * 0.8
		},
		{
			"feature added",
			model.DataChange{Type: model.FeatureChange, Confidence: 0.8, ImpactScore: 0.6},
			0.336, // 0.7 * 0.8 * 0.6
		},
		{
			"company detail",
			model.DataChange{Type: model.CompanyChange, Confidence: 0.7, ImpactScore: 0.5},
			0.175, // 0.5 * 0.7 * 0.5
		},
		{
			"metadata edit",
			model.DataChange{Type: model.MetadataChange, Confidence: 0.5, ImpactScore: 0.3},
			0.045, // 0.3 * 0.5 * 0.3
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.change), 1e-9)
		})
	}
}

func TestScoreUnknownTypeIsZero(t *testing.T) {
	s := New(DefaultConfig())
	assert.Zero(t, s.Score(model.DataChange{Type: "mystery_change", Confidence: 1, ImpactScore: 1}))
}

func TestScoreClamped(t *testing.T) {
	cfg := DefaultConfig()
	s := New(cfg)

	// Out-of-range comparator values must not escape [0,1].
	high := s.Score(model.DataChange{Type: model.PriceChange, Confidence: 2.0, ImpactScore: 2.0})
	assert.LessOrEqual(t, high, 1.0)

	low := s.Score(model.DataChange{Type: model.PriceChange, Confidence: -1.0, ImpactScore: 0.5})
	assert.Equal(t, 0.0, low)
}

func TestSignificantFiltersAndPreservesOrder(t *testing.T) {
	s := New(DefaultConfig())

	changes := []model.DataChange{
		{Type: model.PriceChange, FieldName: "pricing_model", Confidence: 0.9, ImpactScore: 0.9},        // 0.729
		{Type: model.CompanyChange, FieldName: "company_headquarters", Confidence: 0.7, ImpactScore: 0.5}, // 0.175
		{Type: model.PriceChange, FieldName: "pricing_tier_added", Confidence: 0.85, ImpactScore: 0.7},  // 0.5355
		{Type: model.MetadataChange, FieldName: "description", Confidence: 0.5, ImpactScore: 0.3},       // 0.045
	}

	significant := s.Significant(changes)
	require.Len(t, significant, 2)
	assert.Equal(t, "pricing_model", significant[0].FieldName)
	assert.Equal(t, "pricing_tier_added", significant[1].FieldName)
}

func TestSignificantThresholdIsExclusive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseWeights[model.PriceChange] = 0.5
	cfg.SignificanceThreshold = 0.5
	s := New(cfg)

	// A score exactly at the threshold does not pass.
	changes := []model.DataChange{
		{Type: model.PriceChange, Confidence: 1.0, ImpactScore: 1.0}, // exactly 0.5
	}
	assert.Empty(t, s.Significant(changes))
}

func TestSignificantEmptyInput(t *testing.T) {
	s := New(DefaultConfig())
	assert.Empty(t, s.Significant(nil))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))

	bad := DefaultConfig()
	bad.SignificanceThreshold = 1.5
	err := Validate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "significance_threshold")

	missing := DefaultConfig()
	delete(missing.BaseWeights, model.VersionChange)
	err = Validate(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing base weight")

	outOfRange := DefaultConfig()
	outOfRange.BaseWeights[model.PriceChange] = -0.1
	assert.Error(t, Validate(outOfRange))
}
