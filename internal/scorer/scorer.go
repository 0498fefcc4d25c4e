// Package scorer assigns significance scores to detected changes and
// filters the subset that warrants a new version record.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// Config holds the per-type base weights and the significance threshold.
// The weights are carried as configuration rather than package constants so
// tests and callers can substitute alternate tables.
type Config struct {
	BaseWeights map[model.ChangeType]float64

	// SignificanceThreshold is the policy constant separating cosmetic
	// changes from version-worthy ones. Raising it reduces version-creation
	// frequency and downstream alert volume.
	SignificanceThreshold float64
}

// DefaultConfig returns the standard weight table and threshold.
func DefaultConfig() Config {
	return Config{
		BaseWeights: map[model.ChangeType]float64{
			model.VersionChange:     0.8,
			model.PriceChange:       0.9,
			model.FeatureChange:     0.7,
			model.IntegrationChange: 0.6,
			model.CompanyChange:     0.5,
			model.MetadataChange:    0.3,
		},
		SignificanceThreshold: 0.5,
	}
}

// Validate checks that a Config is internally consistent.
func Validate(cfg Config) error {
	var errs []string

	if cfg.SignificanceThreshold < 0 || cfg.SignificanceThreshold > 1 {
		errs = append(errs, fmt.Sprintf("significance_threshold %.2f outside [0,1]", cfg.SignificanceThreshold))
	}
	for changeType, weight := range cfg.BaseWeights {
		if weight < 0 || weight > 1 {
			errs = append(errs, fmt.Sprintf("base weight for %s is %.2f, outside [0,1]", changeType, weight))
		}
	}
	for _, required := range []model.ChangeType{
		model.VersionChange, model.PriceChange, model.FeatureChange,
		model.IntegrationChange, model.CompanyChange, model.MetadataChange,
	} {
		if _, ok := cfg.BaseWeights[required]; !ok {
			errs = append(errs, fmt.Sprintf("missing base weight for %s", required))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Scorer computes significance scores from a fixed weight table.
type Scorer struct {
	cfg Config
}

// New creates a Scorer with the given config.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score returns the significance of one change: base weight for its type
// times comparator confidence times impact, clamped to [0,1]. Unknown
// change types score zero.
func (s *Scorer) Score(change model.DataChange) float64 {
	score := s.cfg.BaseWeights[change.Type] * change.Confidence * change.ImpactScore
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Significant returns the order-preserving subset of changes whose score
// exceeds the significance threshold. Downstream consumers react only to
// this subset, never to raw comparator output.
func (s *Scorer) Significant(changes []model.DataChange) []model.DataChange {
	var out []model.DataChange
	for _, c := range changes {
		if s.Score(c) > s.cfg.SignificanceThreshold {
			out = append(out, c)
		}
	}
	return out
}
