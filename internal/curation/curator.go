// Package curation sequences collection, change detection, quality
// assessment, and version lifecycle decisions for one tool at a time.
package curation

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tooltrack-cli/internal/config"
	"github.com/sells-group/tooltrack-cli/internal/diff"
	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/internal/quality"
	"github.com/sells-group/tooltrack-cli/internal/scorer"
	"github.com/sells-group/tooltrack-cli/internal/store"
)

// CollectFunc produces a new raw Document for a tool. The research
// collaborator sits behind this signature; its self-reported confidence is
// never trusted — the assessor recomputes quality independently.
type CollectFunc func(ctx context.Context) (*model.Document, error)

// ErrInvalidDocument marks failures caused by the input document itself,
// as opposed to storage or infrastructure faults. Callers use errors.Is to
// map the two classes to different responses.
var ErrInvalidDocument = eris.New("invalid document")

// Curator is the curation entry point. It is stateless across invocations;
// per-tool serialization is the store caller's responsibility (see
// store.Store).
type Curator struct {
	store      store.Store
	detector   *diff.Detector
	scorer     *scorer.Scorer
	assessor   *quality.Assessor
	minQuality float64
	now        func() time.Time
}

// New creates a Curator from explicit components.
func New(st store.Store, det *diff.Detector, sc *scorer.Scorer, qa *quality.Assessor, minQuality float64) *Curator {
	return &Curator{
		store:      st,
		detector:   det,
		scorer:     sc,
		assessor:   qa,
		minQuality: minQuality,
		now:        time.Now,
	}
}

// FromConfig wires a Curator with default tuning tables and the configured
// thresholds.
func FromConfig(st store.Store, cfg config.CurationConfig) *Curator {
	scorerCfg := scorer.DefaultConfig()
	if cfg.SignificanceThreshold > 0 {
		scorerCfg.SignificanceThreshold = cfg.SignificanceThreshold
	}

	qualityCfg := quality.DefaultConfig()
	if cfg.FreshnessWindowDays > 0 {
		qualityCfg.FreshnessWindowDays = cfg.FreshnessWindowDays
	}
	if cfg.FreshnessHorizonDays > 0 {
		qualityCfg.FreshnessHorizonDays = cfg.FreshnessHorizonDays
	}

	minQuality := cfg.MinQualityThreshold
	if minQuality == 0 {
		minQuality = 0.7
	}

	return New(
		st,
		diff.NewDetector(diff.DefaultTuning()),
		scorer.New(scorerCfg),
		quality.New(qualityCfg),
		minQuality,
	)
}

// Run executes a full curation for one tool: collect a fresh Document via
// collect, then analyze it against the current snapshot. A run record
// tracks status throughout.
func (c *Curator) Run(ctx context.Context, tool string, collect CollectFunc) (*model.CurationResult, error) {
	log := zap.L().With(zap.String("tool", tool))

	run, err := c.store.CreateRun(ctx, tool)
	if err != nil {
		err = eris.Wrap(err, "curation: create run")
		return &model.CurationResult{Status: model.CurationFailed, Error: err.Error()}, err
	}

	setStatus := func(status model.CurationStatus) {
		if statusErr := c.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("curation: failed to update status", zap.Error(statusErr))
		}
	}

	setStatus(model.CurationCollecting)
	doc, err := collect(ctx)
	if err != nil {
		return c.fail(ctx, run.ID, log, eris.Wrap(err, "curation: collect"))
	}

	return c.analyze(ctx, run.ID, tool, doc, log, setStatus)
}

// Curate analyzes an already-collected Document for a tool. This is the
// path for webhook and file-based input, where collection happened
// elsewhere.
func (c *Curator) Curate(ctx context.Context, tool string, doc *model.Document) (*model.CurationResult, error) {
	log := zap.L().With(zap.String("tool", tool))

	run, err := c.store.CreateRun(ctx, tool)
	if err != nil {
		err = eris.Wrap(err, "curation: create run")
		return &model.CurationResult{Status: model.CurationFailed, Error: err.Error()}, err
	}

	setStatus := func(status model.CurationStatus) {
		if statusErr := c.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("curation: failed to update status", zap.Error(statusErr))
		}
	}

	return c.analyze(ctx, run.ID, tool, doc, log, setStatus)
}

// analyze is the ANALYZING phase: detect changes, assess quality, gate,
// promote, version.
func (c *Curator) analyze(ctx context.Context, runID, tool string, doc *model.Document, log *zap.Logger, setStatus func(model.CurationStatus)) (*model.CurationResult, error) {
	setStatus(model.CurationAnalyzing)

	if doc == nil {
		return c.fail(ctx, runID, log, eris.Wrap(ErrInvalidDocument, "curation: nil document"))
	}
	if err := doc.Validate(); err != nil {
		return c.fail(ctx, runID, log, eris.Wrapf(ErrInvalidDocument, "curation: %v", err))
	}

	oldDoc, err := c.store.GetCurrent(ctx, tool)
	if err != nil {
		return c.fail(ctx, runID, log, eris.Wrap(err, "curation: get current"))
	}

	analysis := c.detector.Detect(oldDoc, doc)
	analysis.SignificantChanges = c.scorer.Significant(analysis.DetectedChanges)

	qs := c.assessor.Assess(doc, c.now())

	result := &model.CurationResult{
		ChangesDetected: len(analysis.DetectedChanges) > 0,
		ChangeAnalysis:  &analysis,
		QualityScore:    &qs,
		ConfidenceScore: analysis.OverallConfidence,
	}

	// Quality gate: an untrustworthy document is not promoted, but the
	// computed analysis and score are still returned for visibility.
	if qs.Overall < c.minQuality {
		result.Status = model.CurationPartial
		log.Info("curation: document below quality threshold",
			zap.Float64("quality", qs.Overall),
			zap.Float64("threshold", c.minQuality),
		)
		c.persistResult(ctx, runID, result, log)
		return result, nil
	}

	// A version is created for an initial snapshot or when at least one
	// change cleared the significance threshold. Cosmetic changes update
	// the current snapshot without growing version history.
	var version *model.VersionRecord
	if analysis.IsInitialAnalysis || len(analysis.SignificantChanges) > 0 {
		triggering := make([]model.DataChange, 0, len(analysis.SignificantChanges))
		triggering = append(triggering, analysis.SignificantChanges...)
		version = &model.VersionRecord{
			TriggeringChanges: triggering,
			CreatedAt:         c.now().UTC(),
		}
	}

	created, err := c.store.Promote(ctx, tool, doc, version)
	if err != nil {
		// Promote is transactional: neither the current snapshot nor the
		// version history changed.
		err = eris.Wrap(err, "curation: promote")
		log.Error("curation: failed", zap.Error(err))
		result.Status = model.CurationFailed
		result.Error = err.Error()
		c.persistResult(ctx, runID, result, log)
		return result, err
	}

	result.VersionCreated = created
	result.Status = model.CurationCompleted

	if created != nil {
		log.Info("curation: version created",
			zap.Int("version", created.VersionNumber),
			zap.Int("triggering_changes", len(created.TriggeringChanges)),
		)
	} else {
		log.Info("curation: snapshot updated without new version",
			zap.Int("detected_changes", len(analysis.DetectedChanges)),
		)
	}

	c.persistResult(ctx, runID, result, log)
	return result, nil
}

// fail converts an error into a FAILED result and records it. Input and
// store errors surface this way; programmer errors are never caught here
// and propagate to the caller.
func (c *Curator) fail(ctx context.Context, runID string, log *zap.Logger, err error) (*model.CurationResult, error) {
	log.Error("curation: failed", zap.Error(err))
	result := &model.CurationResult{
		Status: model.CurationFailed,
		Error:  err.Error(),
	}
	c.persistResult(ctx, runID, result, log)
	return result, err
}

func (c *Curator) persistResult(ctx context.Context, runID string, result *model.CurationResult, log *zap.Logger) {
	if err := c.store.UpdateRunResult(ctx, runID, result); err != nil {
		log.Warn("curation: failed to persist run result", zap.Error(err))
	}
}
