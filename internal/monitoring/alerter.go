package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tooltrack-cli/internal/config"
	"github.com/sells-group/tooltrack-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertCurationFailureRate AlertType = "curation_failure_rate"
	AlertQualityDegradation  AlertType = "quality_degradation"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds and
// sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg        config.AlertsConfig
	minQuality float64
	client     *http.Client
}

// NewAlerter creates a new Alerter. minQuality is the curation quality
// threshold; a lookback-window average below it signals a degrading source.
func NewAlerter(cfg config.AlertsConfig, minQuality float64) *Alerter {
	return &Alerter{
		cfg:        cfg,
		minQuality: minQuality,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Failure rate only means something once a few runs have finished.
	finished := snap.RunsCompleted + snap.RunsPartial + snap.RunsFailed
	if finished >= 5 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertCurationFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Curation failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"fail_rate": snap.FailRate,
				"threshold": a.cfg.FailureRateThreshold,
				"failed":    snap.RunsFailed,
				"finished":  finished,
			},
			Timestamp: now,
		})
	}

	if finished >= 5 && a.minQuality > 0 && snap.AvgQuality > 0 && snap.AvgQuality < a.minQuality {
		alerts = append(alerts, Alert{
			Type:     AlertQualityDegradation,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Average document quality %.2f is below the acceptance threshold %.2f over last %dh (%d partial runs)",
				snap.AvgQuality, a.minQuality, snap.LookbackHours, snap.RunsPartial,
			),
			Details: map[string]any{
				"avg_quality": snap.AvgQuality,
				"threshold":   a.minQuality,
				"partial":     snap.RunsPartial,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		err := resilience.Do(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
			return a.sendWebhook(ctx, alert)
		})
		if err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}
