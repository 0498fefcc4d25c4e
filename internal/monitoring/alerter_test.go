package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tooltrack-cli/internal/config"
)

func TestEvaluateFailureRate(t *testing.T) {
	a := NewAlerter(config.AlertsConfig{FailureRateThreshold: 0.25, LookbackHours: 24}, 0.7)

	snap := &MetricsSnapshot{
		RunsCompleted: 4,
		RunsFailed:    3,
		FailRate:      3.0 / 7.0,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCurationFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
}

func TestEvaluateIgnoresSmallSamples(t *testing.T) {
	a := NewAlerter(config.AlertsConfig{FailureRateThreshold: 0.25}, 0.7)

	// 2 of 3 failed, but under the 5-run minimum.
	snap := &MetricsSnapshot{
		RunsCompleted: 1,
		RunsFailed:    2,
		FailRate:      2.0 / 3.0,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestEvaluateQualityDegradation(t *testing.T) {
	a := NewAlerter(config.AlertsConfig{FailureRateThreshold: 0.9}, 0.7)

	snap := &MetricsSnapshot{
		RunsCompleted: 3,
		RunsPartial:   4,
		AvgQuality:    0.55,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertQualityDegradation, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
}

func TestEvaluateHealthySnapshot(t *testing.T) {
	a := NewAlerter(config.AlertsConfig{FailureRateThreshold: 0.25}, 0.7)

	snap := &MetricsSnapshot{
		RunsCompleted: 10,
		RunsFailed:    1,
		FailRate:      1.0 / 11.0,
		AvgQuality:    0.85,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestSendAlertsPostsWebhook(t *testing.T) {
	var received Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.AlertsConfig{WebhookURL: srv.URL}, 0.7)

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertCurationFailureRate, Severity: "high", Message: "too many failures"},
	})
	assert.Equal(t, 1, sent)
	assert.Equal(t, AlertCurationFailureRate, received.Type)
}

func TestSendAlertsNoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.AlertsConfig{}, 0.7)
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertQualityDegradation}})
	assert.Zero(t, sent)
}

func TestSendAlertsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewAlerter(config.AlertsConfig{WebhookURL: srv.URL}, 0.7)
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertCurationFailureRate}})
	assert.Zero(t, sent)
}
