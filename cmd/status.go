package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tooltrack-cli/internal/monitoring"
)

var (
	statusLookback int
	statusAlert    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show curation health metrics",
	Long: `Collects run metrics over the lookback window and prints them as JSON.
With --alert, threshold breaches are also delivered to the configured
webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback := statusLookback
		if lookback <= 0 {
			lookback = cfg.Alerts.LookbackHours
		}
		if lookback <= 0 {
			lookback = 24
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "collect metrics")
		}

		alerter := monitoring.NewAlerter(cfg.Alerts, cfg.Curation.MinQualityThreshold)
		alerts := alerter.Evaluate(snap)

		if statusAlert && len(alerts) > 0 {
			sent := alerter.SendAlerts(ctx, alerts)
			zap.L().Info("alerts delivered", zap.Int("sent", sent), zap.Int("total", len(alerts)))
		}

		out := struct {
			Metrics *monitoring.MetricsSnapshot `json:"metrics"`
			Alerts  []monitoring.Alert          `json:"alerts,omitempty"`
		}{snap, alerts}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 0, "lookback window in hours (default from config)")
	statusCmd.Flags().BoolVar(&statusAlert, "alert", false, "send threshold breaches to the alert webhook")
	rootCmd.AddCommand(statusCmd)
}
