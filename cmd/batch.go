package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tooltrack-cli/internal/curation"
	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/pkg/research"
)

var (
	batchCSV   string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Curate a batch of tools from a CSV watchlist",
	Long: `Reads a CSV of tracked tools (columns: slug, name, url, notion_page_id)
and curates them concurrently. Tools are independent, so distinct tools run
in parallel; each tool is curated at most once per batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tools, err := parseToolCSV(batchCSV)
		if err != nil {
			return eris.Wrap(err, "batch: parse csv")
		}
		if batchLimit > 0 && len(tools) > batchLimit {
			tools = tools[:batchLimit]
		}
		if len(tools) == 0 {
			zap.L().Info("no tools to curate")
			return nil
		}

		if cfg.Research.Key == "" {
			return eris.New("research API key is required (TOOLTRACK_RESEARCH_KEY)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		curator := curation.FromConfig(st, cfg.Curation)
		client := research.NewClient(cfg.Research.Key,
			research.WithModel(cfg.Research.Model),
			research.WithMaxTokens(cfg.Research.MaxTokens),
			research.WithRateLimit(cfg.Research.RateLimit),
		)

		return processBatch(ctx, tools, cfg.Batch.MaxConcurrentTools, func(ctx context.Context, tool model.Tool) (*model.CurationResult, error) {
			return curator.Run(ctx, tool.Slug, collectFrom(client, tool))
		})
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to the tools CSV (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of tools to curate (0 = all)")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}

// curateFunc is the callback signature for curating one tool.
type curateFunc func(ctx context.Context, tool model.Tool) (*model.CurationResult, error)

// processBatch curates tools concurrently. Individual failures are logged
// and counted but never abort the batch.
func processBatch(ctx context.Context, tools []model.Tool, concurrency int, curate curateFunc) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("tools", len(tools)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var completed, partial, failed atomic.Int64

	for _, tool := range tools {
		g.Go(func() error {
			log := zap.L().With(zap.String("tool", tool.Slug))

			result, err := curate(gctx, tool)
			if err != nil {
				failed.Add(1)
				log.Error("curation failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			publishWatchlist(gctx, tool, result)

			switch result.Status {
			case model.CurationPartial:
				partial.Add(1)
				log.Warn("curation partial: document rejected by quality gate")
			default:
				completed.Add(1)
				versioned := result.VersionCreated != nil
				log.Info("curation complete",
					zap.Bool("changes_detected", result.ChangesDetected),
					zap.Bool("version_created", versioned),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("completed", completed.Load()),
		zap.Int64("partial", partial.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

// parseToolCSV reads the tool watchlist CSV. The first row is a header;
// column order is slug, name, url, notion_page_id, with trailing columns
// optional.
func parseToolCSV(path string) ([]model.Tool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var tools []model.Tool
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv record")
		}
		if first {
			first = false
			continue // header
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		tool := model.Tool{Slug: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			tool.Name = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			tool.WebsiteURL = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			tool.NotionPageID = strings.TrimSpace(record[3])
		}
		tools = append(tools, tool)
	}
	return tools, nil
}
