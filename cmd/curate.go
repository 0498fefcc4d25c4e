package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tooltrack-cli/internal/curation"
	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/pkg/notion"
	"github.com/sells-group/tooltrack-cli/pkg/research"
)

var (
	curateSlug       string
	curateName       string
	curateURL        string
	curateInput      string
	curateNotionPage string
)

var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Run curation for a single tool",
	Long: `Collects a fresh snapshot for a tool (via the research service, or from
a JSON file with --input), detects changes against the current snapshot,
scores them, and promotes the document when it clears the quality gate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tool := model.Tool{
			Slug:         curateSlug,
			Name:         curateName,
			WebsiteURL:   curateURL,
			NotionPageID: curateNotionPage,
		}

		curator := curation.FromConfig(st, cfg.Curation)

		var result *model.CurationResult
		var runErr error
		if curateInput != "" {
			doc, err := readDocument(curateInput)
			if err != nil {
				return err
			}
			result, runErr = curator.Curate(ctx, tool.Slug, doc)
		} else {
			if cfg.Research.Key == "" {
				return eris.New("research API key is required (TOOLTRACK_RESEARCH_KEY) unless --input is given")
			}
			client := research.NewClient(cfg.Research.Key,
				research.WithModel(cfg.Research.Model),
				research.WithMaxTokens(cfg.Research.MaxTokens),
				research.WithRateLimit(cfg.Research.RateLimit),
			)
			result, runErr = curator.Run(ctx, tool.Slug, collectFrom(client, tool))
		}

		if result != nil {
			publishWatchlist(ctx, tool, result)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(result); encErr != nil {
				return eris.Wrap(encErr, "encode result")
			}
		}
		return runErr
	},
}

func init() {
	curateCmd.Flags().StringVar(&curateSlug, "tool", "", "tool slug (required)")
	curateCmd.Flags().StringVar(&curateName, "name", "", "tool display name")
	curateCmd.Flags().StringVar(&curateURL, "url", "", "tool website URL")
	curateCmd.Flags().StringVar(&curateInput, "input", "", "path to a JSON document file (skips research collection)")
	curateCmd.Flags().StringVar(&curateNotionPage, "notion-page", "", "Notion watchlist page ID")
	_ = curateCmd.MarkFlagRequired("tool")
	rootCmd.AddCommand(curateCmd)
}

// collectFrom adapts the research client to the curator's collection hook.
func collectFrom(client research.Client, tool model.Tool) curation.CollectFunc {
	return func(ctx context.Context) (*model.Document, error) {
		snap, err := client.Collect(ctx, tool)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("research snapshot collected",
			zap.String("tool", tool.Slug),
			zap.Float64("reported_confidence", snap.Confidence),
		)
		return &snap.Document, nil
	}
}

// readDocument loads a Document from a JSON file.
func readDocument(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read document %s", path)
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "decode document %s", path)
	}
	return &doc, nil
}

// publishWatchlist updates the Notion watchlist entry for the tool.
// Publishing is best-effort: curation already succeeded or failed on its
// own terms, and a Notion outage should not change the exit status.
func publishWatchlist(ctx context.Context, tool model.Tool, result *model.CurationResult) {
	if cfg.Notion.Token == "" || cfg.Notion.WatchlistDB == "" {
		return
	}

	var doc *model.Document
	if result.VersionCreated != nil {
		doc = &result.VersionCreated.Document
	}

	client := notion.NewClient(cfg.Notion.Token)
	pageID, err := notion.PublishEntry(ctx, client, cfg.Notion.WatchlistDB, notion.WatchlistEntry{
		Tool:    tool,
		Result:  result,
		Doc:     doc,
		Curated: time.Now().UTC(),
	})
	if err != nil {
		zap.L().Warn("failed to publish watchlist entry",
			zap.String("tool", tool.Slug),
			zap.Error(err),
		)
		return
	}
	zap.L().Info("watchlist entry published",
		zap.String("tool", tool.Slug),
		zap.String("page_id", pageID),
	)
}
