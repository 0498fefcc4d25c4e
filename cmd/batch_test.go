package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseToolCSV(t *testing.T) {
	path := writeCSV(t, "slug,name,url,notion_page_id\n"+
		"cursor,Cursor,https://cursor.com,page-1\n"+
		"copilot,GitHub Copilot,https://github.com/features/copilot\n"+
		"aider\n"+
		"\n")

	tools, err := parseToolCSV(path)
	require.NoError(t, err)
	require.Len(t, tools, 3)

	assert.Equal(t, model.Tool{
		Slug:         "cursor",
		Name:         "Cursor",
		WebsiteURL:   "https://cursor.com",
		NotionPageID: "page-1",
	}, tools[0])
	assert.Equal(t, "copilot", tools[1].Slug)
	assert.Empty(t, tools[1].NotionPageID)
	assert.Equal(t, model.Tool{Slug: "aider"}, tools[2])
}

func TestParseToolCSVTrimsWhitespace(t *testing.T) {
	path := writeCSV(t, "slug,name\n  cursor , Cursor \n")

	tools, err := parseToolCSV(path)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "cursor", tools[0].Slug)
	assert.Equal(t, "Cursor", tools[0].Name)
}

func TestParseToolCSVMissingFile(t *testing.T) {
	_, err := parseToolCSV("/nonexistent/tools.csv")
	require.Error(t, err)
}

func TestProcessBatchContinuesPastFailures(t *testing.T) {
	tools := []model.Tool{{Slug: "a"}, {Slug: "b"}, {Slug: "c"}}

	var calls atomic.Int64
	err := processBatch(context.Background(), tools, 2, func(ctx context.Context, tool model.Tool) (*model.CurationResult, error) {
		calls.Add(1)
		if tool.Slug == "b" {
			return nil, eris.New("boom")
		}
		return &model.CurationResult{Status: model.CurationCompleted}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestProcessBatchZeroConcurrency(t *testing.T) {
	var calls atomic.Int64
	err := processBatch(context.Background(), []model.Tool{{Slug: "a"}}, 0, func(ctx context.Context, tool model.Tool) (*model.CurationResult, error) {
		calls.Add(1)
		return &model.CurationResult{Status: model.CurationCompleted}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}
