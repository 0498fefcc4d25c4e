package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// fakeClient records calls and returns canned pages.
type fakeClient struct {
	queryResp   *notionapi.DatabaseQueryResponse
	createdReq  *notionapi.PageCreateRequest
	updatedID   string
	updatedReq  *notionapi.PageUpdateRequest
	queriedDBID string
}

func (f *fakeClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.queriedDBID = dbID
	if f.queryResp != nil {
		return f.queryResp, nil
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (f *fakeClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.createdReq = req
	return &notionapi.Page{ID: "new-page"}, nil
}

func (f *fakeClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.updatedID = pageID
	f.updatedReq = req
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func sampleEntry() WatchlistEntry {
	return WatchlistEntry{
		Tool: model.Tool{Slug: "cursor", Name: "Cursor"},
		Result: &model.CurationResult{
			Status:          model.CurationCompleted,
			ConfidenceScore: 0.9,
			QualityScore:    &model.QualityScore{Overall: 0.85},
		},
		Doc: &model.Document{
			Version: &model.VersionInfo{Current: "2.1.0"},
			Pricing: &model.Pricing{Model: "freemium"},
		},
		Curated: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishEntryCreatesWhenMissing(t *testing.T) {
	c := &fakeClient{}

	pageID, err := PublishEntry(context.Background(), c, "db-1", sampleEntry())
	require.NoError(t, err)
	assert.Equal(t, "new-page", pageID)
	assert.Equal(t, "db-1", c.queriedDBID)

	require.NotNil(t, c.createdReq)
	assert.Equal(t, notionapi.DatabaseID("db-1"), c.createdReq.Parent.DatabaseID)

	title, ok := c.createdReq.Properties[propName].(notionapi.TitleProperty)
	require.True(t, ok)
	require.NotEmpty(t, title.Title)
	assert.Equal(t, "Cursor", title.Title[0].Text.Content)

	version, ok := c.createdReq.Properties[propVersion].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "2.1.0", version.RichText[0].Text.Content)

	quality, ok := c.createdReq.Properties[propQuality].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, 0.85, quality.Number)
}

func TestPublishEntryUpdatesExistingBySlug(t *testing.T) {
	c := &fakeClient{
		queryResp: &notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "existing-page"}},
		},
	}

	pageID, err := PublishEntry(context.Background(), c, "db-1", sampleEntry())
	require.NoError(t, err)
	assert.Equal(t, "existing-page", pageID)
	assert.Equal(t, "existing-page", c.updatedID)
	assert.Nil(t, c.createdReq)
}

func TestPublishEntryUsesKnownPageID(t *testing.T) {
	c := &fakeClient{}

	entry := sampleEntry()
	entry.Tool.NotionPageID = "pinned-page"

	pageID, err := PublishEntry(context.Background(), c, "db-1", entry)
	require.NoError(t, err)
	assert.Equal(t, "pinned-page", pageID)
	// No lookup needed when the page ID is already known.
	assert.Empty(t, c.queriedDBID)
}

func TestFindToolPageNotFound(t *testing.T) {
	c := &fakeClient{}

	page, err := FindToolPage(context.Background(), c, "db-1", "unknown")
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestEntryPropertiesFallsBackToSlugTitle(t *testing.T) {
	entry := WatchlistEntry{Tool: model.Tool{Slug: "cursor"}}
	props := entryProperties(entry)

	title, ok := props[propName].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "cursor", title.Title[0].Text.Content)

	_, hasVersion := props[propVersion]
	assert.False(t, hasVersion)
	_, hasCurated := props[propLastCurated]
	assert.False(t, hasCurated)
}
