package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// Watchlist database property names. The database schema is owned by the
// research team; these must match it exactly.
const (
	propName         = "Name"
	propSlug         = "Slug"
	propVersion      = "Current Version"
	propPricingModel = "Pricing Model"
	propQuality      = "Quality"
	propConfidence   = "Confidence"
	propLastCurated  = "Last Curated"
	propStatus       = "Status"
)

// WatchlistEntry is the publishable summary of a curation outcome.
type WatchlistEntry struct {
	Tool    model.Tool
	Result  *model.CurationResult
	Doc     *model.Document
	Curated time.Time
}

// FindToolPage locates the watchlist page whose Slug property matches the
// tool slug. Returns (nil, nil) when no page exists yet.
func FindToolPage(ctx context.Context, c Client, dbID, slug string) (*notionapi.Page, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: propSlug,
			RichText: &notionapi.TextFilterCondition{
				Equals: slug,
			},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: find tool page %s", slug)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// PublishEntry upserts the watchlist row for a tool: updates the existing
// page when one matches the slug, creates a fresh one otherwise. Returns
// the page ID.
func PublishEntry(ctx context.Context, c Client, dbID string, entry WatchlistEntry) (string, error) {
	props := entryProperties(entry)

	pageID := entry.Tool.NotionPageID
	if pageID == "" {
		page, err := FindToolPage(ctx, c, dbID, entry.Tool.Slug)
		if err != nil {
			return "", err
		}
		if page != nil {
			pageID = string(page.ID)
		}
	}

	if pageID != "" {
		page, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
			Properties: props,
		})
		if err != nil {
			return "", eris.Wrapf(err, "notion: publish entry %s", entry.Tool.Slug)
		}
		return string(page.ID), nil
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", eris.Wrapf(err, "notion: publish entry %s", entry.Tool.Slug)
	}
	return string(page.ID), nil
}

// entryProperties builds the property map for a watchlist upsert. Fields
// missing from the document are left untouched on the page.
func entryProperties(entry WatchlistEntry) notionapi.Properties {
	name := entry.Tool.Name
	if name == "" {
		name = entry.Tool.Slug
	}

	props := notionapi.Properties{
		propName: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Text: &notionapi.Text{Content: name}},
			},
		},
		propSlug: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{Text: &notionapi.Text{Content: entry.Tool.Slug}},
			},
		},
	}

	if entry.Doc != nil {
		if entry.Doc.Version != nil && entry.Doc.Version.Current != "" {
			props[propVersion] = notionapi.RichTextProperty{
				RichText: []notionapi.RichText{
					{Text: &notionapi.Text{Content: entry.Doc.Version.Current}},
				},
			}
		}
		if entry.Doc.Pricing != nil && entry.Doc.Pricing.Model != "" {
			props[propPricingModel] = notionapi.SelectProperty{
				Select: notionapi.Option{Name: entry.Doc.Pricing.Model},
			}
		}
	}

	if entry.Result != nil {
		props[propStatus] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(entry.Result.Status)},
		}
		if entry.Result.QualityScore != nil {
			quality := entry.Result.QualityScore.Overall
			props[propQuality] = notionapi.NumberProperty{Number: quality}
		}
		props[propConfidence] = notionapi.NumberProperty{Number: entry.Result.ConfidenceScore}
	}

	if !entry.Curated.IsZero() {
		props[propLastCurated] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&entry.Curated),
			},
		}
	}

	return props
}
