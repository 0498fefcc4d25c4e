package model

import "time"

// VersionRecord is an immutable, sequentially numbered historical snapshot
// of a tool's Document. Version numbers are assigned by the store, are
// strictly increasing per tool, and are never reused.
type VersionRecord struct {
	VersionNumber     int          `json:"version_number"`
	Document          Document     `json:"document"`
	CreatedAt         time.Time    `json:"created_at"`
	TriggeringChanges []DataChange `json:"triggering_changes"`
}

// CurationStatus represents the current state of a curation run.
type CurationStatus string

const (
	CurationQueued     CurationStatus = "queued"
	CurationCollecting CurationStatus = "collecting"
	CurationAnalyzing  CurationStatus = "analyzing"
	CurationCompleted  CurationStatus = "completed"
	CurationPartial    CurationStatus = "partial"
	CurationFailed     CurationStatus = "failed"
)

// CurationResult is the final outcome of one curation run.
type CurationResult struct {
	Status          CurationStatus  `json:"status"`
	ChangesDetected bool            `json:"changes_detected"`
	ChangeAnalysis  *ChangeAnalysis `json:"change_analysis,omitempty"`
	QualityScore    *QualityScore   `json:"quality_score,omitempty"`
	ConfidenceScore float64         `json:"confidence_score"`
	VersionCreated  *VersionRecord  `json:"version_created,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// CurationRun records a single curation invocation for a tool.
type CurationRun struct {
	ID        string          `json:"id"`
	Tool      string          `json:"tool"`
	Status    CurationStatus  `json:"status"`
	Result    *CurationResult `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Tool identifies a tracked AI tool for curation.
type Tool struct {
	Slug         string `json:"slug"`
	Name         string `json:"name,omitempty"`
	WebsiteURL   string `json:"website_url,omitempty"`
	NotionPageID string `json:"notion_page_id,omitempty"`
}
