package research

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseSnapshot extracts a Snapshot from raw model output. Models sometimes
// fence the JSON in markdown code blocks; strip those before decoding.
func ParseSnapshot(raw string) (*Snapshot, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil, eris.New("research: empty response")
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(cleaned), &snap); err != nil {
		return nil, eris.Wrap(err, "research: decode snapshot")
	}

	if snap.Confidence < 0 {
		snap.Confidence = 0
	}
	if snap.Confidence > 1 {
		snap.Confidence = 1
	}
	return &snap, nil
}
