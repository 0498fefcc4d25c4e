package diff

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// canonicalKey normalizes a set key (feature name, tier name, integration
// key) so cosmetic encoding or casing differences do not surface as
// changes: Unicode NFC, case folding, trimmed whitespace.
func canonicalKey(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}
