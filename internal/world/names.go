package world

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CanonicalName folds a player-facing name into its uniqueness bucket:
// trimmed, width-normalized, case-folded. Display names keep their typed
// form; only lookups go through this.
func CanonicalName(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}
