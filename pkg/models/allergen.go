package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var allergenFolder = cases.Fold()

// NormalizeAllergen canonicalises an allergen name for set comparison.
// Composed and decomposed spellings of the same Vietnamese name compare equal.
func NormalizeAllergen(name string) string {
	return allergenFolder.String(norm.NFC.String(strings.TrimSpace(name)))
}

// AllergenSet builds a lookup set of normalised allergen names.
func AllergenSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if n := NormalizeAllergen(name); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
