package domain

import (
	"strings"

	"github.com/agext/levenshtein"
)

// fuzzyMatchThreshold is the minimum normalized similarity (0..1) for a
// fuzzy correction to replace the input name.
const fuzzyMatchThreshold = 0.80

// Barangay is a leaf node of the administrative hierarchy.
type Barangay struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Municipality is a top-level node owning its barangays in PSGC order.
type Municipality struct {
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Barangays []Barangay `json:"barangays"`
}

// ReferenceTree is the two-level administrative hierarchy for one province.
// Codes are unique across the tree; names are uppercase and trimmed. The
// tree is built once per run and treated as read-only afterwards.
type ReferenceTree []Municipality

// FindMunicipality returns the municipality whose canonical name equals the
// given name, compared case-insensitively after trimming. Returns nil when
// no municipality matches.
func (t ReferenceTree) FindMunicipality(name string) *Municipality {
	want := CanonicalName(name)
	for i := range t {
		if t[i].Name == want {
			return &t[i]
		}
	}
	return nil
}

// FindBarangay returns the barangay of m whose canonical name equals the
// given name, or nil when none matches.
func (m *Municipality) FindBarangay(name string) *Barangay {
	want := CanonicalName(name)
	for i := range m.Barangays {
		if m.Barangays[i].Name == want {
			return &m.Barangays[i]
		}
	}
	return nil
}

// FuzzyMatch returns the candidate closest to name by Levenshtein
// similarity when the similarity exceeds the fixed threshold, otherwise the
// input unchanged. Comparison is done on canonical (uppercased) forms.
//
// Validation currently relies on exact matching only and carries unmatched
// names with a nil code; this helper mirrors the reference design and is
// kept available for an explicit fuzzy-correction extension.
func FuzzyMatch(name string, candidates []string) string {
	upper := CanonicalName(name)

	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := levenshtein.Similarity(upper, CanonicalName(c), nil)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore > fuzzyMatchThreshold {
		return best
	}
	return name
}

// CanonicalName uppercases and trims a location name, the form stored in
// the reference tree.
func CanonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
