// Package drugs maps brand and colloquial drug names to generic names.
package drugs

import (
	"sort"
	"strings"
)

// MatchThreshold is the minimum similarity score (0-100) a fuzzy match needs
const MatchThreshold = 85

// DefaultTable maps lowercase brand or common names to generic names
var DefaultTable = map[string]string{
	"panadol":          "Paracetamol",
	"panado":           "Paracetamol",
	"tylenol":          "Paracetamol",
	"acetaminophen":    "Paracetamol",
	"brufen":           "Ibuprofen",
	"advil":            "Ibuprofen",
	"motrin":           "Ibuprofen",
	"aspirin":          "Acetylsalicylic acid",
	"disprin":          "Acetylsalicylic acid",
	"augmentin":        "Amoxicillin/Clavulanic acid",
	"amoxil":           "Amoxicillin",
	"cipro":            "Ciprofloxacin",
	"flagyl":           "Metronidazole",
	"valium":           "Diazepam",
	"xanax":            "Alprazolam",
	"lipitor":          "Atorvastatin",
	"zoloft":           "Sertraline",
	"prozac":           "Fluoxetine",
	"lasix":            "Furosemide",
	"plavix":           "Clopidogrel",
	"metformin":        "Metformin",
	"glucophage":       "Metformin",
	"ventolin":         "Salbutamol",
	"folic acid":       "Folic Acid",
	"ferrous sulphate": "Ferrous Sulfate",
	"iron":             "Ferrous Sulfate",
}

// Normalizer resolves drug names against a brand to generic table
type Normalizer struct {
	table     map[string]string
	keys      []string
	generics  map[string]string
	threshold int
}

// NewNormalizer creates a normalizer over the default table
func NewNormalizer() *Normalizer {
	return NewNormalizerWithTable(DefaultTable, MatchThreshold)
}

// NewNormalizerWithTable creates a normalizer over a custom table and threshold
func NewNormalizerWithTable(table map[string]string, threshold int) *Normalizer {
	n := &Normalizer{
		table:     make(map[string]string, len(table)),
		generics:  make(map[string]string),
		threshold: threshold,
	}
	for brand, generic := range table {
		key := strings.ToLower(strings.TrimSpace(brand))
		n.table[key] = generic
		n.keys = append(n.keys, key)
		n.generics[strings.ToLower(generic)] = generic
	}
	sort.Strings(n.keys)
	return n
}

// Normalize returns the generic name for name. Unrecognized names come back
// unchanged so later analysis can still attempt them.
func (n *Normalizer) Normalize(name string) string {
	if name == "" {
		return ""
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ""
	}

	if generic, ok := n.table[key]; ok {
		return generic
	}
	if generic, ok := n.generics[key]; ok {
		return generic
	}

	if match, score := n.bestMatch(key); score >= n.threshold {
		return n.table[match]
	}
	return name
}

// bestMatch scans keys in sorted order; the first key with the top score wins.
func (n *Normalizer) bestMatch(query string) (string, int) {
	best, bestScore := "", -1
	for _, key := range n.keys {
		if score := Similarity(query, key); score > bestScore {
			best, bestScore = key, score
		}
	}
	return best, bestScore
}
