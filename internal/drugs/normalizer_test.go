package drugs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_TableEntries(t *testing.T) {
	n := NewNormalizer()
	for brand, generic := range DefaultTable {
		assert.Equal(t, generic, n.Normalize(brand), brand)
		assert.Equal(t, generic, n.Normalize(strings.ToUpper(brand)), brand)
		assert.Equal(t, generic, n.Normalize("  "+brand+"\t"), brand)
	}
}

func TestNormalize_Empty(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("   "))
}

func TestNormalize_GenericPassesThrough(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "Paracetamol", n.Normalize("paracetamol"))
	assert.Equal(t, "Ibuprofen", n.Normalize("IBUPROFEN"))
}

func TestNormalize_FuzzyMatch(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "Paracetamol", n.Normalize("Panadoll"))
	assert.Equal(t, "Paracetamol", n.Normalize("tylenoll"))
	assert.Equal(t, "Diazepam", n.Normalize("valiumm"))
}

func TestNormalize_BrandWithStrengthOrVariant(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "Paracetamol", n.Normalize("Tylenol 500mg"))
	assert.Equal(t, "Paracetamol", n.Normalize("Panadol Extra"))
	assert.Equal(t, "Ibuprofen", n.Normalize("Advil Liqui-Gels"))
}

func TestNormalize_BelowThresholdUnchanged(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "Warfarin", n.Normalize("Warfarin"))
	assert.Equal(t, "Thalidomide", n.Normalize("Thalidomide"))
}

func TestNormalize_ThresholdBoundary(t *testing.T) {
	table := map[string]string{"panado": "Paracetamol"}
	score := Similarity("panadoll", "panado")
	assert.Equal(t, 86, score)

	assert.Equal(t, "Paracetamol", NewNormalizerWithTable(table, score).Normalize("panadoll"))
	assert.Equal(t, "panadoll", NewNormalizerWithTable(table, score+1).Normalize("panadoll"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("aspirin", "Aspirin"))
	assert.Equal(t, 93, Similarity("panadoll", "panadol"))
	assert.Equal(t, 95, Similarity("sulphate ferrous", "ferrous sulphate"))
	assert.Equal(t, 0, Similarity("abc", "xyz"))
	assert.Equal(t, 0, Similarity("", ""))
	assert.Equal(t, 0, Similarity("aspirin", "  "))
}

func TestSimilarity_LongerInputUsesPartialAlignment(t *testing.T) {
	assert.Equal(t, 90, Similarity("Tylenol 500mg", "tylenol"))
	assert.Equal(t, 90, Similarity("tylenol500mg", "tylenol"))
	assert.Equal(t, 90, Similarity("Advil Liqui-Gels", "advil"))

	// length ratio of 8 or more
	assert.Equal(t, 60, Similarity("ironsupplementtabletsforpregnancy", "iron"))
}
