package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("RECIBO LUZ IBERDROLA", "recibo luz iberdrola"))
}

func TestSimilarity_PartialOverlap(t *testing.T) {
	// Two of four tokens match.
	got := Similarity("transferencia nomina marzo empresa", "transferencia abono nomina")
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestSimilarity_NoOverlap(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("recibo luz", "alquiler oficina"))
}

func TestSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "recibo luz"))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("- / .", "recibo"), "punctuation-only text has no tokens")
}

func TestSimilarity_FuzzyTokens(t *testing.T) {
	// One-edit typos on long tokens still match.
	assert.Equal(t, 1.0, Similarity("iberdrola", "iberdola"))
	assert.Equal(t, 1.0, Similarity("iberdrola", "iberdrolas"))

	// Short tokens must match exactly.
	assert.Equal(t, 0.0, Similarity("luz", "gas"))
	assert.Equal(t, 0.0, Similarity("abc", "abd"))
}

func TestSimilarity_NormalizedByLongerSide(t *testing.T) {
	// All three tokens of the short side match, but the long side has six.
	got := Similarity("recibo luz iberdrola", "recibo luz iberdrola contrato 4455 marzo")
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestTokenize(t *testing.T) {
	got := tokenize("TRANSF/1234: Nómina-Marzo  (empresa S.A.)")
	assert.Equal(t, []string{"transf", "1234", "nómina", "marzo", "empresa"}, got)
}
