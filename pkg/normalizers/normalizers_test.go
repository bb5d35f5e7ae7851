package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldDiacritics(t *testing.T) {
	t.Run("should strip combining marks", func(t *testing.T) {
		assert.Equal(t, "Dvorak", FoldDiacritics("Dvořák"))
		assert.Equal(t, "Saint-Saens", FoldDiacritics("Saint-Saëns"))
		assert.Equal(t, "Janacek", FoldDiacritics("Janáček"))
	})

	t.Run("should leave plain ascii alone", func(t *testing.T) {
		assert.Equal(t, "Bach", FoldDiacritics("Bach"))
	})
}

func TestNormalizeName(t *testing.T) {
	t.Run("should fold, lowercase, and collapse whitespace", func(t *testing.T) {
		assert.Equal(t, "antonin dvorak", NormalizeName("  Antonín   Dvořák "))
	})

	t.Run("should drop punctuation", func(t *testing.T) {
		assert.Equal(t, "saintsaens", NormalizeName("Saint-Saëns"))
	})

	t.Run("should keep digits", func(t *testing.T) {
		assert.Equal(t, "symphony no 9", NormalizeName("Symphony No. 9"))
	})

	t.Run("should normalize equivalent spellings to the same value", func(t *testing.T) {
		assert.Equal(t, NormalizeName("Dvořák"), NormalizeName("dvorak"))
	})
}

func TestNormalizeCountryCode(t *testing.T) {
	t.Run("should trim and uppercase", func(t *testing.T) {
		assert.Equal(t, "DE", NormalizeCountryCode(" de "))
	})

	t.Run("should reject values that are not two letters", func(t *testing.T) {
		assert.Equal(t, "", NormalizeCountryCode("DEU"))
		assert.Equal(t, "", NormalizeCountryCode("D"))
		assert.Equal(t, "", NormalizeCountryCode(""))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("should apply registered normalizers by name", func(t *testing.T) {
		assert.Equal(t, "abc", Apply("ABC", "lowercase"))
	})

	t.Run("should pass through unknown normalizer names", func(t *testing.T) {
		assert.Equal(t, "ABC", Apply("ABC", "nope"))
	})

	t.Run("should chain normalizers in order", func(t *testing.T) {
		assert.Equal(t, "dvorak", ApplyChain(" Dvořák ", "trim", "fold_diacritics", "lowercase"))
	})

	t.Run("should expose registered normalizers via Get", func(t *testing.T) {
		fn, ok := Get("remove_whitespace")
		assert.True(t, ok)
		assert.Equal(t, "ab", fn("a b"))
	})
}
