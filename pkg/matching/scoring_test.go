package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactMatch(t *testing.T) {
	scorer := NewScorer()

	t.Run("should match identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.ExactMatch("bach", "bach", true))
	})

	t.Run("should ignore case when insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.ExactMatch("Bach", "bach", false))
	})

	t.Run("should respect case when sensitive", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.ExactMatch("Bach", "bach", true))
	})
}

func TestJaroWinkler(t *testing.T) {
	scorer := NewScorer()

	t.Run("should return 1.0 for identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.JaroWinkler("dvorak", "dvorak"))
	})

	t.Run("should return 0.0 for nothing in common", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.JaroWinkler("abc", "xyz"))
	})

	t.Run("should score near-identical names high", func(t *testing.T) {
		assert.Greater(t, scorer.JaroWinkler("antonin dvorak", "antonin dvorack"), 0.9)
	})

	t.Run("should score unrelated names low", func(t *testing.T) {
		assert.Less(t, scorer.JaroWinkler("johann bach", "igor stravinsky"), 0.7)
	})

	t.Run("should be symmetric", func(t *testing.T) {
		assert.InDelta(t, scorer.JaroWinkler("martha", "marhta"), scorer.JaroWinkler("marhta", "martha"), 1e-9)
	})

	t.Run("should boost shared prefixes over plain jaro", func(t *testing.T) {
		jaro := scorer.Jaro("dwayne", "duane")
		jw := scorer.JaroWinkler("dwayne", "duane")
		assert.Greater(t, jw, jaro)
	})
}

func TestJaro(t *testing.T) {
	scorer := NewScorer()

	t.Run("should handle empty strings", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.Jaro("", "abc"))
		assert.Equal(t, 0.0, scorer.Jaro("abc", ""))
	})

	t.Run("should match the known martha example", func(t *testing.T) {
		assert.InDelta(t, 0.9444, scorer.Jaro("martha", "marhta"), 0.001)
	})
}

func TestLevenshtein(t *testing.T) {
	scorer := NewScorer()

	t.Run("should count edits", func(t *testing.T) {
		assert.Equal(t, 3, scorer.LevenshteinDistance("kitten", "sitting"))
		assert.Equal(t, 0, scorer.LevenshteinDistance("same", "same"))
		assert.Equal(t, 4, scorer.LevenshteinDistance("", "abcd"))
	})

	t.Run("should normalize distance to a similarity", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.Levenshtein("", ""))
		assert.InDelta(t, 1.0-3.0/7.0, scorer.Levenshtein("kitten", "sitting"), 1e-9)
	})
}

func TestNumericProximity(t *testing.T) {
	scorer := NewScorer()

	t.Run("should return 1.0 for equal values", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.NumericProximity(1841, 1841, 5))
	})

	t.Run("should return 0.0 at or beyond the max difference", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.NumericProximity(1841, 1846, 5))
	})

	t.Run("should scale linearly within the window", func(t *testing.T) {
		assert.InDelta(t, 0.8, scorer.NumericProximity(1841, 1842, 5), 1e-9)
	})
}
