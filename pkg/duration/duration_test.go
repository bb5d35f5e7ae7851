package duration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Run("should parse MM:SS", func(t *testing.T) {
		seconds, err := Parse("4:05")
		assert.NoError(t, err)
		assert.Equal(t, 245, seconds)
	})

	t.Run("should parse HH:MM:SS", func(t *testing.T) {
		seconds, err := Parse("1:02:03")
		assert.NoError(t, err)
		assert.Equal(t, 3723, seconds)
	})

	t.Run("should parse zero duration", func(t *testing.T) {
		seconds, err := Parse("0:00")
		assert.NoError(t, err)
		assert.Equal(t, 0, seconds)
	})

	t.Run("should trim surrounding whitespace", func(t *testing.T) {
		seconds, err := Parse("  10:30 ")
		assert.NoError(t, err)
		assert.Equal(t, 630, seconds)
	})

	t.Run("should reject a bare number", func(t *testing.T) {
		_, err := Parse("245")
		assert.Error(t, err)
	})

	t.Run("should reject minutes of 60 or more", func(t *testing.T) {
		_, err := Parse("61:00")
		assert.Error(t, err)
	})

	t.Run("should reject seconds of 60 or more", func(t *testing.T) {
		_, err := Parse("1:60")
		assert.Error(t, err)
	})

	t.Run("should reject non-numeric components", func(t *testing.T) {
		_, err := Parse("a:05")
		assert.Error(t, err)
	})

	t.Run("should reject negative components", func(t *testing.T) {
		_, err := Parse("-1:05")
		assert.Error(t, err)
	})

	t.Run("should reject too many components", func(t *testing.T) {
		_, err := Parse("1:02:03:04")
		assert.Error(t, err)
	})
}

func TestFormat(t *testing.T) {
	t.Run("should format under an hour", func(t *testing.T) {
		assert.Equal(t, "4:05", Format(245))
	})

	t.Run("should format over an hour", func(t *testing.T) {
		assert.Equal(t, "1:02:03", Format(3723))
	})

	t.Run("should format zero", func(t *testing.T) {
		assert.Equal(t, "0:00", Format(0))
	})

	t.Run("should clamp negative values to zero", func(t *testing.T) {
		assert.Equal(t, "0:00", Format(-10))
	})
}

func TestRoundTrip(t *testing.T) {
	for _, value := range []string{"4:05", "0:59", "1:02:03", "10:00:00"} {
		seconds, err := Parse(value)
		assert.NoError(t, err)
		assert.Equal(t, value, Format(seconds))
	}
}
