package appstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTarget(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input     string
		wantKey   string
		wantValue string
	}{
		{"1459969523", "id", "1459969523"},
		{"com.example.fishid", "bundleId", "com.example.fishid"},
		{"https://apps.apple.com/us/app/fish-identifier/id1459969523", "id", "1459969523"},
		{"apps.apple.com/us/app/fish-identifier/id1459969523", "id", "1459969523"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			target, err := DetectTarget(tc.input)
			require.NoError(t, err)
			key, value, err := target.Query()
			require.NoError(t, err)
			assert.Equal(t, tc.wantKey, key)
			assert.Equal(t, tc.wantValue, value)
		})
	}
}

func TestDetectTargetRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "nodots", "https://apps.apple.com/us/app/no-id-here"} {
		_, err := DetectTarget(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestValidateAttribute(t *testing.T) {
	t.Parallel()

	for _, attr := range []SearchAttribute{
		"", AttributeDeveloper, AttributeDescription, AttributeKeywords, AttributeGenre, AttributeRating,
	} {
		assert.NoError(t, ValidateAttribute(attr))
	}
	assert.Error(t, ValidateAttribute("artistTerm"))
	assert.Error(t, ValidateAttribute("titleTerm"))
}

func TestStorefrontCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "US", StorefrontCode("United States"))
	assert.Equal(t, "GB", StorefrontCode("United Kingdom"))
	assert.Equal(t, "DE", StorefrontCode("de"))
	assert.Equal(t, "US", StorefrontCode("Atlantis"))
}
