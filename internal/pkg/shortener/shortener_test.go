package shortener

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureSlug_InvalidLength(t *testing.T) {
	t.Parallel()

	_, err := GenerateSecureSlug(0)
	assert.Error(t, err)
}

func TestGenerateSecureSlug_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	slug, err := GenerateSecureSlug(24)
	require.NoError(t, err)
	assert.Len(t, slug, 24)
	assert.True(t, IsSlug(slug, 24))
}

func TestGenerateSecureSlug_UniqueWithinSmallBatch(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		slug, err := GenerateSecureSlug(10)
		require.NoError(t, err)
		_, exists := seen[slug]
		require.False(t, exists, "duplicate slug generated in small batch: %s", slug)
		seen[slug] = struct{}{}
	}
}

func TestIsSlug(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSlug(strings.Repeat("aZ9", 8), 24))
	assert.False(t, IsSlug("short", 24))
	assert.False(t, IsSlug(strings.Repeat("a", 23)+"-", 24))
	assert.False(t, IsSlug(strings.Repeat("a", 23)+"/", 24))
}
