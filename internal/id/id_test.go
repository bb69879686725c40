package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUsesPrefix(t *testing.T) {
	got, err := Generate("tab")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "tab-"))
	assert.Greater(t, len(got), len("tab-"))
}

func TestGenerateIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		got := MustGenerate("ses")
		assert.False(t, seen[got])
		seen[got] = true
	}
}
