package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Dune.txt", "Dune.txt"},
		{"trims", "  Dune.txt \n", "Dune.txt"},
		{"flattens control whitespace", "War\tand\r\nPeace.pdf", "War and Peace.pdf"},
		{"collapses spaces", "A    Tale   of Two.txt", "A Tale of Two.txt"},
		{"empty stays empty", "   ", ""},
		{"unicode", "Мастер и Маргарита.txt", "Мастер и Маргарита.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDisplayName(tt.input))
		})
	}
}

func TestNormalizeDisplayName_KeepsExtensionWhenTruncating(t *testing.T) {
	long := strings.Repeat("a", 400) + ".pdf"

	got := NormalizeDisplayName(long)

	assert.LessOrEqual(t, len(got), MaxDisplayNameLength)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}

func TestNormalizeDisplayName_TruncationDropsStemTail(t *testing.T) {
	long := "head-" + strings.Repeat("m", 300) + "-tail.epub"

	got := NormalizeDisplayName(long)

	assert.True(t, strings.HasPrefix(got, "head-"))
	assert.NotContains(t, got, "-tail")
	assert.True(t, strings.HasSuffix(got, "m.epub"))
}

func TestNormalizeDisplayName_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ж", 200) + ".txt"

	got := NormalizeDisplayName(long)

	assert.LessOrEqual(t, len(got), MaxDisplayNameLength)
	assert.True(t, strings.HasSuffix(got, ".txt"))
	assert.True(t, strings.HasPrefix(got, "жж"))
	assert.NotContains(t, got, "�")
}
