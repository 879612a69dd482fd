package utils

import (
	"regexp"
	"strings"
)

var (
	// Control whitespace that should never reach a display name
	whitespaceChars = regexp.MustCompile(`[\r\n\t]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// MaxDisplayNameLength bounds a display name in bytes, extension included.
const MaxDisplayNameLength = 255

// NormalizeDisplayName flattens control whitespace, collapses runs of spaces
// and trims the result. Overlong names lose runes from the end of the stem so
// the extension, which decides the book format, survives.
func NormalizeDisplayName(name string) string {
	name = whitespaceChars.ReplaceAllString(name, " ")
	name = multipleSpaces.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	if len(name) <= MaxDisplayNameLength {
		return name
	}

	ext := ""
	if dot := strings.LastIndex(name, "."); dot > 0 && len(name)-dot <= 10 {
		ext = name[dot:]
	}
	stem := []rune(strings.TrimSuffix(name, ext))
	for len(string(stem))+len(ext) > MaxDisplayNameLength {
		stem = stem[:len(stem)-1]
	}
	return strings.TrimSpace(string(stem)) + ext
}
