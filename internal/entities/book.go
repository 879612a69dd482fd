package entities

import (
	"path"
	"strings"
)

type BookFormat string

const (
	BookFormatPlaintext BookFormat = "plaintext"
	BookFormatPDF       BookFormat = "pdf"
)

// Book is an imported document in the catalog. Books are stored together as
// one JSON array under the "books" key.
type Book struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Locator  string     `json:"uri"`
	Format   BookFormat `json:"format"`
	Favorite bool       `json:"favorite"`
}

// FormatFromName classifies a document by its filename suffix.
func FormatFromName(name string) BookFormat {
	if strings.EqualFold(path.Ext(name), ".pdf") {
		return BookFormatPDF
	}
	return BookFormatPlaintext
}

// ProgressRecord maps book IDs to a completion fraction in [0, 100].
type ProgressRecord map[string]float64
