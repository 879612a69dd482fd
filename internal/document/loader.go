// Package document turns a book locator into readable text. It is the
// boundary to document byte decoding: nothing here touches the store, so a
// failed decode leaves all persisted state as it was.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"rsc.io/pdf"

	"github.com/mrlokans/readtrack/internal/entities"
)

var (
	ErrDecode             = errors.New("failed to decode document")
	ErrUnsupportedLocator = errors.New("unsupported locator")
)

const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1251 = "windows-1251"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Document struct {
	Locator  string              `json:"uri"`
	Format   entities.BookFormat `json:"format"`
	Encoding string              `json:"encoding,omitempty"`
	Text     string              `json:"text"`
	Pages    int                 `json:"pages,omitempty"`
}

type Loader struct {
	// MaxBytes rejects larger files; 0 means no limit.
	MaxBytes int64
}

func NewLoader(maxBytes int64) *Loader {
	return &Loader{MaxBytes: maxBytes}
}

// Load reads and decodes the document behind locator.
func (l *Loader) Load(ctx context.Context, locator string, format entities.BookFormat) (*Document, error) {
	path, err := LocalPath(locator)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if l.MaxBytes > 0 && info.Size() > l.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrDecode, path, info.Size(), l.MaxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	doc := &Document{Locator: locator, Format: format}
	switch format {
	case entities.BookFormatPDF:
		doc.Text, doc.Pages, err = DecodePDF(data)
	default:
		doc.Text, doc.Encoding, err = DecodeText(data)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LocalPath maps a file:// URI or a bare path to a filesystem path.
func LocalPath(locator string) (string, error) {
	if !strings.Contains(locator, "://") {
		if locator == "" {
			return "", fmt.Errorf("%w: empty locator", ErrUnsupportedLocator)
		}
		return locator, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedLocator, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedLocator, u.Scheme)
	}
	return u.Path, nil
}

// DecodeText decodes UTF-8 (with or without BOM) and falls back to the
// Windows-1251 legacy codepage. NUL bytes mark binary content.
func DecodeText(data []byte) (string, string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", "", fmt.Errorf("%w: binary content", ErrDecode)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(decoded), EncodingWindows1251, nil
}

// DecodePDF extracts the text of every page. Glyph runs on the same line are
// concatenated; a change of baseline starts a new line.
func DecodePDF(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("%w: malformed pdf: %v", ErrDecode, r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var b strings.Builder
	total := doc.NumPage()
	for i := 1; i <= total; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		if i > 1 {
			b.WriteString("\n\n")
		}

		var lastY float64
		for j, t := range p.Content().Text {
			if j > 0 && t.Y != lastY {
				b.WriteByte('\n')
			}
			lastY = t.Y
			b.WriteString(t.S)
		}
	}
	return b.String(), total, nil
}
