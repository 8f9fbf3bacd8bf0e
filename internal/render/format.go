package render

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Format is a serialization of a rendered page.
type Format string

const (
	// FormatPDF prints the page to a paginated document.
	FormatPDF Format = "pdf"
	// FormatHTML is the rendered DOM, after client side scripts ran.
	FormatHTML Format = "html"
	// FormatMHTML is a single file web archive including page resources.
	FormatMHTML Format = "mhtml"
	// FormatMarkdown is the rendered DOM converted to markdown.
	FormatMarkdown Format = "md"
)

var formats = []Format{FormatPDF, FormatHTML, FormatMHTML, FormatMarkdown}

// Formats lists every supported format.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

// UnsupportedFormatError is returned for a format that has no exporter.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("render: unsupported format %q", e.Format)
}

// ParseFormat accepts a format name or file extension, case insensitive.
func ParseFormat(name string) (Format, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if normalized == "markdown" {
		normalized = string(FormatMarkdown)
	}
	f := Format(normalized)
	if !f.Valid() {
		return "", &UnsupportedFormatError{Format: name}
	}
	return f, nil
}

func (f Format) Valid() bool {
	for _, known := range formats {
		if f == known {
			return true
		}
	}
	return false
}

// Extension is the file extension (without a dot) exported files get.
func (f Format) Extension() string {
	return string(f)
}

// Binary reports whether the format is a binary document as opposed to text markup.
func (f Format) Binary() bool {
	return f == FormatPDF
}

func toMarkdown(contentUrl, html string) ([]byte, error) {
	converter := md.NewConverter(md.DomainFromURL(contentUrl), true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
