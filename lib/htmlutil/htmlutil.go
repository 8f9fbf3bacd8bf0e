package htmlutil

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Query is the small set of operations scrapers need from a parsed html
// document, selectors are css selectors.
type Query interface {
	// FindAll returns every descendant matching selector, in document order.
	FindAll(selector string) []Query
	// FindFirst returns the first descendant matching selector in document order.
	FindFirst(selector string) (Query, bool)
	// Text is the concatenated text content of the node.
	Text() string
	// Attr returns the value of an attribute.
	Attr(name string) (string, bool)
}

// Parse reads an html document into a Query backed by goquery.
func Parse(r io.Reader) (Query, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return selection{sel: doc.Selection}, nil
}

// ParseString is Parse for an in-memory document.
func ParseString(document string) (Query, error) {
	return Parse(strings.NewReader(document))
}

type selection struct {
	sel *goquery.Selection
}

func (s selection) FindAll(selector string) []Query {
	found := s.sel.Find(selector)
	out := make([]Query, 0, found.Length())
	found.Each(func(_ int, child *goquery.Selection) {
		out = append(out, selection{sel: child})
	})
	return out
}

func (s selection) FindFirst(selector string) (Query, bool) {
	found := s.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return selection{sel: found}, true
}

func (s selection) Text() string {
	var buffer bytes.Buffer
	for _, n := range s.sel.Nodes {
		getTextRecursive(n, &buffer)
	}
	return buffer.String()
}

func (s selection) Attr(name string) (string, bool) {
	return s.sel.Attr(name)
}

// GetText returns the text content of node and all its descendants.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Normalize trims text and collapses runs of whitespace into a single space.
func Normalize(text string) string {
	text = removeNonPrintable(text)
	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}
