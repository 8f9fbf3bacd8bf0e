package pipeline

import (
	"net/url"
	"path"
	"strings"

	"kittexport/internal/render"
)

// FileName derives the exported file name from the last path segment of the
// content url, with its extension replaced by the format's.
//
//	https://portal.example/content/intro.html -> intro.pdf
//	https://portal.example/content/           -> index.pdf
func FileName(contentUrl *url.URL, format render.Format) string {
	segment := "index"
	if p := contentUrl.Path; p != "" && !strings.HasSuffix(p, "/") {
		segment = path.Base(p)
	}
	stem := strings.TrimSuffix(segment, path.Ext(segment))
	if stem == "" {
		stem = segment
	}
	return stem + "." + format.Extension()
}
