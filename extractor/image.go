package extractor

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

var ogImageSel = cascadia.MustCompile(`meta[property="og:image"]`)

// ExtractImage returns the og:image URL with protocol-relative URLs pinned
// to https. There is no fallback; "" is a valid result.
func ExtractImage(in *Input) string {
	return NormalizeImageURL(metaContent(in.Doc, ogImageSel))
}

// NormalizeImageURL rewrites "//host/x" to "https://host/x".
func NormalizeImageURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
