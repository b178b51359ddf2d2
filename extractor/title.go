package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	ogTitleSel = cascadia.MustCompile(`meta[property="og:title"]`)

	// siteSuffix is the " | 쿠팡 ..." / " - 쿠팡" tail appended to page titles.
	siteSuffix = regexp.MustCompile(`\s*[|\-–]\s*쿠팡.*$`)
)

// TitleStrategies are tried in order; the winner is passed to CleanTitle.
var TitleStrategies = []Strategy[string]{
	{Name: "og-title", Run: ogTitle},
	{Name: "live-title", NeedsLive: true, Run: liveTitle},
	{Name: "html-title", Run: htmlTitle},
}

// CleanTitle collapses whitespace and strips the trailing site-name suffix.
func CleanTitle(raw string) string {
	collapsed := strings.Join(strings.Fields(raw), " ")
	return strings.TrimSpace(siteSuffix.ReplaceAllString(collapsed, ""))
}

// ExtractTitle returns the cleaned title, or "" when no strategy hits.
func ExtractTitle(in *Input) string {
	raw, _ := firstHit("title", in, TitleStrategies)
	return CleanTitle(raw)
}

func ogTitle(in *Input) (string, error) {
	return metaContent(in.Doc, ogTitleSel), nil
}

func liveTitle(in *Input) (string, error) {
	title, err := in.Live.Title()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(title), nil
}

// htmlTitle uses the Go HTML tokenizer to read the first <title> element.
func htmlTitle(in *Input) (string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(in.HTML))
	inTitle := false
	var buf strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String()), nil
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				buf.Write(tokenizer.Text())
			}
		case html.EndTagToken:
			if inTitle {
				return strings.TrimSpace(buf.String()), nil
			}
		}
	}
}

// metaContent returns the trimmed content attribute of the first match.
func metaContent(doc *goquery.Document, sel cascadia.Selector) string {
	content, _ := doc.FindMatcher(sel).First().Attr("content")
	return strings.TrimSpace(content)
}
