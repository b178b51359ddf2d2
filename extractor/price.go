package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// priceContainer wraps every price badge on a product page.
const priceContainer = ".prod-price-container"

var (
	ldJSONSel    = cascadia.MustCompile(`script[type="application/ld+json"]`)
	priceMetaSel = cascadia.MustCompile(`meta[property="product:price:amount"]`)
	containerSel = cascadia.MustCompile(priceContainer)
	bodySel      = cascadia.MustCompile("body")

	salePriceField = regexp.MustCompile(`"salePrice"\s*:\s*(\d+)`)

	// altPriceFields are looked up in this order on plain-HTTP pages only.
	altPriceFields = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"discountedPrice"\s*:\s*(\d+)`),
		regexp.MustCompile(`(?i)"currentPrice"\s*:\s*(\d+)`),
		regexp.MustCompile(`(?i)"price"\s*:\s*(\d+)`),
	}

	// priceWidgets are queried in order: coupon, sale, then generic total.
	priceWidgets = []string{
		".prod-coupon-price .total-price > strong",
		".prod-sale-price .total-price > strong",
		".total-price > strong",
	}

	productTypes = map[string]bool{
		"Product":             true,
		"SoftwareApplication": true,
	}
)

// PriceStrategies are tried in this exact order; the first non-zero wins.
var PriceStrategies = []Strategy[int]{
	{Name: "json-ld", Run: jsonLDPrice},
	{Name: "live-widgets", NeedsLive: true, Run: liveWidgetPrice},
	{Name: "sale-price-json", Run: salePriceJSON},
	{Name: "alt-price-json", StaticOnly: true, Run: altPriceJSON},
	{Name: "price-meta", Run: priceMeta},
	{Name: "won-text", Run: wonTextPrice},
}

// ExtractPrice returns the price in won, or 0 when every strategy misses.
func ExtractPrice(in *Input) int {
	price, _ := firstHit("price", in, PriceStrategies)
	return price
}

// jsonLDPrice reads offers.price from the first Product-like JSON-LD item.
func jsonLDPrice(in *Input) (int, error) {
	var price int
	in.Doc.FindMatcher(ldJSONSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return true
		}
		price = productOfferPrice(data)
		return price == 0
	})
	return price, nil
}

func productOfferPrice(data any) int {
	for _, item := range ldItems(data) {
		if !isProductType(item["@type"]) {
			continue
		}
		for _, offer := range asList(item["offers"]) {
			o, ok := offer.(map[string]any)
			if !ok {
				continue
			}
			if p := offerPrice(o["price"]); p > 0 {
				return p
			}
		}
	}
	return 0
}

// ldItems flattens a JSON-LD payload (object, array or @graph) to objects.
func ldItems(data any) []map[string]any {
	var items []map[string]any
	for _, v := range asList(data) {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, obj)
		if graph, ok := obj["@graph"]; ok {
			items = append(items, ldItems(graph)...)
		}
	}
	return items
}

func isProductType(v any) bool {
	for _, t := range asList(v) {
		if s, ok := t.(string); ok && productTypes[s] {
			return true
		}
	}
	return false
}

func asList(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	default:
		return []any{x}
	}
}

// offerPrice coerces a number or numeric string via float, truncating.
func offerPrice(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f <= 0 {
		return 0
	}
	return int(f)
}

func liveWidgetPrice(in *Input) (int, error) {
	for _, sel := range priceWidgets {
		text, err := in.Live.QueryText(sel)
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(text) != "" {
			return ParseDigits(text), nil
		}
	}
	return 0, nil
}

func salePriceJSON(in *Input) (int, error) {
	return matchDigits(salePriceField, in.HTML), nil
}

func altPriceJSON(in *Input) (int, error) {
	for _, re := range altPriceFields {
		if p := matchDigits(re, in.HTML); p > 0 {
			return p, nil
		}
	}
	return 0, nil
}

func matchDigits(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	return ParseDigits(m[1])
}

func priceMeta(in *Input) (int, error) {
	return ParseDigits(metaContent(in.Doc, priceMetaSel)), nil
}

// wonTextPrice scans the price container (or the whole page) for won
// amounts and applies the plausibility filter.
func wonTextPrice(in *Input) (int, error) {
	text, err := priceAreaText(in)
	if err != nil {
		return 0, err
	}
	return PlausiblePrice(WonAmounts(text)), nil
}

func priceAreaText(in *Input) (string, error) {
	if in.Live != nil {
		text, err := in.Live.QueryText(priceContainer)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
		return in.Live.QueryText("body")
	}
	if c := in.Doc.FindMatcher(containerSel); c.Length() > 0 {
		return visibleText(c.Nodes[0]), nil
	}
	if b := in.Doc.FindMatcher(bodySel); b.Length() > 0 {
		return visibleText(b.Nodes[0]), nil
	}
	return in.HTML, nil
}

// visibleText joins the text nodes under n with spaces, skipping
// script, style and noscript content.
func visibleText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
