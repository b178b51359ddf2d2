package extractor

// Page is one acquired representation of a product page. Static markup is
// always readable; the live capability exists only for rendered sessions.
type Page interface {
	// HTML returns the current static markup of the page.
	HTML() (string, error)

	// Live returns the live DOM capability, or false in plain-HTTP mode.
	Live() (LiveDOM, bool)
}

// LiveDOM is the script-executable view of a rendered page.
type LiveDOM interface {
	// Title returns the browser's current document title.
	Title() (string, error)

	// QueryText returns the innerText of the first element matching
	// selector, or "" when nothing matches.
	QueryText(selector string) (string, error)
}

// StaticPage is an immutable HTML blob fetched without rendering.
type StaticPage string

func (p StaticPage) HTML() (string, error) { return string(p), nil }

func (StaticPage) Live() (LiveDOM, bool) { return nil, false }
