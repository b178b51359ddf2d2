package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Input is the page state shared by all strategies of one extraction.
type Input struct {
	HTML string
	Doc  *goquery.Document
	Live LiveDOM // nil in plain-HTTP mode
}

// NewInput reads the page markup once and parses it for the strategies.
func NewInput(page Page) (*Input, error) {
	raw, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("extractor: read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse page html: %w", err)
	}
	in := &Input{HTML: raw, Doc: doc}
	if live, ok := page.Live(); ok {
		in.Live = live
	}
	return in, nil
}

// Strategy is one ranked rule for recovering a field value.
type Strategy[T comparable] struct {
	Name string

	// NeedsLive skips the strategy when no live DOM is available.
	NeedsLive bool

	// StaticOnly skips the strategy on rendered pages.
	StaticOnly bool

	Run func(in *Input) (T, error)
}

func (s Strategy[T]) applies(in *Input) bool {
	if s.NeedsLive && in.Live == nil {
		return false
	}
	if s.StaticOnly && in.Live != nil {
		return false
	}
	return true
}

func (s Strategy[T]) run(in *Input) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name, r)
		}
	}()
	return s.Run(in)
}

// firstHit runs the strategies in order and returns the first non-zero
// value together with the winning strategy name. Failing strategies count
// as "no candidate".
func firstHit[T comparable](field string, in *Input, strategies []Strategy[T]) (T, string) {
	var zero T
	for _, s := range strategies {
		if !s.applies(in) {
			continue
		}
		v, err := s.run(in)
		if err != nil {
			slog.Debug("strategy failed", "field", field, "strategy", s.Name, "error", err)
			continue
		}
		if v != zero {
			slog.Debug("strategy hit", "field", field, "strategy", s.Name)
			return v, s.Name
		}
	}
	return zero, ""
}
