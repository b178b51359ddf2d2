package engine

import (
	"context"
	"sync"

	"github.com/use-agent/renderscraper/extractor"
)

// Engine acquires a product page in one of the two acquisition modes.
type Engine interface {
	// Name returns the engine identifier ("rod" or "http").
	Name() string

	// Acquire loads url and reports the outcome as a tagged value. The
	// caller must Release the returned acquisition, whatever its outcome.
	Acquire(ctx context.Context, url string) *Acquisition
}

// Outcome tags the result of an acquisition attempt.
type Outcome int

const (
	// Ready: Page is loaded and may be extracted.
	Ready Outcome = iota

	// Unavailable: the engine could not start (e.g. the browser failed to
	// launch). The caller may try another engine.
	Unavailable

	// Blocked: the origin served its block page. Err carries the message.
	Blocked

	// Failed: the engine started but the page could not be loaded.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case Unavailable:
		return "unavailable"
	case Blocked:
		return "blocked"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Acquisition is the result of Engine.Acquire.
type Acquisition struct {
	Outcome Outcome
	Engine  string

	// Page is set only when Outcome is Ready.
	Page extractor.Page

	// Err describes every non-Ready outcome.
	Err error

	once    sync.Once
	release func()
}

// Reason returns Err as a string, or "" when there is none.
func (a *Acquisition) Reason() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// Release frees the resources held by the acquisition. It is safe to call
// more than once and on acquisitions that hold nothing.
func (a *Acquisition) Release() {
	a.once.Do(func() {
		if a.release != nil {
			a.release()
		}
	})
}

// OnRelease registers fn to run on the first Release. Engines outside this
// package use it to attach their cleanup.
func (a *Acquisition) OnRelease(fn func()) *Acquisition {
	a.release = fn
	return a
}
