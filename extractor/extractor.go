// Package extractor recovers product fields from an acquired page using
// ordered, independent strategies per field.
package extractor

import (
	"log/slog"

	"github.com/use-agent/renderscraper/models"
)

// Extract runs every field extractor against page and assembles the
// result. A block-page title overrides whatever else was found.
func Extract(page Page) models.ProductResult {
	in, err := NewInput(page)
	if err != nil {
		return models.Failure(err.Error())
	}
	return Assemble(in)
}

// Assemble builds the result from an already prepared Input.
func Assemble(in *Input) models.ProductResult {
	title := ExtractTitle(in)
	if models.IsBlockTitle(title) || liveTitleBlocked(in) {
		slog.Warn("block page detected", "live", in.Live != nil)
		return models.Failure(blockMessage(in))
	}

	result := models.ProductResult{
		Title: title,
		Image: ExtractImage(in),
		Price: ExtractPrice(in),
	}
	if result.Price == 0 {
		slog.Debug("no price candidate found", "title", title)
	}
	return result
}

// liveTitleBlocked reports whether the rendered document title is the block
// marker, even when another title strategy won.
func liveTitleBlocked(in *Input) bool {
	if in.Live == nil {
		return false
	}
	title, err := in.Live.Title()
	if err != nil {
		return false
	}
	return models.IsBlockTitle(CleanTitle(title))
}

// blockMessage names the detection path: a rendered session that was
// challenged, or the origin refusing a plain fetch.
func blockMessage(in *Input) string {
	if in.Live != nil {
		return models.MsgBlockDetected
	}
	return models.MsgBlockedByOrigin
}
