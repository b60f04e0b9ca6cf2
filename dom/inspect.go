package dom

import (
	"context"

	"github.com/use-agent/pbiscrape/models"
)

// Inspect returns the computed style properties of n at call time.
//
// When the element cannot be read (typically because it was detached after
// the handle was acquired) Inspect logs a warning and returns an empty map
// together with an ELEMENT_STALE error. There is no retry.
func Inspect(ctx context.Context, n Node) (map[string]string, error) {
	style, err := n.ComputedStyle(ctx)
	if err != nil {
		logger().Warn("computed style unavailable", "error", err)
		return map[string]string{}, models.NewScrapeError(
			models.ErrCodeElementStale,
			"failed to read computed style",
			err,
		)
	}
	if style == nil {
		style = map[string]string{}
	}
	return style, nil
}
