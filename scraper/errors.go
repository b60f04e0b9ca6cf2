package scraper

import (
	"context"
	"errors"
	"log/slog"

	"github.com/use-agent/pbiscrape/models"
)

func logger() *slog.Logger {
	return slog.Default().With("component", "scraper")
}

// categorizeError wraps raw navigation/wait errors into typed ScrapeErrors.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeNavigationTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeNavigationTimeout, "operation canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// staleError wraps an element-level failure. Deadline errors keep their
// timeout classification so callers can tell a slow page from a lost node.
func staleError(err error, msg string) *models.ScrapeError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return categorizeError(err, msg)
	}
	return models.NewScrapeError(models.ErrCodeElementStale, msg, err)
}
