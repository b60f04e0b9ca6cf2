package scraper

import (
	"os"
	"path/filepath"

	"github.com/use-agent/pbiscrape/models"
)

// SaveData writes table as CSV to filename under the configured output
// directory and returns the written path.
func (s *Scraper) SaveData(table *models.Table, filename string) (string, error) {
	if filename == "" {
		filename = s.cfg.Output.Filename
	}
	return WriteTable(s.cfg.Output.Dir, filename, table)
}

// WriteTable writes table as CSV to dir/filename, creating parent
// directories as needed.
func WriteTable(dir, filename string, table *models.Table) (string, error) {
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, "failed to create output directory", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, "failed to create "+path, err)
	}
	if err := table.WriteCSV(f); err != nil {
		_ = f.Close()
		return "", models.NewScrapeError(models.ErrCodeOutput, "failed to write "+path, err)
	}
	if err := f.Close(); err != nil {
		return "", models.NewScrapeError(models.ErrCodeOutput, "failed to close "+path, err)
	}

	logger().Info("data saved", "path", path, "rows", table.Len())
	return path, nil
}
