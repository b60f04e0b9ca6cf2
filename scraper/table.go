package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/use-agent/pbiscrape/cleaner"
	"github.com/use-agent/pbiscrape/dom"
	"github.com/use-agent/pbiscrape/models"
	"golang.org/x/time/rate"
)

// settleTimeout bounds the wait for the grid to re-render after a scroll.
const settleTimeout = 2 * time.Second

// TableResult is the outcome of ScrapeTable. Table is never nil.
type TableResult struct {
	Table *models.Table

	// Complete is true when the loop ended on a definitive empty row (or the
	// row limit). It is false when the table was never reached or a row
	// failed; Err then says why.
	Complete bool
	Err      error
}

// ScrapeTable extracts rows from the table element, starting at the
// configured row offset, until an empty row is seen.
//
// A failure while extracting a row ends the loop; the rows gathered so far
// are kept and the failure is reported in TableResult.Err with the
// EXTRACTION_HALT code. If the table element cannot be found the result
// holds an empty table typed with the configured columns.
func (s *Scraper) ScrapeTable(ctx context.Context) *TableResult {
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	if s.state != StateOpen && s.state != StateScraping {
		res.Err = fmt.Errorf("scraper: scrape called in state %s", s.state)
		logger().Error("scraping failed", "error", res.Err)
		return res
	}
	s.state = StateScraping

	el, err := s.waitTable(ctx)
	if err != nil {
		logger().Error("scraping failed", "error", err)
		res.Err = err
		return res
	}
	table := newRodNode(el)

	reader := &rowReader{
		table:    table,
		limiter:  rate.NewLimiter(rate.Every(s.cfg.Scraper.ScrollInterval), 1),
		amount:   s.cfg.Scraper.ScrollAmount,
		maxSteps: s.cfg.Scraper.MaxScrollSteps,
		settle:   s.settle,
	}
	reader.container = s.scrollContainer(ctx, table)

	s.readRows(ctx, reader, res)
	return res
}

// readRows drives the row loop. It is separate from ScrapeTable so the loop
// can run against any row source.
func (s *Scraper) readRows(ctx context.Context, reader *rowReader, res *TableResult) {
	for idx := s.cfg.Scraper.RowOffset; ; idx++ {
		if limit := s.cfg.Scraper.MaxRows; limit > 0 && res.Table.Len() >= limit {
			logger().Info("row limit reached", "maxRows", limit)
			res.Complete = true
			break
		}

		values, err := reader.read(ctx, idx)
		if err != nil {
			logger().Error("error processing row", "row", idx, "error", err)
			res.Err = models.NewScrapeError(models.ErrCodeExtractionHalt, fmt.Sprintf("row %d", idx), err)
			break
		}
		if len(values) == 0 {
			res.Complete = true
			break
		}

		row, adjusted := res.Table.Fit(values)
		if adjusted {
			logger().Warn("row width does not match columns",
				"row", idx,
				"values", len(values),
				"columns", len(row),
			)
		}
		if err := res.Table.Append(row); err != nil {
			res.Err = models.NewScrapeError(models.ErrCodeExtractionHalt, fmt.Sprintf("row %d", idx), err)
			break
		}
	}

	logger().Info("table scraped",
		"rows", res.Table.Len(),
		"complete", res.Complete,
	)
}

// scrollContainer finds the element that pages the grid. A nil result
// means every row is expected to be rendered already.
func (s *Scraper) scrollContainer(ctx context.Context, table *rodNode) scroller {
	found, err := dom.FindScrollableParent(ctx, table, dom.FindOptions{
		MaxDepth: s.cfg.Scraper.MaxAncestorDepth,
	})
	if err != nil {
		if !errors.Is(err, dom.ErrNoScrollableAncestor) {
			logger().Warn("scroll container unknown, paging disabled", "error", err)
		}
		return nil
	}
	sc, ok := found.Node.(scroller)
	if !ok {
		return nil
	}
	return sc
}

// settle waits briefly for the grid to re-render after a scroll step.
func (s *Scraper) settle(ctx context.Context) {
	settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := s.page.Context(settleCtx).WaitDOMStable(150*time.Millisecond, 0); err != nil {
		logger().Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}
}

type tableSource interface {
	innerHTML(ctx context.Context) (string, error)
}

type scroller interface {
	ScrollBy(ctx context.Context, dy int) (scrollPosition, error)
}

// rowReader extracts single rows from the live table, paging the scroll
// container forward when the requested row is not rendered yet.
type rowReader struct {
	table     tableSource
	container scroller // nil when the grid does not scroll
	limiter   *rate.Limiter
	amount    int
	maxSteps  int
	settle    func(ctx context.Context)
}

// read returns the cell values of row idx. A nil slice with a nil error
// means there are no more rows.
func (r *rowReader) read(ctx context.Context, idx int) ([]string, error) {
	for step := 0; ; step++ {
		markup, err := r.table.innerHTML(ctx)
		if err != nil {
			return nil, err
		}
		if frag, ok := cleaner.RowMarkup(markup, idx); ok {
			return cleaner.ExtractTableData(frag), nil
		}

		if r.container == nil || r.maxSteps == 0 {
			return nil, nil
		}
		rendered := cleaner.RowIndices(markup)
		if len(rendered) > 0 && rendered[0] > idx {
			return nil, fmt.Errorf("row %d is above the rendered window starting at row %d", idx, rendered[0])
		}
		if step >= r.maxSteps {
			return nil, fmt.Errorf("row %d not rendered after %d scroll steps", idx, step)
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		pos, err := r.container.ScrollBy(ctx, r.amount)
		if err != nil {
			return nil, err
		}
		if !pos.moved() {
			// Bottom of the container: nothing more will render.
			return nil, nil
		}
		if len(rendered) == 0 && cleaner.RowCount(markup) > 0 {
			// Positions restart with every window, so unindexed rows
			// cannot be addressed once the grid has scrolled.
			return nil, fmt.Errorf("row %d is not rendered and rows carry no aria-rowindex to page by", idx)
		}
		if r.settle != nil {
			r.settle(ctx)
		}
	}
}
