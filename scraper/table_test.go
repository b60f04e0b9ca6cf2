package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pbiscrape/config"
	"github.com/use-agent/pbiscrape/models"
	"golang.org/x/time/rate"
)

// fakeGrid renders a virtualized pivot grid: a header row (aria-rowindex 1)
// and data rows 2..rows+1, of which only `window` rows starting at `top`
// are in the markup at any time.
type fakeGrid struct {
	rows   int
	window int
	top    int // aria-rowindex of the first rendered row

	unindexed bool // omit aria-rowindex, as some grid builds do

	scrolls   int
	failAfter int // innerHTML fails once this many reads happened; 0 = never
	reads     int
	scrollErr error
}

func (g *fakeGrid) innerHTML(context.Context) (string, error) {
	g.reads++
	if g.failAfter > 0 && g.reads > g.failAfter {
		return "", models.NewScrapeError(models.ErrCodeElementStale, "detached", nil)
	}

	var b strings.Builder
	last := g.rows + 1
	for i := g.top; i < g.top+g.window && i <= last; i++ {
		if g.unindexed {
			b.WriteString(`<div role="row">`)
		} else {
			fmt.Fprintf(&b, `<div role="row" aria-rowindex="%d">`, i)
		}
		fmt.Fprintf(&b, `<div role="gridcell">hdr</div>`)
		fmt.Fprintf(&b, `<div role="gridcell"><div class="pivotTableCellWrap">r%d </div></div>`, i)
		fmt.Fprintf(&b, `<div role="gridcell">v%d</div>`, i)
		b.WriteString(`</div>`)
	}
	return b.String(), nil
}

func (g *fakeGrid) ScrollBy(_ context.Context, _ int) (scrollPosition, error) {
	if g.scrollErr != nil {
		return scrollPosition{}, g.scrollErr
	}
	g.scrolls++
	before := float64(g.top)
	maxTop := g.rows + 2 - g.window
	if maxTop < 1 {
		maxTop = 1
	}
	g.top += g.window
	if g.top > maxTop {
		g.top = maxTop
	}
	return scrollPosition{Before: before, After: float64(g.top)}, nil
}

func testScraper(mutate func(*config.Config)) *Scraper {
	cfg := config.Default()
	cfg.PowerBIURL = "https://example.com"
	cfg.TableXPath = "//div"
	cfg.ColumnNames = []string{"Region", "Value"}
	if mutate != nil {
		mutate(cfg)
	}
	return New(*cfg)
}

func newReader(g *fakeGrid, paging bool) *rowReader {
	r := &rowReader{
		table:    g,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		maxSteps: 50,
	}
	if paging {
		r.container = g
	}
	return r
}

func TestReadRows_StaticGrid(t *testing.T) {
	g := &fakeGrid{rows: 3, window: 10, top: 1}
	s := testScraper(nil)
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, false), res)

	require.NoError(t, res.Err)
	assert.True(t, res.Complete)
	assert.Equal(t, []models.Row{{"r2", "v2"}, {"r3", "v3"}, {"r4", "v4"}}, res.Table.Rows())
}

func TestReadRows_PagesVirtualizedGrid(t *testing.T) {
	g := &fakeGrid{rows: 20, window: 4, top: 1}
	s := testScraper(nil)
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, true), res)

	require.NoError(t, res.Err)
	assert.True(t, res.Complete)
	require.Equal(t, 20, res.Table.Len())
	for i, row := range res.Table.Rows() {
		assert.Equal(t, models.Row{fmt.Sprintf("r%d", i+2), fmt.Sprintf("v%d", i+2)}, row)
	}
	assert.Positive(t, g.scrolls)
}

func TestReadRows_RowOffset(t *testing.T) {
	g := &fakeGrid{rows: 5, window: 10, top: 1}
	s := testScraper(func(c *config.Config) { c.Scraper.RowOffset = 4 })
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, false), res)

	require.Equal(t, 3, res.Table.Len())
	assert.Equal(t, models.Row{"r4", "v4"}, res.Table.Rows()[0])
}

func TestReadRows_MaxRows(t *testing.T) {
	g := &fakeGrid{rows: 10, window: 20, top: 1}
	s := testScraper(func(c *config.Config) { c.Scraper.MaxRows = 3 })
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, false), res)

	assert.True(t, res.Complete)
	assert.Equal(t, 3, res.Table.Len())
}

func TestReadRows_FailureHaltsAndKeepsRows(t *testing.T) {
	g := &fakeGrid{rows: 10, window: 20, top: 1, failAfter: 2}
	s := testScraper(nil)
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, false), res)

	assert.False(t, res.Complete)
	require.Error(t, res.Err)
	assert.True(t, models.HasCode(res.Err, models.ErrCodeExtractionHalt))
	assert.True(t, models.HasCode(res.Err, models.ErrCodeElementStale))
	assert.Equal(t, 2, res.Table.Len())
}

func TestReadRows_ScrollFailureHalts(t *testing.T) {
	scrollErr := errors.New("scroll failed")
	g := &fakeGrid{rows: 10, window: 2, top: 1, scrollErr: scrollErr}
	s := testScraper(nil)
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, true), res)

	assert.ErrorIs(t, res.Err, scrollErr)
	assert.Equal(t, 1, res.Table.Len())
}

func TestReadRows_WidthMismatchIsFitted(t *testing.T) {
	g := &fakeGrid{rows: 1, window: 5, top: 1}
	s := testScraper(func(c *config.Config) { c.ColumnNames = []string{"A", "B", "C"} })
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, false), res)

	require.NoError(t, res.Err)
	assert.Equal(t, []models.Row{{"r2", "v2", ""}}, res.Table.Rows())
}

func TestReadRows_UnindexedStaticGrid(t *testing.T) {
	g := &fakeGrid{rows: 3, window: 10, top: 1, unindexed: true}
	s := testScraper(nil)
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, true), res)

	require.NoError(t, res.Err)
	assert.True(t, res.Complete)
	assert.Equal(t, []models.Row{{"r2", "v2"}, {"r3", "v3"}, {"r4", "v4"}}, res.Table.Rows())
}

func TestReadRows_UnindexedVirtualizedGridHalts(t *testing.T) {
	g := &fakeGrid{rows: 20, window: 4, top: 1, unindexed: true}
	s := testScraper(nil)
	res := &TableResult{Table: models.NewTable(s.cfg.ColumnNames)}

	s.readRows(context.Background(), newReader(g, true), res)

	assert.False(t, res.Complete)
	require.Error(t, res.Err)
	assert.True(t, models.HasCode(res.Err, models.ErrCodeExtractionHalt))
	assert.Contains(t, res.Err.Error(), "no aria-rowindex")
	assert.Equal(t, 3, res.Table.Len())
	assert.Equal(t, 1, g.scrolls)
}

func TestRowReader_ScrollStepLimit(t *testing.T) {
	g := &fakeGrid{rows: 100, window: 2, top: 1}
	r := newReader(g, true)
	r.maxSteps = 3

	values, err := r.read(context.Background(), 50)
	assert.Nil(t, values)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not rendered after 3 scroll steps")
	assert.Equal(t, 3, g.scrolls)
}

func TestRowReader_RowAboveWindow(t *testing.T) {
	g := &fakeGrid{rows: 100, window: 5, top: 40}
	r := newReader(g, true)

	_, err := r.read(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "above the rendered window")
}

func TestRowReader_BottomIsEndOfData(t *testing.T) {
	g := &fakeGrid{rows: 4, window: 5, top: 1}
	r := newReader(g, true)

	values, err := r.read(context.Background(), 6)
	assert.NoError(t, err)
	assert.Nil(t, values)
}

func TestRowReader_SettleCalledAfterScroll(t *testing.T) {
	g := &fakeGrid{rows: 10, window: 2, top: 1}
	r := newReader(g, true)
	settled := 0
	r.settle = func(context.Context) { settled++ }

	values, err := r.read(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"r6", "v6"}, values)
	assert.Equal(t, g.scrolls, settled)
}

func TestRowReader_CanceledContext(t *testing.T) {
	g := &fakeGrid{rows: 10, window: 2, top: 1}
	r := newReader(g, true)
	r.limiter = rate.NewLimiter(rate.Every(1e9), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.read(ctx, 8)
	assert.Error(t, err)
}

func TestScrapeTable_NotInitialized(t *testing.T) {
	s := testScraper(nil)
	res := s.ScrapeTable(context.Background())

	require.NotNil(t, res.Table)
	assert.Equal(t, 0, res.Table.Len())
	assert.Equal(t, []string{"Region", "Value"}, res.Table.Columns())
	assert.False(t, res.Complete)
	assert.Error(t, res.Err)
}

func TestLocate_NotInitialized(t *testing.T) {
	_, err := testScraper(nil).Locate(context.Background())
	assert.Error(t, err)
}

func TestCleanup_Idempotent(t *testing.T) {
	s := testScraper(nil)
	s.Cleanup()
	s.Cleanup()
	assert.Equal(t, StateUninitialized, s.State())
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestCleanup_AttachedClosesConnectionOnly(t *testing.T) {
	s := testScraper(nil)
	conn := &closeCounter{}
	s.browser = rod.New()
	s.conn = conn
	s.state = StateOpen

	s.Cleanup()
	s.Cleanup()

	assert.Equal(t, 1, conn.closed)
	assert.Nil(t, s.conn)
	assert.Equal(t, StateClosed, s.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "session-open", StateOpen.String())
	assert.Equal(t, "scraping", StateScraping.String())
	assert.Equal(t, "session-closed", StateClosed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
