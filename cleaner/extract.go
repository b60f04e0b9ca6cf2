// Package cleaner turns raw pivot-table markup into cell values.
package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// CellWrapClass is the class the pivot widget puts on the element that holds
// the visible text of a cell.
const CellWrapClass = "pivotTableCellWrap"

var (
	gridcellSel = cascadia.MustCompile(`[role="gridcell"]`)
	cellWrapSel = cascadia.MustCompile("." + CellWrapClass)
)

// ExtractTableData parses markup and returns the trimmed text of every
// gridcell in document order, skipping the first one (the widget's header
// cell). When a cell holds a cell-wrap element the text comes from the first
// such element instead of the whole cell.
//
// Parsing is tolerant: malformed markup yields whatever cells the parser
// recovers, possibly none.
func ExtractTableData(markup string) []string {
	data := []string{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return data
	}

	doc.FindMatcher(gridcellSel).Each(func(i int, cell *goquery.Selection) {
		if i == 0 {
			return
		}
		text := cell
		if wrap := cell.FindMatcher(cellWrapSel).First(); wrap.Length() > 0 {
			text = wrap
		}
		data = append(data, strings.TrimSpace(text.Text()))
	})

	return data
}
