package cleaner

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// RowMarkup returns the outer HTML of row index in a table snapshot and
// whether it was found.
//
// Virtualized grids number their rows with aria-rowindex, so the lookup
// prefers that attribute. Only when no rendered row carries it does the
// lookup fall back to the position among role="row" elements (1-based).
func RowMarkup(markup string, index int) (string, bool) {
	if index < 1 {
		return "", false
	}

	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return "", false
	}

	node, err := htmlquery.Query(doc, fmt.Sprintf(`//*[@role='row'][@aria-rowindex='%d']`, index))
	if err != nil {
		return "", false
	}
	if node == nil {
		indexed, err := htmlquery.Query(doc, `//*[@role='row'][@aria-rowindex]`)
		if err != nil || indexed != nil {
			return "", false
		}
		node, err = htmlquery.Query(doc, fmt.Sprintf(`(//*[@role='row'])[%d]`, index))
		if err != nil || node == nil {
			return "", false
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", false
	}
	return buf.String(), true
}

// RowIndices returns the sorted aria-rowindex values of the rows rendered in
// markup. Rows without a numeric index are ignored.
func RowIndices(markup string) []int {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	nodes, err := htmlquery.QueryAll(doc, `//*[@role='row'][@aria-rowindex]`)
	if err != nil {
		return nil
	}

	indices := make([]int, 0, len(nodes))
	for _, n := range nodes {
		i, err := strconv.Atoi(strings.TrimSpace(htmlquery.SelectAttr(n, "aria-rowindex")))
		if err != nil {
			continue
		}
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// RowCount returns the number of role="row" elements in markup.
func RowCount(markup string) int {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return 0
	}
	nodes, err := htmlquery.QueryAll(doc, `//*[@role='row']`)
	if err != nil {
		return 0
	}
	return len(nodes)
}
