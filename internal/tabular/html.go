package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CollapseSpace trims s and replaces every run of whitespace with a single space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractHTMLTable converts the first table matching selector into a Table.
// Header and data cells are both read; colspan and rowspan are expanded by
// repeating the spanning cell's text.
func ExtractHTMLTable(doc *goquery.Document, selector string) (*Table, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, selector)
	}
	if !sel.Is("table") {
		sel = sel.Find("table").First()
		if sel.Length() == 0 {
			return nil, fmt.Errorf("%w: %q does not contain a table", ErrTableNotFound, selector)
		}
	}

	type span struct {
		text string
		left int
	}
	// carried holds rowspan cells keyed by column index
	carried := map[int]*span{}
	table := &Table{}

	// rows of nested tables belong to those tables, not this one
	rows := sel.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.ParentsFiltered("table").First().IsSelection(sel)
	})

	rows.Each(func(_ int, tr *goquery.Selection) {
		var row []string
		col := 0
		fill := func() {
			for {
				s, ok := carried[col]
				if !ok {
					return
				}
				row = append(row, s.text)
				s.left--
				if s.left == 0 {
					delete(carried, col)
				}
				col++
			}
		}

		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			fill()
			text := CollapseSpace(cell.Text())
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			for range colspan {
				row = append(row, text)
				if rowspan > 1 {
					carried[col] = &span{text: text, left: rowspan - 1}
				}
				col++
			}
		})
		fill()
		table.Rows = append(table.Rows, row)
	})

	return table, nil
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, 1000)
}
