package loader

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/garyellow/campus-assist-go/internal/directory"
)

// HTMLTable loads the first table matching Selector from a published web
// page, such as a sheet published with "File > Share > Publish to web".
type HTMLTable struct {
	URL      string
	Selector string // "table" when empty
	Fetcher  Fetcher
}

// Load fetches the page and extracts the table.
func (h *HTMLTable) Load(ctx context.Context, kind directory.Kind) (*directory.Table, error) {
	doc, err := h.Fetcher.GetDocument(ctx, "html", h.URL)
	if err != nil {
		return nil, err
	}
	return ParseHTMLTable(kind, doc, h.Selector)
}

// ParseHTMLTable reads the first table matching selector. The header is
// the first row containing th cells, or the first row when there is none.
func ParseHTMLTable(kind directory.Kind, doc *goquery.Document, selector string) (*directory.Table, error) {
	if selector == "" {
		selector = "table"
	}
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, errors.New("no table found in document")
	}

	var (
		header []string
		rows   [][]string
	)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if header == nil {
			if th := tr.Find("th"); th.Length() > 0 {
				header = cellTexts(th)
				return
			}
		}
		cells := cellTexts(tr.Find("td"))
		if len(cells) == 0 {
			return
		}
		if header == nil {
			header = cells
			return
		}
		rows = append(rows, cells)
	})

	if len(header) == 0 {
		return nil, errors.New("table has no header row")
	}
	return directory.Normalize(kind, header, rows), nil
}

func cellTexts(s *goquery.Selection) []string {
	out := make([]string, 0, s.Length())
	s.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}
