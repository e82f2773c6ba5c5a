package edgar

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/edgarinsiders/pkg/models"
)

// FetchCompaniesByState scrapes the company directory for a state code.
func (c *Client) FetchCompaniesByState(ctx context.Context, state, cursor string) CompanyResult {
	if cursor == "" {
		cursor = fmt.Sprintf("company=&match=&filenum=&State=%s&Country=&SIC=&myowner=include&action=getcompany&count=%d",
			state, c.cfg.PageSize)
	}
	return crawl(ctx, c, crawlSpec[models.CompanyRecord]{
		kind:      "companies",
		id:        state,
		endpoint:  c.cfg.BaseURL + "/cgi-bin/browse-edgar?",
		first:     cursor,
		nextLabel: fmt.Sprintf("Next %d", c.cfg.PageSize),
		parse: func(doc *goquery.Document) (page[models.CompanyRecord], error) {
			return page[models.CompanyRecord]{rows: parseCompanies(doc, state)}, nil
		},
	})
}

func parseCompanies(doc *goquery.Document, state string) []models.CompanyRecord {
	var out []models.CompanyRecord
	doc.Find("table[summary]").Each(func(_ int, table *goquery.Selection) {
		summary, _ := table.Attr("summary")
		if !strings.Contains(summary, "Results") {
			return
		}
		directRows(table).Each(func(_ int, row *goquery.Selection) {
			cells := rowCells(row)
			if cells.Length() < 2 {
				return
			}
			cik := cellText(cells.Eq(0))
			if cik == "CIK" || cik == "" {
				return
			}
			out = append(out, models.CompanyRecord{
				CIK:   cik,
				State: state,
				Name:  cellText(cells.Eq(1)),
			})
		})
	})
	return out
}
