package edgar

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/edgarinsiders/pkg/models"
)

// Columns of table#transaction-report.
const (
	colAction = iota
	colDate
	colDeemedDate
	colCounterparty
	colForm
	colType
	colOwnership
	colShares
	colTotalShares
	colLineNumber
	colCounterpartyCIK
	colSecurityName
	transactionCells
)

// FetchOwnerTransactions scrapes the transactions reported by an insider.
// Counterparties are the issuers traded. A non-empty cursor resumes at that page.
func (c *Client) FetchOwnerTransactions(ctx context.Context, cik models.CIK, cursor string) TransactionResult {
	return c.fetchTransactions(ctx, models.FileTypeOwner, cik, cursor)
}

// FetchCompanyTransactions scrapes the insider transactions on an issuer.
// Counterparties are the reporting owners.
func (c *Client) FetchCompanyTransactions(ctx context.Context, cik models.CIK, cursor string) TransactionResult {
	return c.fetchTransactions(ctx, models.FileTypeIssuer, cik, cursor)
}

// FetchTransactions dispatches on the file type.
func (c *Client) FetchTransactions(ctx context.Context, ft models.FileType, cik models.CIK) TransactionResult {
	return c.fetchTransactions(ctx, ft, cik, "")
}

func (c *Client) fetchTransactions(ctx context.Context, ft models.FileType, cik models.CIK, cursor string) TransactionResult {
	action := "getissuer"
	if ft == models.FileTypeOwner {
		action = "getowner"
	}
	if cursor == "" {
		cursor = fmt.Sprintf("action=%s&CIK=%d", action, cik)
	}
	return crawl(ctx, c, crawlSpec[models.TransactionRecord]{
		kind:      string(ft),
		id:        fmt.Sprint(cik),
		endpoint:  c.cfg.BaseURL + "/cgi-bin/own-disp?",
		first:     cursor,
		nextLabel: "Next",
		parse:     c.parseTransactions,
	})
}

func (c *Client) parseTransactions(doc *goquery.Document) (page[models.TransactionRecord], error) {
	rows := directRows(doc.Find("table#transaction-report").First())
	if rows.Length() <= 1 {
		return page[models.TransactionRecord]{stop: true}, nil
	}

	types := counterpartyTypes(doc)
	var out []models.TransactionRecord
	var err error
	stop := false
	rows.Slice(1, goquery.ToEnd).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := rowCells(row)
		if n := cells.Length(); n < transactionCells {
			err = fmt.Errorf("%w: transaction row %d has %d cells, want %d", ErrRowShape, i+1, n, transactionCells)
			return false
		}
		text := func(i int) string { return cellText(cells.Eq(i)) }

		date := text(colDate)
		if date == "-" || (c.cfg.StartYear != "" && strings.HasPrefix(date, c.cfg.StartYear)) {
			stop = true
			return false
		}

		name := text(colCounterparty)
		cpCIK := text(colCounterpartyCIK)
		cpType, ok := types[cpCIK]
		if !ok {
			cpType = name
		}
		out = append(out, models.TransactionRecord{
			Action:           text(colAction),
			FilingDate:       date,
			Counterparty:     name,
			Form:             text(colForm),
			TransactionType:  text(colType),
			Ownership:        text(colOwnership),
			Shares:           strings.ReplaceAll(text(colShares), "\n", ""),
			TotalShares:      text(colTotalShares),
			LineNumber:       text(colLineNumber),
			CounterpartyCIK:  cpCIK,
			SecurityName:     strings.ReplaceAll(text(colSecurityName), ",", ""),
			CounterpartyType: strings.ReplaceAll(cpType, ",", ""),
		})
		return true
	})
	if err != nil {
		return page[models.TransactionRecord]{}, err
	}
	return page[models.TransactionRecord]{rows: out, stop: stop}, nil
}

// counterpartyTypes reads the "Type of Owner" table into CIK -> relationship.
func counterpartyTypes(doc *goquery.Document) map[string]string {
	lookup := make(map[string]string)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := directRows(table)
		if !strings.Contains(rows.Text(), "Type of Owner") {
			return
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := rowCells(row)
			if cells.Length() != 4 {
				return
			}
			lookup[cellText(cells.Eq(1))] = cellText(cells.Eq(3))
		})
	})
	return lookup
}
