// Package models defines the core data structures shared by the scraper,
// the pipeline and the store adapters.
package models

import "strings"

// CIK is an EDGAR Central Index Key identifying a company or an insider.
type CIK = int64

// Transaction types the pipeline cares about.
const (
	TxPurchase = "P-Purchase"
	TxSale     = "S-Sale"
)

// FileType selects which side of the ownership report is scraped and stored.
type FileType string

const (
	FileTypeIssuer FileType = "issuer" // rows describe the owners trading an issuer
	FileTypeOwner  FileType = "owner"  // rows describe the issuers an owner traded
)

// Valid reports whether f is a known file type.
func (f FileType) Valid() bool {
	return f == FileTypeIssuer || f == FileTypeOwner
}

// TransactionRecord is one row of the EDGAR ownership transaction report.
// Counterparty is the owner on an issuer report and the issuer on an owner report.
type TransactionRecord struct {
	Action           string `json:"action"`      // "A" or "D"
	FilingDate       string `json:"filing_date"` // e.g., "2023-01-13"
	Counterparty     string `json:"counterparty"`
	Form             string `json:"form"`             // "4", "4/A", "5"
	TransactionType  string `json:"transaction_type"` // e.g., "P-Purchase"
	Ownership        string `json:"ownership"`        // "D" direct, "I" indirect
	Shares           string `json:"shares"`
	TotalShares      string `json:"total_shares"`
	LineNumber       string `json:"line_number"`
	CounterpartyCIK  string `json:"counterparty_cik"`
	SecurityName     string `json:"security_name"`
	CounterpartyType string `json:"counterparty_type"`
}

// IsPurchase reports whether the row is an open-market purchase.
func (t TransactionRecord) IsPurchase() bool { return t.TransactionType == TxPurchase }

// IsSale reports whether the row is an open-market sale.
func (t TransactionRecord) IsSale() bool { return t.TransactionType == TxSale }

// CountPurchases returns the number of P-Purchase rows in rows.
func CountPurchases(rows []TransactionRecord) int {
	n := 0
	for _, r := range rows {
		if r.IsPurchase() {
			n++
		}
	}
	return n
}

// CompanyRecord is one row of the EDGAR company directory by state.
type CompanyRecord struct {
	CIK   string `json:"cik"`
	State string `json:"state"`
	Name  string `json:"name"`
}

// IndexEntry is one line of the EDGAR daily master index.
type IndexEntry struct {
	CIK         string
	CompanyName string
	FormType    string
	DateFiled   string
	Filename    string
}

// IsInsiderForm reports whether the entry is a Form 4 or its amendment.
func (e IndexEntry) IsInsiderForm() bool {
	return e.FormType == "4" || e.FormType == "4/A"
}

// ParseIndexLine splits a pipe-delimited master index line. It returns false
// for any line that does not have exactly five fields.
func ParseIndexLine(line string) (IndexEntry, bool) {
	cells := strings.Split(strings.TrimRight(line, "\r"), "|")
	if len(cells) != 5 {
		return IndexEntry{}, false
	}
	return IndexEntry{
		CIK:         cells[0],
		CompanyName: cells[1],
		FormType:    cells[2],
		DateFiled:   cells[3],
		Filename:    cells[4],
	}, true
}
