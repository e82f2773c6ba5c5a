package edgar

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// cellText returns the first non-blank text node under the selection's first
// node, trimmed. EDGAR cells often wrap their value in links or fonts.
func cellText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(firstText(s.Get(0)))
}

func firstText(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return c.Data
			}
		case html.ElementNode:
			if t := firstText(c); t != "" {
				return t
			}
		}
	}
	return ""
}

// directRows returns the rows that belong to table itself, not to tables
// nested inside it.
func directRows(table *goquery.Selection) *goquery.Selection {
	return table.ChildrenFiltered("tr").
		AddSelection(table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr"))
}

// rowCells returns the data cells of a row.
func rowCells(row *goquery.Selection) *goquery.Selection {
	return row.ChildrenFiltered("td")
}

// nextCursor finds the first button whose value contains label and returns
// the query string its onclick navigates to.
func nextCursor(doc *goquery.Document, label string) (string, bool) {
	var cursor string
	found := false
	doc.Find("input").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		typ, _ := in.Attr("type")
		val, _ := in.Attr("value")
		if !strings.Contains(typ, "button") || !strings.Contains(val, label) {
			return true
		}
		onclick, ok := in.Attr("onclick")
		if !ok {
			return true
		}
		_, query, ok := strings.Cut(onclick, "?")
		if !ok {
			return true
		}
		cursor = strings.NewReplacer(`\`, "", "'", "").Replace(query)
		found = cursor != ""
		return !found
	})
	return cursor, found
}
