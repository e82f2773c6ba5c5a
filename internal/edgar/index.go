package edgar

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// DailyIndexURL returns the master index location for a day.
func (c *Client) DailyIndexURL(date time.Time) string {
	return fmt.Sprintf("%s/Archives/edgar/daily-index/%d/%s/master.%s.idx",
		c.cfg.BaseURL, date.Year(), utils.Quarter(date), utils.FormatCompact(date))
}

// FetchDailyIndex downloads the raw master index for a day.
func (c *Client) FetchDailyIndex(ctx context.Context, date time.Time) (string, error) {
	url := c.DailyIndexURL(date)
	c.logger.Debug().Str("url", url).Msg("fetching daily index")

	resp, err := c.session.Get(ctx, url, nil)
	if err != nil {
		return "", fmt.Errorf("daily index %s: %w", utils.FormatDate(date), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ErrHTTP{StatusCode: resp.StatusCode, URL: url}
	}
	return string(resp.Body), nil
}

var feedCIK = regexp.MustCompile(`\((\d{10})\)`)

// FetchCurrentFilings reads the "latest filings" Atom feed for a form type
// and returns the CIKs named in entry titles, first seen first.
func (c *Client) FetchCurrentFilings(ctx context.Context, formType string) ([]models.CIK, error) {
	url := fmt.Sprintf("%s/cgi-bin/browse-edgar?action=getcurrent&type=%s&company=&dateb=&owner=include&start=0&count=%d&output=atom",
		c.cfg.BaseURL, formType, 100)

	resp, err := c.session.Get(ctx, url, map[string]string{"Accept": "application/atom+xml"})
	if err != nil {
		return nil, fmt.Errorf("current filings: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ErrHTTP{StatusCode: resp.StatusCode, URL: url}
	}

	feed, err := c.feed.ParseString(string(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse current filings feed: %w", err)
	}

	seen := make(map[models.CIK]bool)
	var ciks []models.CIK
	for _, item := range feed.Items {
		for _, m := range feedCIK.FindAllStringSubmatch(item.Title, -1) {
			cik, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil || cik <= 0 || seen[cik] {
				continue
			}
			seen[cik] = true
			ciks = append(ciks, cik)
		}
	}
	return ciks, nil
}
