package edgar

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/edgarinsiders/internal/metrics"
)

// page is what a parser extracts from one document. Stop ends pagination
// after this page, keeping its rows.
type page[T any] struct {
	rows []T
	stop bool
	doc  *goquery.Document
}

// crawlSpec describes one paginated EDGAR listing.
type crawlSpec[T any] struct {
	kind      string // metrics label
	id        string
	endpoint  string // absolute URL up to and including '?'
	first     string // query of the first page
	nextLabel string
	parse     func(doc *goquery.Document) (page[T], error)
}

// crawl walks a listing page by page. Termination: a stop from the parser,
// no next control, a failed page after the first, a cursor seen before, or
// the page limit. A failed later page records its status and keeps the rows
// already collected; only cancellation discards them.
func crawl[T any](ctx context.Context, c *Client, spec crawlSpec[T]) Result[T] {
	res := Result[T]{ID: spec.id}
	fail := func(kind FailureKind, status int, err error) Result[T] {
		res.Records = nil
		res.Failure = kind
		res.Err = err
		if status != 0 {
			res.Statuses = append(res.Statuses, status)
		}
		return res
	}

	records := make([]T, 0)
	visited := make(map[string]bool)
	cursor := spec.first
	log := c.logger.With().Str("kind", spec.kind).Str("id", spec.id).Logger()

	for {
		if ctx.Err() != nil {
			return fail(FailureCancelled, 0, ctx.Err())
		}
		if res.Pages >= c.cfg.MaxPages {
			log.Warn().Int("pages", res.Pages).Msg("page limit reached")
			break
		}
		if visited[cursor] {
			log.Warn().Str("cursor", cursor).Msg("pagination cursor repeated")
			break
		}
		visited[cursor] = true

		url := spec.endpoint + cursor
		later := res.Pages > 0
		log.Debug().Str("url", url).Msg("fetching page")
		resp, err := c.session.Get(ctx, url, nil)
		if err != nil {
			kind := classify(ctx, err)
			if kind == FailureCancelled {
				return fail(kind, 0, err)
			}
			log.Error().Err(err).Bool("later_page", later).Msg("request failed")
			metrics.PagesFetched.WithLabelValues(spec.kind, "error").Inc()
			if later {
				res.Statuses = append(res.Statuses, http.StatusInternalServerError)
				break
			}
			return fail(kind, http.StatusInternalServerError, err)
		}
		res.Pages++
		metrics.PagesFetched.WithLabelValues(spec.kind, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			if !later {
				log.Error().Int("status", resp.StatusCode).Msg("status error")
				return fail(FailureStatus, resp.StatusCode, &ErrHTTP{StatusCode: resp.StatusCode, URL: url})
			}
			log.Warn().Int("status", resp.StatusCode).Msg("status error mid-pagination, keeping earlier pages")
			res.Statuses = append(res.Statuses, resp.StatusCode)
			break
		}

		p, err := parsePage(resp.Body, spec.parse)
		if err != nil {
			log.Error().Err(err).Bool("later_page", later).Msg("parse failed")
			if later {
				res.Statuses = append(res.Statuses, http.StatusInternalServerError)
				break
			}
			return fail(FailureParse, http.StatusInternalServerError, err)
		}
		res.Statuses = append(res.Statuses, resp.StatusCode)

		records = append(records, p.rows...)
		if p.stop {
			break
		}
		next, ok := nextCursor(p.doc, spec.nextLabel)
		if !ok {
			break
		}
		cursor = next
	}

	res.Records = records
	return res
}

func parsePage[T any](body []byte, parse func(*goquery.Document) (page[T], error)) (page[T], error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return page[T]{}, err
	}
	p, err := parse(doc)
	if err != nil {
		return page[T]{}, err
	}
	p.doc = doc
	return p, nil
}
