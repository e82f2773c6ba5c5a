// Package edgar scrapes SEC EDGAR ownership reports, the company directory,
// the daily master index and the current-filings feed.
//
// All requests go through a shared infra.Session, which enforces the SEC
// fair-access rate and carries the declared User-Agent.
package edgar

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/seenimoa/edgarinsiders/internal/infra"
	"github.com/seenimoa/edgarinsiders/pkg/models"
)

// DefaultBaseURL is the public EDGAR host.
const DefaultBaseURL = "https://www.sec.gov"

// ErrHTTP wraps a non-200 response from an endpoint that is not paginated.
type ErrHTTP struct {
	StatusCode int
	URL        string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// ErrRowShape reports a report row that does not have the expected cells,
// meaning the page layout is not the one the parser knows.
var ErrRowShape = errors.New("unexpected row shape")

// FailureKind classifies why a scrape produced no records.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureStatus
	FailureTransport
	FailureParse
	FailureCancelled
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureStatus:
		return "status"
	case FailureTransport:
		return "transport"
	case FailureParse:
		return "parse"
	case FailureCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Result is the outcome of one paginated scrape. A failed result always has
// nil Records; a successful one with no data has an empty, non-nil slice.
type Result[T any] struct {
	ID       string
	Records  []T
	Statuses []int
	Failure  FailureKind
	Err      error
	Pages    int
}

// OK reports whether the scrape succeeded.
func (r Result[T]) OK() bool { return r.Failure == FailureNone }

type (
	TransactionResult = Result[models.TransactionRecord]
	CompanyResult     = Result[models.CompanyRecord]
)

// Config controls the scraper.
type Config struct {
	BaseURL   string
	PageSize  int
	StartYear string
	MaxPages  int
}

// Client scrapes EDGAR over a shared session. It is safe for concurrent use.
type Client struct {
	session *infra.Session
	cfg     Config
	feed    *gofeed.Parser
	logger  zerolog.Logger
}

// NewClient creates a scraper bound to an open session.
func NewClient(session *infra.Session, cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 40
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	return &Client{
		session: session,
		cfg:     cfg,
		feed:    gofeed.NewParser(),
		logger:  logger.With().Str("component", "edgar").Logger(),
	}
}

// classify maps a request error to a failure kind, treating a done parent
// context as cancellation rather than a transport fault.
func classify(ctx context.Context, err error) FailureKind {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	return FailureTransport
}
