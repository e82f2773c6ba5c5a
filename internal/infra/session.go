package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when the session config leaves it empty.
const DefaultUserAgent = "insiders/1.0"

// DefaultMaxBodySize bounds a single page read when the config leaves it zero.
const DefaultMaxBodySize = 16 << 20

// ErrBodyTooLarge is returned when a response body exceeds the session limit.
var ErrBodyTooLarge = errors.New("response body too large")

// SessionConfig configures the shared HTTP session.
type SessionConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	RateLimit      int   // requests per second, 0 disables
	MaxBodySize    int64 // bytes, 0 uses DefaultMaxBodySize
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Session owns one pooled connection context for the lifetime of a crawl.
// It is safe for concurrent use by any number of fetches.
type Session struct {
	client    *http.Client
	transport *http.Transport
	limiter   *RateLimiter
	userAgent string
	timeout   time.Duration
	maxBody   int64
	closed    chan struct{}
}

// OpenSession acquires the connection pool.
func OpenSession(cfg SessionConfig) *Session {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	return &Session{
		client:    &http.Client{Transport: transport},
		transport: transport,
		limiter:   NewRateLimiter(cfg.RateLimit, time.Second),
		userAgent: ua,
		timeout:   timeout,
		maxBody:   maxBody,
		closed:    make(chan struct{}),
	}
}

// WithSession opens a session, runs fn and releases the pool on every exit
// path, panics included.
func WithSession(cfg SessionConfig, fn func(*Session) error) error {
	s := OpenSession(cfg)
	defer s.Close()
	return fn(s)
}

// Close releases pooled connections. Further Gets fail.
func (s *Session) Close() {
	select {
	case <-s.closed:
		return
	default:
		close(s.closed)
	}
	s.transport.CloseIdleConnections()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Get performs a GET bounded by the per-request timeout and reads the body.
// Any HTTP status is returned as a Response; only transport failures are errors.
func (s *Session) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	if s.Closed() {
		return nil, fmt.Errorf("session closed")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("read %s: %w (limit %d bytes)", url, ErrBodyTooLarge, s.maxBody)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
