// Package client talks to the etfmonitor HTTP API. It satisfies
// dashboard.Backend so a dashboard session can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// UploadResult is the server's answer to a successful upload
type UploadResult struct {
	Message  string `json:"message"`
	UploadID string `json:"upload_id"`
	Holdings int    `json:"holdings"`
}

// SnapshotStatus is the server's snapshot metadata
type SnapshotStatus struct {
	Loaded   bool                `json:"loaded"`
	Snapshot domain.SnapshotInfo `json:"snapshot"`
}

// statusError is a non-2xx answer from the server
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.status, e.message)
}

// Client for the etfmonitor API
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// New creates a client for the API at baseURL
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:     "etfmonitor-api",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// rejected requests mean the server is up
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.status < 500)
		},
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "etfmonitor-api").Logger(),
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)
	return c
}

// UploadFiles posts both files to the upload endpoint
func (c *Client) UploadFiles(ctx context.Context, weights, prices *ingest.Upload) (*UploadResult, error) {
	if weights == nil || prices == nil || weights.Body == nil || prices.Body == nil {
		return nil, fmt.Errorf("%w: both weights and prices files are required", domain.ErrMissingInput)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	parts := []struct {
		field  string
		upload *ingest.Upload
	}{{"weights_file", weights}, {"prices_file", prices}}
	for _, p := range parts {
		u := p.upload
		part, err := mw.CreateFormFile(p.field, u.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to build upload: %w", err)
		}
		if _, err := io.Copy(part, u.Body); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", u.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var result UploadResult
	err := c.do(ctx, http.MethodPost, "/api/upload-process", nil, &body, mw.FormDataContentType(), &result)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("upload_id", result.UploadID).Int("holdings", result.Holdings).Msg("Upload processed")
	return &result, nil
}

// Upload implements dashboard.Backend
func (c *Client) Upload(ctx context.Context, weights, prices *ingest.Upload) error {
	_, err := c.UploadFiles(ctx, weights, prices)
	return err
}

// Composition returns the holdings in upload order
func (c *Client) Composition(ctx context.Context) ([]domain.HoldingRow, error) {
	var rows []domain.HoldingRow
	if err := c.get(ctx, "/api/composition", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Performance returns the full performance series
func (c *Client) Performance(ctx context.Context) (domain.PerformanceSeries, error) {
	var series domain.PerformanceSeries
	if err := c.get(ctx, "/api/performance", nil, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// PriceHistory returns every holding's price series
func (c *Client) PriceHistory(ctx context.Context) (domain.PriceHistory, error) {
	history := domain.PriceHistory{}
	if err := c.get(ctx, "/api/prices", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// TopHoldings ranks holdings at date, the latest date when nil
func (c *Client) TopHoldings(ctx context.Context, n int, date *time.Time) ([]domain.RankedHolding, error) {
	q := url.Values{}
	q.Set("n", strconv.Itoa(n))
	setDate(q, date)

	var top []domain.RankedHolding
	if err := c.get(ctx, "/api/top-holdings", q, &top); err != nil {
		return nil, err
	}
	return top, nil
}

// PriceChanges returns each holding's price direction at date
func (c *Client) PriceChanges(ctx context.Context, date *time.Time) ([]domain.PriceChange, error) {
	q := url.Values{}
	setDate(q, date)

	var changes []domain.PriceChange
	if err := c.get(ctx, "/api/holding-price-change", q, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// Snapshot returns the server's snapshot metadata
func (c *Client) Snapshot(ctx context.Context) (*SnapshotStatus, error) {
	var status SnapshotStatus
	if err := c.get(ctx, "/api/snapshot", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func setDate(q url.Values, date *time.Time) {
	if date != nil {
		q.Set("date", domain.FormatDate(*date))
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

// do sends one request through the circuit breaker. Transport failures,
// 5xx answers and an open breaker are reported as ErrUpstreamFailure; 4xx
// answers are mapped back onto the domain errors the server started from.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")

		c.log.Debug().Str("method", method).Str("url", endpoint).Msg("Request")
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{status: resp.StatusCode, message: readErrorMessage(resp.Body)}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.status == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", domain.ErrMissingInput, se.message)
		case se.status == http.StatusBadRequest:
			if strings.HasPrefix(path, "/api/upload") {
				return fmt.Errorf("%w: %s", domain.ErrMalformedInput, se.message)
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, se.message)
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %v", domain.ErrUpstreamFailure, method, path, err)
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Detail != "" {
			return body.Detail
		}
	}
	return strings.TrimSpace(string(data))
}
