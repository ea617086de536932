// Package sheets is the client for the sheet review API: paged sheet
// listings, sheet details, vote submission and the progress aggregate.
package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/httpclient"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client talks to the review API. It is safe for concurrent use.
type Client struct {
	http    *httpclient.Client
	baseURL *url.URL
	log     logger.Logger
	metrics *metrics.ReviewMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger; the default is the global "sheets" module.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics records request counts and latency on m.
func WithMetrics(m *metrics.ReviewMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, httpClient *httpclient.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid api base URL %q", baseURL).
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}
	if httpClient == nil {
		httpClient = httpclient.New(nil)
	}

	c := &Client{
		http:    httpClient,
		baseURL: u,
		log:     logger.Global().Module(componentName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSheets fetches one page of a collection. Pages are 1-based.
func (c *Client) ListSheets(ctx context.Context, collection Collection, page int) (PageResult[SheetSummary], error) {
	if page < 1 {
		return PageResult[SheetSummary]{}, errors.Newf("invalid page %d: pages start at 1", page).
			Category(errors.CategoryValidation).
			Component(componentName).
			Build()
	}
	if _, err := ParseCollection(string(collection)); err != nil {
		return PageResult[SheetSummary]{}, errors.New(err).
			Category(errors.CategoryValidation).
			Component(componentName).
			Build()
	}

	var resp pageResponse
	endpoint := c.baseURL.JoinPath("sheets", string(collection), strconv.Itoa(page)).String()
	if err := c.getJSON(ctx, metrics.EndpointListSheets, endpoint, &resp); err != nil {
		return PageResult[SheetSummary]{}, err
	}

	result := resp.toResult()
	c.log.Debug("sheet page fetched",
		logger.String("collection", string(collection)),
		logger.Int("page", page),
		logger.Int("total_pages", result.TotalPages),
		logger.Int("sheets", len(result.Items)))
	return result, nil
}

// GetSheet fetches the detail of one sheet. A 404 yields ErrSheetNotFound.
func (c *Client) GetSheet(ctx context.Context, id string) (*SheetDetail, error) {
	if id == "" {
		return nil, errors.Newf("invalid sheet id: empty").
			Category(errors.CategoryValidation).
			Component(componentName).
			Build()
	}

	var detail SheetDetail
	endpoint := c.baseURL.JoinPath("sheet", id).String()
	if err := c.getJSON(ctx, metrics.EndpointGetSheet, endpoint, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetProgress fetches the aggregate verification totals.
func (c *Client) GetProgress(ctx context.Context) (*ProgressSnapshot, error) {
	var resp progressResponse
	endpoint := c.baseURL.JoinPath("pie_chart").String()
	if err := c.getJSON(ctx, metrics.EndpointProgress, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.toSnapshot(), nil
}

// SubmitVotes posts a tally for sheet id. An empty captcha is sent as null
// and left for the server to judge. The call is made exactly once; every
// failure is reported through the returned Outcome.
func (c *Client) SubmitVotes(ctx context.Context, id string, tally VoteTally, captcha string) Outcome {
	ctx, rc := c.newCall(ctx, metrics.EndpointSubmitVotes, http.MethodPost, c.baseURL.JoinPath("sheet", id).String())
	log := c.log.WithContext(ctx)

	resp, err := c.http.Post(ctx, rc.url, "", newSubmitRequest(tally, captcha))
	if err != nil {
		c.metrics.RecordAPIRequest(rc.label, 0, time.Since(rc.start))
		log.Warn("vote submission got no response",
			logger.String("sheet_id", id),
			logger.Error(err))
		return Outcome{
			Kind: OutcomeTransportError,
			Err:  transportError(err, rc),
		}
	}
	defer drainAndClose(resp.Body)
	c.metrics.RecordAPIRequest(rc.label, resp.StatusCode, time.Since(rc.start))

	kind := ClassifyStatus(resp.StatusCode)
	outcome := Outcome{Kind: kind, StatusCode: resp.StatusCode}
	if kind != OutcomeSuccess {
		outcome.Err = statusError(kind, resp.StatusCode, rc)
	}

	log.Info("vote submission resolved",
		logger.String("sheet_id", id),
		logger.String("outcome", kind.String()),
		logger.Int("status_code", resp.StatusCode),
		logger.Bool("captcha_set", captcha != ""))
	return outcome
}

// newCall starts a round trip. The request ID rides on ctx as the trace ID,
// so it tags both the log lines and the X-Request-ID header.
func (c *Client) newCall(ctx context.Context, label, method, endpoint string) (context.Context, call) {
	rc := call{
		label:     label,
		method:    method,
		url:       endpoint,
		requestID: uuid.NewString(),
		timeout:   c.http.Timeout(),
		start:     time.Now(),
	}
	return logger.WithTraceID(ctx, rc.requestID), rc
}

// getJSON performs a GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, endpointLabel, endpoint string, out any) error {
	ctx, rc := c.newCall(ctx, endpointLabel, http.MethodGet, endpoint)

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		c.metrics.RecordAPIRequest(endpointLabel, 0, time.Since(rc.start))
		c.log.WithContext(ctx).Debug("request got no response",
			logger.String("endpoint", endpointLabel),
			logger.Error(err))
		return transportError(err, rc)
	}
	defer drainAndClose(resp.Body)
	c.metrics.RecordAPIRequest(endpointLabel, resp.StatusCode, time.Since(rc.start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := OutcomeUnknownServerError
		if resp.StatusCode == http.StatusNotFound {
			kind = OutcomeSheetNotFound
		}
		return statusError(kind, resp.StatusCode, rc)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return transportError(err, rc)
		}
		return errors.Newf("%w: decode %s: %w", ErrMalformedResponse, redactURL(endpoint), err).
			Category(errors.CategoryFileParsing).
			Component(componentName).
			Priority(errors.PriorityHigh).
			Context("request_id", rc.requestID).
			Build()
	}
	return nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseBytes))
	_ = body.Close()
}
