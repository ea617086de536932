// Package catalog pages through one sheet collection.
//
// Every page change is a fresh fetch. When requests overlap, the page asked
// for last wins: a response is applied only if its page is still the desired
// page and nothing newer has been applied in the meantime.
package catalog

import (
	"context"
	"sync"

	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
	"github.com/sirekapreview/reviewer/internal/sheets"
)

const componentName = "catalog"

// ErrSuperseded is returned by Load when its response arrived after a newer
// page request and was discarded.
var ErrSuperseded = errors.NewStd("page request superseded")

// Fetcher loads one listing page. *sheets.Client implements it.
type Fetcher interface {
	ListSheets(ctx context.Context, collection sheets.Collection, page int) (sheets.PageResult[sheets.SheetSummary], error)
}

// Listing is the page currently shown.
type Listing struct {
	Collection sheets.Collection
	Page       int
	TotalPages int
	Sheets     []sheets.SheetSummary
	// Loaded is false until the first page has been applied.
	Loaded bool
}

// Catalog tracks the desired page and the last applied listing of one
// collection. It is safe for concurrent use; fetches run without the lock.
type Catalog struct {
	mu         sync.Mutex
	fetcher    Fetcher
	collection sheets.Collection
	desired    int
	seq        uint64
	appliedSeq uint64
	current    Listing

	log     logger.Logger
	metrics *metrics.ReviewMetrics
}

// Option configures a Catalog.
type Option func(*Catalog)

func WithLogger(log logger.Logger) Option {
	return func(c *Catalog) {
		if log != nil {
			c.log = log
		}
	}
}

func WithMetrics(m *metrics.ReviewMetrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// New returns a catalog for collection positioned on page 1. Nothing is
// fetched until Load.
func New(fetcher Fetcher, collection sheets.Collection, opts ...Option) (*Catalog, error) {
	if _, err := sheets.ParseCollection(string(collection)); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryValidation).
			Component(componentName).
			Build()
	}
	c := &Catalog{
		fetcher:    fetcher,
		collection: collection,
		desired:    1,
		current: Listing{
			Collection: collection,
			Page:       1,
			TotalPages: 1,
			Sheets:     []sheets.SheetSummary{},
		},
		log: logger.Global().Module(componentName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collection returns the collection this catalog pages through.
func (c *Catalog) Collection() sheets.Collection {
	return c.collection
}

// Load makes page the desired page and fetches it. On success the applied
// listing is returned. If a newer request overtook this one, the response is
// dropped and Load returns the current listing with ErrSuperseded. A failed
// fetch leaves the current listing untouched. A page past the last one is
// clamped and the last page is fetched in its place.
func (c *Catalog) Load(ctx context.Context, page int) (Listing, error) {
	if page < 1 {
		return c.Current(), errors.Newf("invalid page %d: pages start at 1", page).
			Category(errors.CategoryValidation).
			Component(componentName).
			Build()
	}

	c.mu.Lock()
	seq := c.requestLocked(page)
	c.mu.Unlock()

	for {
		listing, clamped, err := c.fetch(ctx, page, seq)
		if clamped == nil {
			return listing, err
		}
		page, seq = clamped.page, clamped.seq
	}
}

// pageRequest is a follow-up fetch issued when a response reported fewer
// pages than were asked for.
type pageRequest struct {
	page int
	seq  uint64
}

func (c *Catalog) requestLocked(page int) uint64 {
	c.desired = page
	c.seq++
	return c.seq
}

// fetch loads page and applies it if seq is still the newest request for the
// desired page. When the page is past the end nothing is applied and the
// request for the last page is returned instead.
func (c *Catalog) fetch(ctx context.Context, page int, seq uint64) (Listing, *pageRequest, error) {
	result, err := c.fetcher.ListSheets(ctx, c.collection, page)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.metrics.RecordPageLoad(string(c.collection), metrics.ResultError)
		c.log.Warn("page load failed",
			logger.String("collection", string(c.collection)),
			logger.Int("page", page),
			logger.Error(err))
		return c.snapshotLocked(), nil, err
	}

	if page != c.desired || seq <= c.appliedSeq {
		c.metrics.RecordPageLoad(string(c.collection), metrics.ResultStale)
		c.log.Debug("discarding stale page response",
			logger.String("collection", string(c.collection)),
			logger.Int("page", page),
			logger.Int("desired_page", c.desired))
		return c.snapshotLocked(), nil, ErrSuperseded
	}

	if last := max(1, result.TotalPages); page > last {
		c.log.Info("page beyond last page, clamping",
			logger.Int("requested", page),
			logger.Int("total_pages", result.TotalPages))
		return c.snapshotLocked(), &pageRequest{page: last, seq: c.requestLocked(last)}, nil
	}

	c.appliedSeq = seq
	c.current = Listing{
		Collection: c.collection,
		Page:       page,
		TotalPages: result.TotalPages,
		Sheets:     result.Items,
		Loaded:     true,
	}
	c.metrics.RecordPageLoad(string(c.collection), metrics.ResultSuccess)
	return c.snapshotLocked(), nil, nil
}

// Reload fetches the desired page again.
func (c *Catalog) Reload(ctx context.Context) (Listing, error) {
	c.mu.Lock()
	page := c.desired
	c.mu.Unlock()
	return c.Load(ctx, page)
}

// Next loads the page after the current one. On the last page it returns
// the current listing without fetching.
func (c *Catalog) Next(ctx context.Context) (Listing, error) {
	cur := c.Current()
	if cur.Page >= cur.TotalPages {
		return cur, nil
	}
	return c.Load(ctx, cur.Page+1)
}

// Prev loads the page before the current one. On page 1 it returns the
// current listing without fetching.
func (c *Catalog) Prev(ctx context.Context) (Listing, error) {
	cur := c.Current()
	if cur.Page <= 1 {
		return cur, nil
	}
	return c.Load(ctx, cur.Page-1)
}

// Current returns a copy of the applied listing.
func (c *Catalog) Current() Listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// DesiredPage returns the page most recently asked for.
func (c *Catalog) DesiredPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desired
}

func (c *Catalog) snapshotLocked() Listing {
	l := c.current
	l.Sheets = append(make([]sheets.SheetSummary, 0, len(c.current.Sheets)), c.current.Sheets...)
	return l
}
