// Package progress derives campaign-wide verification progress from the
// aggregate snapshot served by the review API.
package progress

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
	"github.com/sirekapreview/reviewer/internal/sheets"
)

const (
	componentName = "progress"
	snapshotKey   = "pie_chart"

	// DefaultFetchTimeout bounds a shared fetch when Config.FetchTimeout is unset.
	DefaultFetchTimeout = 15 * time.Second
)

// Fetcher loads the aggregate snapshot. *sheets.Client implements it.
type Fetcher interface {
	GetProgress(ctx context.Context) (*sheets.ProgressSnapshot, error)
}

// Config holds the aggregator settings.
type Config struct {
	// TotalExpected is the number of sheets in the whole campaign.
	TotalExpected int
	// CacheTTL bounds how long a snapshot is reused. Zero keeps it until Refresh.
	CacheTTL time.Duration
	// FetchTimeout bounds one snapshot request. The request is shared by
	// every concurrent caller, so it is not tied to any one caller's context.
	FetchTimeout time.Duration
}

// Progress combines a snapshot with the campaign size.
type Progress struct {
	Snapshot      sheets.ProgressSnapshot
	TotalExpected int
}

// CheckedCount is the number of sheets already verified.
func (p Progress) CheckedCount() int {
	return p.Snapshot.CheckedCount
}

// Percent returns checked/total*100 clamped to [0, 100]. It is 0 when the
// campaign size is not positive.
func (p Progress) Percent() float64 {
	if p.TotalExpected <= 0 {
		return 0
	}
	pct := float64(p.Snapshot.CheckedCount) / float64(p.TotalExpected) * 100
	return min(max(pct, 0), 100)
}

// Shares returns each candidate's fraction of the candidate vote sum. All
// shares are 0 when no votes were counted.
func (p Progress) Shares() [sheets.CandidateCount]float64 {
	var shares [sheets.CandidateCount]float64
	sum := 0
	for _, n := range p.Snapshot.CandidateTotals {
		sum += n
	}
	if sum <= 0 {
		return shares
	}
	for i, n := range p.Snapshot.CandidateTotals {
		shares[i] = float64(n) / float64(sum)
	}
	return shares
}

// Aggregator fetches and caches the progress snapshot. Concurrent misses
// share a single request.
type Aggregator struct {
	fetcher Fetcher
	config  Config
	cache   *cache.Cache
	group   singleflight.Group

	log     logger.Logger
	metrics *metrics.ReviewMetrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithLogger(log logger.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

func WithMetrics(m *metrics.ReviewMetrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator creates an Aggregator. Expired entries are dropped lazily
// on read, so no janitor goroutine is started.
func NewAggregator(fetcher Fetcher, config Config, opts ...Option) *Aggregator {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	a := &Aggregator{
		fetcher: fetcher,
		config:  config,
		cache:   cache.New(ttl, 0),
		log:     logger.Global().Module(componentName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchSnapshot returns the cached snapshot, fetching it on a miss.
func (a *Aggregator) FetchSnapshot(ctx context.Context) (*sheets.ProgressSnapshot, error) {
	if cached, found := a.cache.Get(snapshotKey); found {
		if snap, ok := cached.(sheets.ProgressSnapshot); ok {
			a.metrics.RecordProgressCache(true)
			return &snap, nil
		}
	}
	a.metrics.RecordProgressCache(false)
	return a.fetch(ctx)
}

// Refresh drops the cached snapshot and fetches a new one.
func (a *Aggregator) Refresh(ctx context.Context) (*sheets.ProgressSnapshot, error) {
	a.cache.Delete(snapshotKey)
	return a.fetch(ctx)
}

// Progress returns the snapshot combined with the configured campaign size.
func (a *Aggregator) Progress(ctx context.Context) (Progress, error) {
	snap, err := a.FetchSnapshot(ctx)
	if err != nil {
		return Progress{}, err
	}
	return Progress{Snapshot: *snap, TotalExpected: a.config.TotalExpected}, nil
}

func (a *Aggregator) fetch(ctx context.Context) (*sheets.ProgressSnapshot, error) {
	ch := a.group.DoChan(snapshotKey, func() (any, error) {
		timeout := a.config.FetchTimeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		snap, err := a.fetcher.GetProgress(fetchCtx)
		if err != nil {
			return nil, err
		}
		a.cache.Set(snapshotKey, *snap, cache.DefaultExpiration)

		fields := []logger.Field{
			logger.Int("checked", snap.CheckedCount),
			logger.Float64("percent", Progress{Snapshot: *snap, TotalExpected: a.config.TotalExpected}.Percent()),
		}
		if a.config.CacheTTL > 0 {
			fields = append(fields, logger.Time("expires_at", time.Now().Add(a.config.CacheTTL)))
		}
		a.log.Debug("progress snapshot cached", fields...)
		return *snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			a.log.Warn("progress snapshot fetch failed", logger.Error(res.Err))
			return nil, res.Err
		}
		snap := res.Val.(sheets.ProgressSnapshot)
		return &snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
