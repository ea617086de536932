// Package ledger keeps the volunteer's contribution counter and derives the
// gamified level from it.
//
// The counter only moves forward: RecordAttempt is the single mutator and is
// called once per dispatched submission, whatever the server answers.
package ledger

import (
	"context"
	"sync"

	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
)

const componentName = "ledger"

// CounterKey is the fixed storage key of the contribution counter.
const CounterKey = "contributed"

// Status is a point-in-time view of the ledger.
type Status struct {
	Count        int
	Level        Level
	LevelIndex   int
	NextBoundary int
	Remaining    int
	// AtMax is true once the counter has reached the last level.
	AtMax bool
}

// Ledger is the contribution counter backed by a Store. It is safe for
// concurrent use.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	levels  []Level
	count   int
	log     logger.Logger
	metrics *metrics.ReviewMetrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger; the default is the global "ledger" module.
func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithMetrics publishes the counter as a gauge on m.
func WithMetrics(m *metrics.ReviewMetrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New loads the counter from store. A missing key starts the counter at 0,
// as does an unreadable or negative stored value, which is logged. A nil
// levels table selects DefaultLevels.
func New(ctx context.Context, store Store, levels []Level, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.Newf("ledger store is nil").
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}
	if levels == nil {
		levels = DefaultLevels
	}
	if err := ValidateLevels(levels); err != nil {
		return nil, err
	}

	l := &Ledger{
		store:  store,
		levels: append([]Level(nil), levels...),
		log:    logger.Global().Module(componentName),
	}
	for _, opt := range opts {
		opt(l)
	}

	n, found, err := store.Load(ctx)
	switch {
	case err != nil && errors.IsCategory(err, errors.CategoryFileParsing):
		l.log.Warn("stored contribution counter is unreadable, starting from 0",
			logger.Error(err))
		n = 0
	case err != nil:
		return nil, err
	case !found:
		n = 0
	case n < 0:
		l.log.Warn("stored contribution counter is negative, starting from 0",
			logger.Int("stored", n))
		n = 0
	}

	l.count = n
	l.metrics.SetContributionCount(n)
	l.log.Debug("ledger loaded",
		logger.Int("count", n),
		logger.Bool("found", found))
	return l, nil
}

// RecordAttempt increments the counter, persists it and returns the new
// value. The in-memory counter advances even when persisting fails; the
// save error is returned alongside the new value.
func (l *Ledger) RecordAttempt(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	n := l.count
	l.metrics.SetContributionCount(n)

	if err := l.store.Save(ctx, n); err != nil {
		l.metrics.RecordLedgerSaveError()
		l.log.Warn("failed to persist contribution counter",
			logger.Int("count", n),
			logger.Error(err))
		return n, errors.New(err).
			Component(componentName).
			Context("count", n).
			Build()
	}
	return n, nil
}

// Count returns the current counter value.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// CurrentLevel returns the level containing the counter.
func (l *Ledger) CurrentLevel() Level {
	return l.Status().Level
}

// NextBoundary returns the smallest minimum above the counter, or the last
// minimum once the counter has reached the top level.
func (l *Ledger) NextBoundary() int {
	return l.Status().NextBoundary
}

// RemainingToNextLevel is NextBoundary minus the counter, floored at 0.
func (l *Ledger) RemainingToNextLevel() int {
	return l.Status().Remaining
}

// Status returns every derived value for one consistent counter reading.
func (l *Ledger) Status() Status {
	count := l.Count()
	idx := LevelIndex(l.levels, count)
	boundary, hasNext := NextBoundaryFor(l.levels, count)
	return Status{
		Count:        count,
		Level:        l.levels[idx],
		LevelIndex:   idx,
		NextBoundary: boundary,
		Remaining:    max(boundary-count, 0),
		AtMax:        !hasNext,
	}
}

// Levels returns a copy of the level table in use.
func (l *Ledger) Levels() []Level {
	return append([]Level(nil), l.levels...)
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
