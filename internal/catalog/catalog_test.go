package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/httpclient"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
	"github.com/sirekapreview/reviewer/internal/sheets"
	"github.com/sirekapreview/reviewer/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pageReply is what a gated fetch returns once released.
type pageReply struct {
	result sheets.PageResult[sheets.SheetSummary]
	err    error
}

// gatedFetcher blocks each page fetch until the test releases it, so
// responses can be delivered out of order.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[int][]chan pageReply
	started chan int
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: map[int][]chan pageReply{}, started: make(chan int, 16)}
}

func (f *gatedFetcher) ListSheets(ctx context.Context, _ sheets.Collection, page int) (sheets.PageResult[sheets.SheetSummary], error) {
	ch := make(chan pageReply, 1)
	f.mu.Lock()
	f.gates[page] = append(f.gates[page], ch)
	f.mu.Unlock()
	f.started <- page

	select {
	case r := <-ch:
		return r.result, r.err
	case <-ctx.Done():
		return sheets.PageResult[sheets.SheetSummary]{}, ctx.Err()
	}
}

// release answers the oldest pending fetch of page.
func (f *gatedFetcher) release(page int, r pageReply) {
	f.mu.Lock()
	ch := f.gates[page][0]
	f.gates[page] = f.gates[page][1:]
	f.mu.Unlock()
	ch <- r
}

func (f *gatedFetcher) waitStarted(t *testing.T, want int) {
	t.Helper()
	got := testutil.Receive(t, f.started, testutil.ShortTestTimeout, "page fetch never started")
	require.Equal(t, want, got)
}

func pageOf(total int, ids ...string) pageReply {
	items := make([]sheets.SheetSummary, 0, len(ids))
	for _, id := range ids {
		items = append(items, sheets.SheetSummary{ID: id, ImageURL: "https://img/" + id})
	}
	return pageReply{result: sheets.PageResult[sheets.SheetSummary]{Items: items, TotalPages: total}}
}

type loadResult struct {
	listing Listing
	err     error
}

func loadAsync(c *Catalog, page int) <-chan loadResult {
	out := make(chan loadResult, 1)
	go func() {
		l, err := c.Load(context.Background(), page)
		out <- loadResult{l, err}
	}()
	return out
}

func TestInitialListing(t *testing.T) {
	t.Parallel()

	c, err := New(newGatedFetcher(), sheets.CollectionUnverified)
	require.NoError(t, err)

	cur := c.Current()
	assert.Equal(t, 1, cur.Page)
	assert.Equal(t, 1, cur.TotalPages)
	assert.False(t, cur.Loaded)
	assert.NotNil(t, cur.Sheets)

	_, err = New(newGatedFetcher(), sheets.Collection("drafts"))
	require.Error(t, err)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewReviewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f := newGatedFetcher()
	c, err := New(f, sheets.CollectionUnverified, WithLogger(testutil.QuietLogger()), WithMetrics(m))
	require.NoError(t, err)

	slow := loadAsync(c, 2)
	f.waitStarted(t, 2)
	fast := loadAsync(c, 3)
	f.waitStarted(t, 3)

	f.release(3, pageOf(5, "p3a", "p3b"))
	r3 := testutil.Receive(t, fast, testutil.ShortTestTimeout, "load never returned")
	require.NoError(t, r3.err)
	assert.Equal(t, 3, r3.listing.Page)

	f.release(2, pageOf(5, "p2a"))
	r2 := testutil.Receive(t, slow, testutil.ShortTestTimeout, "load never returned")
	require.ErrorIs(t, r2.err, ErrSuperseded)
	assert.Equal(t, 3, r2.listing.Page, "stale load reports the listing still shown")

	cur := c.Current()
	assert.Equal(t, 3, cur.Page)
	require.Len(t, cur.Sheets, 2)
	assert.Equal(t, "p3a", cur.Sheets[0].ID)

	assert.InDelta(t, 1, promtestutil.ToFloat64(m.StaleResponsesTotal), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.PageLoadsTotal.WithLabelValues("unverified", metrics.ResultSuccess)), 0)
}

func TestStaleResponseDiscardedEvenWhenItArrivesFirst(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	c, err := New(f, sheets.CollectionVerified, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	slow := loadAsync(c, 2)
	f.waitStarted(t, 2)
	fast := loadAsync(c, 4)
	f.waitStarted(t, 4)

	f.release(2, pageOf(5, "old"))
	r2 := testutil.Receive(t, slow, testutil.ShortTestTimeout, "load never returned")
	require.ErrorIs(t, r2.err, ErrSuperseded)
	assert.False(t, c.Current().Loaded)

	f.release(4, pageOf(5, "new"))
	r4 := testutil.Receive(t, fast, testutil.ShortTestTimeout, "load never returned")
	require.NoError(t, r4.err)
	assert.Equal(t, "new", c.Current().Sheets[0].ID)
}

func TestOlderResponseForSamePageDoesNotOverwriteNewer(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	c, err := New(f, sheets.CollectionUnverified, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	first := loadAsync(c, 1)
	f.waitStarted(t, 1)
	second := loadAsync(c, 1)
	f.waitStarted(t, 1)

	f.release(1, pageOf(1, "older"))
	f.release(1, pageOf(1, "newer"))

	results := []loadResult{
		testutil.Receive(t, first, testutil.ShortTestTimeout, "first load never returned"),
		testutil.Receive(t, second, testutil.ShortTestTimeout, "second load never returned"),
	}
	// The older fetch may apply before the newer one, but never after it.
	assert.Equal(t, "newer", c.Current().Sheets[0].ID)
	for _, r := range results {
		if r.err != nil {
			assert.ErrorIs(t, r.err, ErrSuperseded)
		}
	}
}

func TestPageClampedToTotalPages(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	c, err := New(f, sheets.CollectionUnverified, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	res := loadAsync(c, 9)
	f.waitStarted(t, 9)
	f.release(9, pageOf(4))

	// The last page is fetched so the listing belongs to the page shown.
	f.waitStarted(t, 4)
	assert.Equal(t, 4, c.DesiredPage())
	assert.False(t, c.Current().Loaded, "nothing applied from the out of range page")
	f.release(4, pageOf(4, "d1", "d2"))

	r := testutil.Receive(t, res, testutil.ShortTestTimeout, "load never returned")
	require.NoError(t, r.err)
	assert.Equal(t, 4, r.listing.Page)
	assert.Equal(t, 4, r.listing.TotalPages)
	require.Len(t, r.listing.Sheets, 2)
	assert.Equal(t, "d1", r.listing.Sheets[0].ID)
	assert.Equal(t, 4, c.DesiredPage())
}

func TestReloadAfterPagesShrinkShowsLastPage(t *testing.T) {
	t.Parallel()

	pages := map[int][]string{1: {"a"}, 2: {"b"}, 3: {"c"}}
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		var page int
		_, _ = fmt.Sscanf(r.URL.Path, "/sheets/unverified/%d", &page)
		body := `{"sheets":[`
		for i, id := range pages[page] {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"id":%q,"imageURL":"https://img/%s"}`, id, id)
		}
		_, _ = fmt.Fprintf(w, `%s],"pages":%d}`, body, len(pages))
	}))
	t.Cleanup(server.Close)

	hc := httpclient.New(&httpclient.Config{DefaultTimeout: 2 * time.Second})
	t.Cleanup(hc.Close)
	client, err := sheets.NewClient(server.URL+"/", hc, sheets.WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)
	c, err := New(client, sheets.CollectionUnverified, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	l, err := c.Load(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, "c", l.Sheets[0].ID)

	// The last sheet on the last page was reviewed.
	mu.Lock()
	delete(pages, 3)
	mu.Unlock()

	l, err = c.Reload(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Page)
	assert.Equal(t, 2, l.TotalPages)
	require.Len(t, l.Sheets, 1)
	assert.Equal(t, "b", l.Sheets[0].ID)
	assert.Equal(t, 2, c.DesiredPage())
}

func TestLoadFailureKeepsListing(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	c, err := New(f, sheets.CollectionUnverified, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	res := loadAsync(c, 1)
	f.waitStarted(t, 1)
	f.release(1, pageOf(3, "a"))
	require.NoError(t, testutil.Receive(t, res, testutil.ShortTestTimeout, "load never returned").err)

	transportErr := errors.Newf("%w: connection refused", sheets.ErrTransport).
		Category(errors.CategoryNetwork).
		Build()
	res = loadAsync(c, 2)
	f.waitStarted(t, 2)
	f.release(2, pageReply{err: transportErr})
	r := testutil.Receive(t, res, testutil.ShortTestTimeout, "load never returned")

	require.ErrorIs(t, r.err, sheets.ErrTransport)
	assert.Equal(t, 1, r.listing.Page)
	assert.Equal(t, "a", c.Current().Sheets[0].ID)
}

func TestLoadRejectsInvalidPage(t *testing.T) {
	t.Parallel()

	c, err := New(newGatedFetcher(), sheets.CollectionUnverified)
	require.NoError(t, err)

	_, err = c.Load(t.Context(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestCurrentReturnsCopy(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	c, err := New(f, sheets.CollectionUnverified, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	res := loadAsync(c, 1)
	f.waitStarted(t, 1)
	f.release(1, pageOf(1, "x"))
	require.NoError(t, testutil.Receive(t, res, testutil.ShortTestTimeout, "load never returned").err)

	cur := c.Current()
	cur.Sheets[0].ID = "changed"
	assert.Equal(t, "x", c.Current().Sheets[0].ID)
}

// listingServer serves total pages of two sheets each and counts requests per path.
func listingServer(t *testing.T, total int) (*httptest.Server, *sync.Map) {
	t.Helper()
	hits := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := hits.LoadOrStore(r.URL.Path, new(atomic.Int64))
		v.(*atomic.Int64).Add(1)
		var page int
		if _, err := fmt.Sscanf(r.URL.Path, "/sheets/unverified/%d", &page); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"sheets":[{"id":"s%d-1","imageURL":"u"},{"id":"s%d-2","imageURL":"u"}],"pages":%d}`, page, page, total)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestNextPrevAgainstServer(t *testing.T) {
	hc := httpclient.New(&httpclient.Config{DefaultTimeout: 2 * time.Second})
	t.Cleanup(hc.Close)

	srv, hits := listingServer(t, 2)
	client, err := sheets.NewClient(srv.URL+"/", hc, sheets.WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	c, err := New(client, sheets.CollectionUnverified, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)

	l, err := c.Prev(t.Context())
	require.NoError(t, err)
	assert.False(t, l.Loaded, "Prev on page 1 does not fetch")

	l, err = c.Load(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, "s1-1", l.Sheets[0].ID)

	l, err = c.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Page)

	l, err = c.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Page, "Next on the last page stays put")

	l, err = c.Reload(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Page)

	l, err = c.Prev(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, l.Page)

	v, ok := hits.Load("/sheets/unverified/2")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.(*atomic.Int64).Load(), "every page change is a fresh fetch")
}
