package review

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirekapreview/reviewer/internal/catalog"
	"github.com/sirekapreview/reviewer/internal/httpclient"
	"github.com/sirekapreview/reviewer/internal/ledger"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/notification"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
	"github.com/sirekapreview/reviewer/internal/sheets"
)

// reviewServer is a minimal stand-in for the review API.
type reviewServer struct {
	mu          sync.Mutex
	listings    int
	submissions []map[string]any
	status      int
}

func (rs *reviewServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/sheets/unverified/1":
		rs.listings++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sheets":[{"id":"tps-001","imageURL":"https://img/tps-001.jpg"}],"pages":1}`))
	case r.Method == http.MethodPost && r.URL.Path == "/sheet/tps-001":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		rs.submissions = append(rs.submissions, body)
		w.WriteHeader(rs.status)
	default:
		http.NotFound(w, r)
	}
}

type stack struct {
	server  *reviewServer
	session *Session
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	metrics *metrics.ReviewMetrics
	console *bytes.Buffer
}

func newStack(t *testing.T, status int) *stack {
	t.Helper()
	quiet := logger.NewSlogLogger(nil, logger.LogLevelError, nil)

	rs := &reviewServer{status: status}
	srv := httptest.NewServer(rs)
	t.Cleanup(srv.Close)

	hc := httpclient.New(&httpclient.Config{DefaultTimeout: 2 * time.Second})
	t.Cleanup(hc.Close)

	m, err := metrics.NewReviewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	client, err := sheets.NewClient(srv.URL+"/", hc, sheets.WithLogger(quiet), sheets.WithMetrics(m))
	require.NoError(t, err)

	cat, err := catalog.New(client, sheets.CollectionUnverified, catalog.WithLogger(quiet), catalog.WithMetrics(m))
	require.NoError(t, err)

	led, err := ledger.New(t.Context(), ledger.NewMemoryStoreWith(19), nil, ledger.WithLogger(quiet), ledger.WithMetrics(m))
	require.NoError(t, err)

	var console bytes.Buffer
	dispatcher := notification.NewDispatcher([]notification.Provider{notification.NewConsoleProvider(&console)},
		notification.WithLogger(quiet))

	session, err := NewSession(ModeContribute, Deps{
		Submitter: client,
		Ledger:    led,
		Catalog:   cat,
		Notifier:  dispatcher,
	}, WithLogger(quiet), WithMetrics(m))
	require.NoError(t, err)

	return &stack{server: rs, session: session, catalog: cat, ledger: led, metrics: m, console: &console}
}

func TestEndToEndContribution(t *testing.T) {
	t.Parallel()

	st := newStack(t, http.StatusOK)

	listing, err := st.catalog.Load(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, listing.Sheets, 1)

	require.NoError(t, st.session.Select(t.Context(), listing.Sheets[0]))
	require.NoError(t, st.session.SetCount(0, "3"))
	require.NoError(t, st.session.SetCount(2, "1"))
	require.NoError(t, st.session.CaptchaSolved("03AF-token"))

	outcome, err := st.session.Submit(t.Context())
	require.NoError(t, err)
	assert.True(t, outcome.OK())

	st.server.mu.Lock()
	assert.Equal(t, 2, st.server.listings, "initial load plus the post-submit reload")
	require.Len(t, st.server.submissions, 1)
	body := st.server.submissions[0]
	st.server.mu.Unlock()

	assert.InDelta(t, 3, body["candidate1"], 0)
	assert.InDelta(t, 0, body["candidate2"], 0)
	assert.InDelta(t, 1, body["candidate3"], 0)
	assert.Equal(t, "03AF-token", body["captcha"])

	assert.Equal(t, 20, st.ledger.Count())
	assert.Equal(t, "Intermediate", st.ledger.CurrentLevel().Label)
	assert.Contains(t, st.console.String(), "Thank you!")
	assert.InDelta(t, 1, testutil.ToFloat64(st.metrics.SubmissionsTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 20, testutil.ToFloat64(st.metrics.ContributionCount), 0)
}

func TestEndToEndCaptchaRejected(t *testing.T) {
	t.Parallel()

	st := newStack(t, http.StatusBadRequest)
	listing, err := st.catalog.Load(t.Context(), 1)
	require.NoError(t, err)

	require.NoError(t, st.session.Select(t.Context(), listing.Sheets[0]))
	require.NoError(t, st.session.SetCountValue(1, 4))

	outcome, err := st.session.Submit(t.Context())
	require.NoError(t, err)
	assert.Equal(t, sheets.OutcomeCaptchaRejected, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, sheets.ErrCaptchaRejected)

	st.server.mu.Lock()
	assert.Nil(t, st.server.submissions[0]["captcha"], "unset captcha is sent as null")
	st.server.mu.Unlock()

	assert.Equal(t, 20, st.ledger.Count())
	assert.Equal(t, StateIdle, st.session.State())
	assert.Contains(t, st.console.String(), "Captcha failed")
}

func TestEndToEndZeroTallyNeverReachesServer(t *testing.T) {
	t.Parallel()

	st := newStack(t, http.StatusOK)
	listing, err := st.catalog.Load(t.Context(), 1)
	require.NoError(t, err)

	require.NoError(t, st.session.Select(t.Context(), listing.Sheets[0]))
	_, err = st.session.Submit(t.Context())
	require.ErrorIs(t, err, ErrNoVotes)

	st.server.mu.Lock()
	assert.Empty(t, st.server.submissions)
	assert.Equal(t, 1, st.server.listings)
	st.server.mu.Unlock()
	assert.Equal(t, 19, st.ledger.Count())
	assert.InDelta(t, 1, testutil.ToFloat64(st.metrics.ZeroTallyRejected), 0)
}
