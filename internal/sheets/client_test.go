package sheets

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/httpclient"
	"github.com/sirekapreview/reviewer/internal/logger"
	"github.com/sirekapreview/reviewer/internal/observability/metrics"
)

const testBaseURL = "https://api.example.test/"

func newMockClient(t *testing.T, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{Transport: mock, DefaultTimeout: time.Second})
	t.Cleanup(hc.Close)

	opts = append([]Option{WithLogger(logger.NewSlogLogger(nil, logger.LogLevelError, nil))}, opts...)
	c, err := NewClient(testBaseURL, hc, opts...)
	require.NoError(t, err)
	return c, mock
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient("not a url", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))
}

func TestListSheets(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodGet, testBaseURL+"sheets/unverified/2",
		httpmock.NewStringResponder(http.StatusOK, `{"sheets":[{"id":"a1","imageURL":"https://img/a1.jpg"},{"id":"b2","imageURL":"https://img/b2.jpg"}],"pages":7}`))

	page, err := c.ListSheets(t.Context(), CollectionUnverified, 2)
	require.NoError(t, err)

	assert.Equal(t, 7, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, SheetSummary{ID: "a1", ImageURL: "https://img/a1.jpg"}, page.Items[0])
}

func TestListSheetsNormalizesPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"zero pages", `{"sheets":[],"pages":0}`},
		{"negative pages", `{"sheets":null,"pages":-3}`},
		{"missing pages", `{"sheets":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, mock := newMockClient(t)
			mock.RegisterResponder(http.MethodGet, testBaseURL+"sheets/verified/1",
				httpmock.NewStringResponder(http.StatusOK, tt.body))

			page, err := c.ListSheets(t.Context(), CollectionVerified, 1)
			require.NoError(t, err)
			assert.Equal(t, 1, page.TotalPages)
			assert.NotNil(t, page.Items)
			assert.Empty(t, page.Items)
		})
	}
}

func TestListSheetsValidatesInput(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)

	_, err := c.ListSheets(t.Context(), CollectionUnverified, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryValidation))

	_, err = c.ListSheets(t.Context(), Collection("archived"), 1)
	require.Error(t, err)

	assert.Zero(t, mock.GetTotalCallCount(), "invalid input must not reach the network")
}

func TestListSheetsTransportFailure(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodGet, testBaseURL+"sheets/unverified/1",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.ListSheets(t.Context(), CollectionUnverified, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryNetwork))
}

func TestListSheetsMalformedBody(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodGet, testBaseURL+"sheets/unverified/1",
		httpmock.NewStringResponder(http.StatusOK, `<html>maintenance</html>`))

	_, err := c.ListSheets(t.Context(), CollectionUnverified, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryFileParsing))
}

func TestGetSheet(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodGet, testBaseURL+"sheet/abc",
		httpmock.NewStringResponder(http.StatusOK, `{"imageURL":"https://img/abc.jpg","verified":true,"canReview":false,"votes":[12,40,7]}`))
	mock.RegisterResponder(http.MethodGet, testBaseURL+"sheet/gone",
		httpmock.NewStringResponder(http.StatusNotFound, ``))
	mock.RegisterResponder(http.MethodGet, testBaseURL+"sheet/broken",
		httpmock.NewStringResponder(http.StatusBadGateway, ``))

	detail, err := c.GetSheet(t.Context(), "abc")
	require.NoError(t, err)
	assert.Equal(t, &SheetDetail{ImageURL: "https://img/abc.jpg", Verified: true, Votes: [3]int{12, 40, 7}}, detail)

	_, err = c.GetSheet(t.Context(), "gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSheetNotFound)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = c.GetSheet(t.Context(), "broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownServer)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryHTTP))

	_, err = c.GetSheet(t.Context(), "")
	require.Error(t, err)
}

func TestGetProgress(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodGet, testBaseURL+"pie_chart",
		httpmock.NewStringResponder(http.StatusOK, `{"candidate_1":100,"candidate_2":250,"candidate_3":50,"count":41}`))

	snap, err := c.GetProgress(t.Context())
	require.NoError(t, err)
	assert.Equal(t, &ProgressSnapshot{CandidateTotals: [3]int{100, 250, 50}, CheckedCount: 41}, snap)
}

func TestSubmitVotesClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		wantKind OutcomeKind
		sentinel error
		category apperrors.ErrorCategory
		key      string
	}{
		{"ok", http.StatusOK, OutcomeSuccess, nil, "", "contribute.success"},
		{"created", http.StatusCreated, OutcomeSuccess, nil, "", "contribute.success"},
		{"bad captcha", http.StatusBadRequest, OutcomeCaptchaRejected, ErrCaptchaRejected, apperrors.CategoryValidation, "contribute.captcha-failed"},
		{"duplicate", http.StatusForbidden, OutcomeAlreadyContributed, ErrAlreadyContributed, apperrors.CategoryConflict, "contribute.already-contributed"},
		{"missing", http.StatusNotFound, OutcomeSheetNotFound, ErrSheetNotFound, apperrors.CategoryNotFound, "contribute.not-found"},
		{"server error", http.StatusInternalServerError, OutcomeUnknownServerError, ErrUnknownServer, apperrors.CategoryHTTP, "contribute.unknown-error"},
		{"teapot", http.StatusTeapot, OutcomeUnknownServerError, ErrUnknownServer, apperrors.CategoryHTTP, "contribute.unknown-error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, mock := newMockClient(t)
			mock.RegisterResponder(http.MethodPost, testBaseURL+"sheet/s1",
				httpmock.NewStringResponder(tt.status, ``))

			outcome := c.SubmitVotes(t.Context(), "s1", VoteTally{1, 2, 3}, "tok")

			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Equal(t, tt.status, outcome.StatusCode)
			assert.Equal(t, tt.key, outcome.Kind.MessageKey())
			assert.Equal(t, 1, mock.GetTotalCallCount(), "no retries")
			if tt.sentinel == nil {
				assert.True(t, outcome.OK())
				assert.NoError(t, outcome.Err)
				return
			}
			assert.False(t, outcome.OK())
			assert.ErrorIs(t, outcome.Err, tt.sentinel)
			assert.Equal(t, tt.category, apperrors.CategoryOf(outcome.Err))
		})
	}
}

func TestSubmitVotesTransportError(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodPost, testBaseURL+"sheet/s1",
		httpmock.NewErrorResponder(errors.New("dial tcp: connection refused")))

	outcome := c.SubmitVotes(t.Context(), "s1", VoteTally{1, 0, 0}, "")

	assert.Equal(t, OutcomeTransportError, outcome.Kind)
	assert.Zero(t, outcome.StatusCode)
	assert.ErrorIs(t, outcome.Err, ErrTransport)
	assert.Equal(t, "contribute.failed-to-connect", outcome.Kind.MessageKey())

	var ee *apperrors.EnhancedError
	require.ErrorAs(t, outcome.Err, &ee)
	ctx := ee.GetContext()
	assert.Equal(t, "https-endpoint", ctx["url_category"])
	assert.InDelta(t, 1.0, ctx["timeout_seconds"], 0)
	assert.Equal(t, metrics.EndpointSubmitVotes, ctx["operation"])
	assert.Contains(t, ctx, "duration_ms")
}

func TestErrorsCarryRequestIDAndPriority(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	var sent []string
	record := func(status int) httpmock.Responder {
		return func(req *http.Request) (*http.Response, error) {
			sent = append(sent, req.Header.Get(httpclient.RequestIDHeader))
			return httpmock.NewStringResponse(status, ""), nil
		}
	}
	mock.RegisterResponder(http.MethodPost, testBaseURL+"sheet/dup", record(http.StatusForbidden))
	mock.RegisterResponder(http.MethodGet, testBaseURL+"pie_chart", record(http.StatusBadGateway))

	outcome := c.SubmitVotes(t.Context(), "dup", VoteTally{1, 0, 0}, "tok")
	_, err := c.GetProgress(t.Context())
	require.Error(t, err)
	require.Len(t, sent, 2)

	var conflict, server *apperrors.EnhancedError
	require.ErrorAs(t, outcome.Err, &conflict)
	require.ErrorAs(t, err, &server)

	assert.Equal(t, sent[0], conflict.GetContext()["request_id"])
	assert.Equal(t, apperrors.PriorityLow, conflict.GetPriority())
	assert.Equal(t, sent[1], server.GetContext()["request_id"])
	assert.Equal(t, apperrors.PriorityHigh, server.GetPriority())
	assert.NotEqual(t, sent[0], sent[1])
}

func TestSubmitVotesBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		captcha     string
		wantCaptcha any
	}{
		{"with captcha", "03AF-token", "03AF-token"},
		{"without captcha", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, mock := newMockClient(t)

			var body map[string]any
			mock.RegisterResponder(http.MethodPost, testBaseURL+"sheet/s9",
				func(req *http.Request) (*http.Response, error) {
					assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
					assert.NotEmpty(t, req.Header.Get(httpclient.RequestIDHeader))
					if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
						return nil, err
					}
					return httpmock.NewStringResponse(http.StatusOK, ""), nil
				})

			outcome := c.SubmitVotes(t.Context(), "s9", VoteTally{5, 0, 11}, tt.captcha)
			require.True(t, outcome.OK())

			assert.InDelta(t, 5, body["candidate1"], 0)
			assert.InDelta(t, 0, body["candidate2"], 0)
			assert.InDelta(t, 11, body["candidate3"], 0)
			require.Contains(t, body, "captcha")
			assert.Equal(t, tt.wantCaptcha, body["captcha"])
		})
	}
}

func TestClientRecordsMetrics(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewReviewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	c, mock := newMockClient(t, WithMetrics(m))
	mock.RegisterResponder(http.MethodPost, testBaseURL+"sheet/s1",
		httpmock.NewStringResponder(http.StatusForbidden, ``))
	mock.RegisterResponder(http.MethodGet, testBaseURL+"pie_chart",
		httpmock.NewErrorResponder(errors.New("no route to host")))

	c.SubmitVotes(t.Context(), "s1", VoteTally{1, 1, 1}, "tok")
	_, _ = c.GetProgress(t.Context())

	assert.InDelta(t, 1, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues(metrics.EndpointSubmitVotes, "403")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues(metrics.EndpointProgress, "0")), 0)
}

func TestParseCollection(t *testing.T) {
	t.Parallel()

	c, err := ParseCollection("verified")
	require.NoError(t, err)
	assert.Equal(t, CollectionVerified, c)

	_, err = ParseCollection("Verified")
	require.Error(t, err)
}

func TestVoteTallySum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, VoteTally{}.Sum())
	assert.Equal(t, 18, VoteTally{3, 10, 5}.Sum())

	assert.True(t, VoteTally{}.Empty())
	assert.False(t, VoteTally{0, 0, 1}.Empty())
}
