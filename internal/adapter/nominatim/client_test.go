package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrasdm/sightings-etl/internal/observability"
)

const (
	testUserAgent     = "test-agent"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	mockURL           = "https://nominatim.test/search"
)

func testClient(baseURL string, m *observability.Metrics) *Client {
	return NewClient(baseURL, testUserAgent, 5*time.Second, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bacoor, Cavite, Philippines", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[{"lat":"14.4590","lon":"120.9430","display_name":"Bacoor, Cavite, Calabarzon, Philippines"}]`)
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	result, err := testClient(srv.URL, m).Geocode(context.Background(), "Bacoor, Cavite, Philippines")
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Equal(t, 14.459, result.Lat)
	assert.Equal(t, 120.943, result.Lon)
	assert.Equal(t, "Bacoor, Cavite, Calabarzon, Philippines", result.DisplayName)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("found")))
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	result, err := testClient(srv.URL, m).Geocode(context.Background(), "Nowhere, Philippines")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("not_found")))
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "rate limited")
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	_, err := testClient(srv.URL, m).Geocode(context.Background(), "Bacoor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("error")))
}

func TestClient_Geocode_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Geocode(context.Background(), "Bacoor")
	require.Error(t, err)
}

func TestClient_Geocode_Mocked(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		wantErr   string
		wantFound bool
	}{
		{
			name:      "first match wins",
			responder: httpmock.NewStringResponder(200, `[{"lat":"10.7","lon":"122.5","display_name":"Iloilo"},{"lat":"0","lon":"0","display_name":"other"}]`),
			wantFound: true,
		},
		{
			name:      "malformed body",
			responder: httpmock.NewStringResponder(200, `{"error":`),
			wantErr:   "decode response",
		},
		{
			name:      "bad coordinate",
			responder: httpmock.NewStringResponder(200, `[{"lat":"north","lon":"122.5"}]`),
			wantErr:   "parse lat",
		},
		{
			name:      "transport failure",
			responder: httpmock.NewErrorResponder(io.ErrUnexpectedEOF),
			wantErr:   "geocode request",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := httpmock.NewMockTransport()
			mt.RegisterResponder(http.MethodGet, mockURL, tt.responder)

			c := testClient(mockURL, observability.NewMetricsForTesting())
			c.httpClient.Transport = mt

			result, err := c.Geocode(context.Background(), "Iloilo, Philippines")
			assert.Equal(t, 1, mt.GetTotalCallCount())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, result.Found)
			assert.Equal(t, 10.7, result.Lat)
		})
	}
}
