package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/metrics"
)

func newMetricsRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/participants", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestMetricsLabelsUseMatchedRoute(t *testing.T) {
	req := require.New(t)
	router := newMetricsRouter()

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/participants", "200")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/participants", nil))
	req.Equal(http.StatusOK, rec.Code)

	req.Equal(before+1, testutil.ToFloat64(counter))
}

func TestMetricsUnmatchedPathsShareOneLabel(t *testing.T) {
	req := require.New(t)
	router := newMetricsRouter()

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/nope", "/nope/deeper", "/participants/123"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		req.Equal(http.StatusNotFound, rec.Code)
	}

	req.Equal(before+3, testutil.ToFloat64(counter))
}
