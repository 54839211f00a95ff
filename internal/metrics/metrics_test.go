package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTP_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/users/verify/{verificationToken}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/users/current", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/users/verify/a", "/api/users/verify/b", "/api/users/current"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.requests.WithLabelValues(http.MethodGet, "/api/users/verify/{verificationToken}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.requests.WithLabelValues(http.MethodGet, "/api/users/current", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestNewHTTP_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewHTTP(reg)
	assert.Panics(t, func() { NewHTTP(reg) })
}
