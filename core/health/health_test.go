package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/lifevault/core/health"
)

func TestHandler(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("redis: connection refused") }

	tests := []struct {
		name   string
		path   string
		checks []func(context.Context) error
		status int
		body   string
	}{
		{"live ignores checks", "/health/live", []func(context.Context) error{down}, http.StatusOK, "ALIVE"},
		{"ready without checks", "/health/ready", nil, http.StatusOK, "READY"},
		{"ready with passing checks", "/health/ready", []func(context.Context) error{ok, ok}, http.StatusOK, "READY"},
		{"one failing check", "/health/ready", []func(context.Context) error{ok, down}, http.StatusServiceUnavailable, "NOT READY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			health.Handler(nil, tt.checks...).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "redis")
		})
	}
}
