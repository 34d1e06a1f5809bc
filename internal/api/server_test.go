package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"newsimpact/internal/api/health"
	"newsimpact/pkg/logger"
)

func TestRouter(t *testing.T) {
	hh := health.New(logger.Nop(), map[string]health.Check{
		"postgres": func(ctx context.Context) error { return nil },
	}, nil, "newsimpact", "test")
	r := NewRouter(ServerConfig{ServiceName: "newsimpact", Version: "test"}, hh, nil, logger.Nop())

	tests := []struct {
		path string
		code int
	}{
		{"/", http.StatusOK},
		{"/live", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/windows", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}
