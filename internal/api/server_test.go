package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricorephp/pricore/internal/store"
	"github.com/pricorephp/pricore/internal/store/inmemory"
)

type stubEngine struct{}

func (stubEngine) StartSync(_ context.Context, _ uuid.UUID) (store.Run, bool, error) {
	return store.Run{}, false, nil
}

func (stubEngine) SyncNow(_ context.Context, _ uuid.UUID) (store.Run, error) {
	return store.Run{}, nil
}

func TestServerHealth(t *testing.T) {
	t.Parallel()

	handler := NewServer(stubEngine{}, inmemory.New())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// Requests travel the full middleware chain so the handler sees a
// deadline-carrying context and a request id.
func TestServerRequestContextHasDeadline(t *testing.T) {
	t.Parallel()

	handler := NewServer(stubEngine{}, inmemory.New())

	var hasDeadline bool
	handler.Get("/deadline-check", func(_ http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deadline-check", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hasDeadline)
}
