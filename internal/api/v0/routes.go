// Package v0 provides the REST API handlers for the package registry backend.
package v0

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pricorephp/pricore/internal/status"
	"github.com/pricorephp/pricore/internal/store"
	pkgsync "github.com/pricorephp/pricore/internal/sync"
)

const defaultRunHistoryLimit = 20

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncTriggerResponse is returned when a sync is requested.
type SyncTriggerResponse struct {
	RunID uuid.UUID `json:"run_id"`
	// Started is false when a run was already active and the request was a
	// no-op.
	Started bool `json:"started"`
}

// webhookEvent is the minimal payload shape accepted from push webhooks.
// Only the repository clone URL is read; signature verification is handled
// upstream of this service.
type webhookEvent struct {
	Repository struct {
		CloneURL string `json:"clone_url"`
		GitURL   string `json:"git_http_url"`
	} `json:"repository"`
}

// Routes defines the routes for the sync API with dependency injection
type Routes struct {
	engine pkgsync.Engine
	store  store.Store
	logger *slog.Logger
}

// NewRoutes creates a new Routes instance with the provided dependencies
func NewRoutes(engine pkgsync.Engine, s store.Store, logger *slog.Logger) *Routes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Routes{
		engine: engine,
		store:  s,
		logger: logger,
	}
}

// Router creates a new router for the sync API
func Router(engine pkgsync.Engine, s store.Store, logger *slog.Logger) http.Handler {
	routes := NewRoutes(engine, s, logger)

	r := chi.NewRouter()

	r.Get("/repositories", routes.listRepositories)
	r.Get("/repositories/{id}", routes.getRepository)
	r.Get("/repositories/{id}/versions", routes.listVersions)
	r.Get("/repositories/{id}/sync-runs", routes.listSyncRuns)
	r.Post("/repositories/{id}/sync", routes.triggerSync)
	r.Get("/sync-runs/{id}", routes.getSyncRun)
	r.Post("/webhooks/{provider}", routes.handleWebhook)

	return r
}

// triggerSync handles POST /api/v0/repositories/{id}/sync
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.pathID(w, r)
	if !ok {
		return
	}

	run, started, err := rr.engine.StartSync(r.Context(), id)
	if err != nil {
		rr.writeStoreError(w, err, "failed to start sync")
		return
	}

	rr.writeJSONResponse(w, http.StatusAccepted, SyncTriggerResponse{
		RunID:   run.ID,
		Started: started,
	})
}

// getRepository handles GET /api/v0/repositories/{id}
func (rr *Routes) getRepository(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.pathID(w, r)
	if !ok {
		return
	}

	repo, err := rr.store.GetRepository(r.Context(), id)
	if err != nil {
		rr.writeStoreError(w, err, "failed to get repository")
		return
	}

	rr.writeJSONResponse(w, http.StatusOK, status.FromRepository(repo))
}

// listRepositories handles GET /api/v0/repositories
func (rr *Routes) listRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := rr.store.ListRepositories(r.Context())
	if err != nil {
		rr.writeStoreError(w, err, "failed to list repositories")
		return
	}

	out := make([]status.Repository, 0, len(repos))
	for _, repo := range repos {
		out = append(out, status.FromRepository(repo))
	}
	rr.writeJSONResponse(w, http.StatusOK, out)
}

// listVersions handles GET /api/v0/repositories/{id}/versions
func (rr *Routes) listVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.pathID(w, r)
	if !ok {
		return
	}

	versions, err := rr.store.ListVersions(r.Context(), id)
	if err != nil {
		rr.writeStoreError(w, err, "failed to list versions")
		return
	}

	out := make([]status.PackageVersion, 0, len(versions))
	for _, v := range versions {
		out = append(out, status.FromVersion(v))
	}
	rr.writeJSONResponse(w, http.StatusOK, out)
}

// listSyncRuns handles GET /api/v0/repositories/{id}/sync-runs
func (rr *Routes) listSyncRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.pathID(w, r)
	if !ok {
		return
	}

	limit := defaultRunHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			rr.writeErrorResponse(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := rr.store.ListRuns(r.Context(), id, int32(limit))
	if err != nil {
		rr.writeStoreError(w, err, "failed to list sync runs")
		return
	}

	out := make([]status.SyncRun, 0, len(runs))
	for _, run := range runs {
		out = append(out, status.FromRun(run))
	}
	rr.writeJSONResponse(w, http.StatusOK, out)
}

// getSyncRun handles GET /api/v0/sync-runs/{id}
func (rr *Routes) getSyncRun(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.pathID(w, r)
	if !ok {
		return
	}

	run, err := rr.store.GetRun(r.Context(), id)
	if err != nil {
		rr.writeStoreError(w, err, "failed to get sync run")
		return
	}

	rr.writeJSONResponse(w, http.StatusOK, status.FromRun(run))
}

// handleWebhook handles POST /api/v0/webhooks/{provider}. A push event maps
// 1:1 onto a sync trigger for the repository it names.
func (rr *Routes) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		rr.writeErrorResponse(w, "invalid webhook payload", http.StatusBadRequest)
		return
	}

	cloneURL := event.Repository.CloneURL
	if cloneURL == "" {
		cloneURL = event.Repository.GitURL
	}
	if cloneURL == "" {
		rr.writeErrorResponse(w, "webhook payload has no repository URL", http.StatusBadRequest)
		return
	}

	repo, err := rr.store.GetRepositoryBySourceURL(r.Context(), cloneURL)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown repositories are acknowledged, not retried by the
			// sender.
			rr.logger.Info("webhook for untracked repository",
				"provider", chi.URLParam(r, "provider"), "url", cloneURL)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		rr.writeStoreError(w, err, "failed to resolve webhook repository")
		return
	}

	run, started, err := rr.engine.StartSync(r.Context(), repo.ID)
	if err != nil {
		rr.writeStoreError(w, err, "failed to start sync")
		return
	}

	rr.writeJSONResponse(w, http.StatusAccepted, SyncTriggerResponse{
		RunID:   run.ID,
		Started: started,
	})
}

func (rr *Routes) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		rr.writeErrorResponse(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (rr *Routes) writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		rr.writeErrorResponse(w, "not found", http.StatusNotFound)
		return
	}
	rr.logger.Error(msg, "error", err)
	rr.writeErrorResponse(w, msg, http.StatusInternalServerError)
}

func (rr *Routes) writeJSONResponse(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rr.logger.Error("failed to encode response", "error", err)
	}
}

func (rr *Routes) writeErrorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		rr.logger.Error("failed to encode error response", "error", err)
	}
}
