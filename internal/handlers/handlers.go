package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
	"github.com/Billy-Davies-2/draft-oracle/internal/pubsub"
	"github.com/Billy-Davies-2/draft-oracle/internal/tasks"
)

// DraftService is the engine surface the API exposes.
type DraftService interface {
	CreateDraft(ctx context.Context, in draft.CreateDraftInput) (*models.Draft, error)
	GetDraft(ctx context.Context, id string) (*models.Draft, *models.DraftHistory, error)
	LatestDraft(ctx context.Context) (*models.Draft, *models.DraftHistory, error)
	ListDrafts(ctx context.Context) ([]*models.Draft, error)
	Team(ctx context.Context, draftID, name string) (*models.Team, error)
	OrderForRound(ctx context.Context, draftID string, round int) ([]string, error)
	PickStatus(ctx context.Context, draftID string, round, pick int) (draft.PickStatus, error)
	ExecutePick(ctx context.Context, draftID string, round, pick int, team string) (models.SelectionResult, error)
	RunToCompletion(ctx context.Context, draftID string) ([]draft.PickOutcome, error)
	LatestPool(ctx context.Context) (*models.PlayerPool, error)
	Pool(ctx context.Context, id string) (*models.PlayerPool, error)
}

// TaskService runs picks asynchronously.
type TaskService interface {
	Submit(ctx context.Context, req tasks.PickRequest) (string, error)
	Poll(ctx context.Context, id string) (*models.PickTask, error)
}

// EventSource feeds the SSE stream.
type EventSource interface {
	Subscribe() chan pubsub.Event
	Unsubscribe(chan pubsub.Event)
	Recent(draftID string) []pubsub.Event
}

// HealthCheck reports one dependency's health.
type HealthCheck func(ctx context.Context) error

// APIHandlers contains all API handler methods
type APIHandlers struct {
	drafts    DraftService
	tasks     TaskService
	events    EventSource
	checks    map[string]HealthCheck
	keepalive time.Duration
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(drafts DraftService, taskSvc TaskService, events EventSource, checks map[string]HealthCheck) *APIHandlers {
	return &APIHandlers{
		drafts:    drafts,
		tasks:     taskSvc,
		events:    events,
		checks:    checks,
		keepalive: 30 * time.Second,
	}
}

// Register mounts every route on mux. protect wraps the mutating routes.
func (h *APIHandlers) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	post := func(pattern string, fn http.HandlerFunc) {
		mux.Handle("POST "+pattern, protect(fn))
	}

	post("/api/drafts", h.CreateDraft)
	mux.HandleFunc("GET /api/drafts", h.ListDrafts)
	mux.HandleFunc("GET /api/draft", h.CurrentDraft)
	mux.HandleFunc("GET /api/drafts/{id}", h.GetDraft)
	mux.HandleFunc("GET /api/drafts/{id}/teams/{team}", h.GetTeam)
	mux.HandleFunc("GET /api/drafts/{id}/rounds/{round}/order", h.GetOrder)
	post("/api/drafts/{id}/rounds/{round}/picks/{pick}/teams/{team}", h.ExecutePick)
	post("/api/drafts/{id}/rounds/{round}/picks/{pick}/teams/{team}/async", h.SubmitPick)
	mux.HandleFunc("GET /api/drafts/{id}/rounds/{round}/picks/{pick}/status", h.GetPickStatus)
	post("/api/drafts/{id}/run", h.RunDraft)
	mux.HandleFunc("GET /api/tasks/{id}", h.GetTask)
	mux.HandleFunc("GET /api/player-pool", h.GetLatestPool)
	mux.HandleFunc("GET /api/player-pools/{id}", h.GetPool)
	mux.HandleFunc("GET /api/events", h.EventsSSE)

	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /healthz", h.Liveness)
	mux.HandleFunc("GET /readyz", h.Readiness)
}

// CreateDraft creates a draft. The body is optional.
func (h *APIHandlers) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var in draft.CreateDraftInput
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			logger.Warn("Failed to decode create draft request", "error", err)
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error(), Kind: models.KindValidation})
			return
		}
	}

	d, err := h.drafts.CreateDraft(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft.NewDraftView(d, nil))
}

// ListDrafts returns every draft without history.
func (h *APIHandlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.drafts.ListDrafts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]draft.DraftView, len(drafts))
	for i, d := range drafts {
		views[i] = draft.NewDraftView(d, nil)
	}
	writeJSON(w, http.StatusOK, views)
}

// CurrentDraft returns the latest draft, creating one when none exists.
func (h *APIHandlers) CurrentDraft(w http.ResponseWriter, r *http.Request) {
	d, hist, err := h.drafts.LatestDraft(r.Context())
	if errors.Is(err, models.ErrDraftNotFound) {
		logger.Info("No draft found, creating one")
		d, err = h.drafts.CreateDraft(r.Context(), draft.CreateDraftInput{})
		if err == nil {
			d, hist, err = h.drafts.GetDraft(r.Context(), d.ID)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft.NewDraftView(d, hist))
}

// GetDraft returns one draft with its history.
func (h *APIHandlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, hist, err := h.drafts.GetDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft.NewDraftView(d, hist))
}

// GetTeam returns one team's roster, needs and drafted players.
func (h *APIHandlers) GetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.drafts.Team(r.Context(), r.PathValue("id"), r.PathValue("team"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft.NewTeamView(team))
}

// GetOrder returns the team order for a round.
func (h *APIHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	round, ok := intParam(w, r, "round")
	if !ok {
		return
	}
	order, err := h.drafts.OrderForRound(r.Context(), r.PathValue("id"), round)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"round": round, "order": order})
}

// ExecutePick runs one pick synchronously.
func (h *APIHandlers) ExecutePick(w http.ResponseWriter, r *http.Request) {
	round, pick, ok := roundPick(w, r)
	if !ok {
		return
	}
	res, err := h.drafts.ExecutePick(r.Context(), r.PathValue("id"), round, pick, r.PathValue("team"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SubmitPick queues a pick and returns its task id.
func (h *APIHandlers) SubmitPick(w http.ResponseWriter, r *http.Request) {
	round, pick, ok := roundPick(w, r)
	if !ok {
		return
	}
	id, err := h.tasks.Submit(r.Context(), tasks.PickRequest{
		DraftID: r.PathValue("id"),
		Round:   round,
		Pick:    pick,
		Team:    r.PathValue("team"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/tasks/"+id)
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id, "status": string(models.TaskPending)})
}

// GetPickStatus reports whether a slot has been resolved.
func (h *APIHandlers) GetPickStatus(w http.ResponseWriter, r *http.Request) {
	round, pick, ok := roundPick(w, r)
	if !ok {
		return
	}
	st, err := h.drafts.PickStatus(r.Context(), r.PathValue("id"), round, pick)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// RunDraft resolves every remaining slot. On failure the picks made so far
// are returned with the error.
func (h *APIHandlers) RunDraft(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.drafts.RunToCompletion(r.Context(), r.PathValue("id"))
	if outcomes == nil {
		outcomes = []draft.PickOutcome{}
	}
	if err != nil {
		body := errorFor(err)
		body.Outcomes = outcomes
		writeJSON(w, statusFor(err), body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"outcomes": outcomes})
}

// GetTask polls an async pick.
func (h *APIHandlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Poll(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// GetLatestPool returns the most recently seeded template pool.
func (h *APIHandlers) GetLatestPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.drafts.LatestPool(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// GetPool returns a template pool by id.
func (h *APIHandlers) GetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.drafts.Pool(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// EventsSSE provides Server-Sent Events for realtime updates. With
// ?draft_id= only that draft's events are sent, starting with the buffered
// ones.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	draftID := r.URL.Query().Get("draft_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Subscribe before replaying so nothing published in between is lost.
	eventChan := h.events.Subscribe()
	defer h.events.Unsubscribe(eventChan)

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flusher.Flush()

	send := func(event pubsub.Event) {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Warn("Failed to encode SSE event", "type", event.Type, "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
		flusher.Flush()
	}
	// An event published between Subscribe and Recent shows up in both;
	// replayed sequence numbers are skipped when they arrive live.
	var replayed map[uint64]bool
	var lastReplayed uint64
	if draftID != "" {
		for _, event := range h.events.Recent(draftID) {
			if event.Seq != 0 {
				if replayed == nil {
					replayed = make(map[uint64]bool)
				}
				replayed[event.Seq] = true
				lastReplayed = max(lastReplayed, event.Seq)
			}
			send(event)
		}
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()
	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if replayed != nil {
				if replayed[event.Seq] {
					delete(replayed, event.Seq)
					continue
				}
				if event.Seq > lastReplayed {
					replayed = nil
				}
			}
			if draftID == "" || event.DraftID == draftID {
				send(event)
			}
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// Health runs every dependency check.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{}, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			continue
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Liveness handles Kubernetes liveness probes
func (h *APIHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness fails when the database check fails.
func (h *APIHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if check, ok := h.checks["database"]; ok {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":    "not_ready",
				"reason":    "database_unavailable",
				"timestamp": time.Now().Unix(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

func roundPick(w http.ResponseWriter, r *http.Request) (round, pick int, ok bool) {
	if round, ok = intParam(w, r, "round"); !ok {
		return 0, 0, false
	}
	if pick, ok = intParam(w, r, "pick"); !ok {
		return 0, 0, false
	}
	return round, pick, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: fmt.Sprintf("%s must be an integer, got %q", name, r.PathValue(name)),
			Kind:  models.KindValidation,
		})
		return 0, false
	}
	return v, true
}
