package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valstats/matchcache/internal/logic"
	"github.com/valstats/matchcache/internal/models"
)

// BackfillRequest is the body of POST /api/v1/backfill
type BackfillRequest struct {
	GuildID      string `json:"guild_id" validate:"max=64"`
	Platform     string `json:"platform" validate:"required,oneof=pc console"`
	Region       string `json:"region" validate:"required,oneof=eu na latam br ap kr"`
	Mode         string `json:"mode" validate:"max=32"`
	Variant      string `json:"variant" validate:"omitempty,oneof=standard deathmatch"`
	Name         string `json:"name" validate:"required,max=64"`
	Tag          string `json:"tag" validate:"required,max=16"`
	Start        int    `json:"start" validate:"min=0"`
	Size         int    `json:"size" validate:"min=0,max=10"`
	StoreMatches int    `json:"store_matches" validate:"min=0,max=10"`
	SkipStored   bool   `json:"skip_stored"`
}

// EnqueueBackfill handles POST /api/v1/backfill
// @Summary Queue Backfill
// @Description Queues a background fetch that stores up to store_matches matches of a player
// @Tags Backfill
// @Accept json
// @Produce json
// @Param body body BackfillRequest true "Backfill request"
// @Success 202 {object} map[string]string "Accepted"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 503 {object} map[string]string "Queue full"
// @Router /backfill [post]
func (h *Handler) EnqueueBackfill(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "Backfill disabled")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	var body BackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	scope, err := models.ResolveScope(body.GuildID, body.Platform, body.Region, body.Mode, body.Variant)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	req := logic.FetchRequest{
		Scope:  scope,
		Auth:   h.credential(r),
		Player: models.RiotID{Name: body.Name, Tag: body.Tag},
		Options: logic.FetchOptions{
			Start:        body.Start,
			QuerySize:    body.Size,
			StoreMatches: body.StoreMatches,
			SkipStored:   body.SkipStored,
			Cache:        logic.CacheBypass,
		},
	}

	id, ok := h.pool.Enqueue(req)
	if !ok {
		h.errorResponse(w, http.StatusServiceUnavailable, "Backfill queue full")
		return
	}

	h.jsonResponse(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": "queued",
	})
}

// GetBackfillStatus handles GET /api/v1/backfill/{id}
// @Summary Backfill Status
// @Tags Backfill
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} worker.JobStatus
// @Failure 404 {object} map[string]string "Unknown job"
// @Router /backfill/{id} [get]
func (h *Handler) GetBackfillStatus(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "Backfill disabled")
		return
	}
	status, ok := h.pool.Status(chi.URLParam(r, "id"))
	if !ok {
		h.errorResponse(w, http.StatusNotFound, "Job not found")
		return
	}
	h.jsonResponse(w, http.StatusOK, status)
}
