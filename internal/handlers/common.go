package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/valstats/matchcache/internal/models"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready reports whether the backfill pool can take work
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ready := h.matches != nil
	depth := 0
	if h.pool != nil {
		depth = h.pool.QueueDepth()
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":      ready,
		"queueDepth": depth,
	})
}

// credential is the caller's upstream API key: its own Authorization header,
// else the configured default.
func (h *Handler) credential(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		return auth
	}
	return h.defaultAuth
}

// scopeFromRequest reads guild, platform and region from the path and mode
// and variant from the query.
func scopeFromRequest(r *http.Request) (models.Scope, error) {
	q := r.URL.Query()
	return models.ResolveScope(
		chi.URLParam(r, "guild"),
		chi.URLParam(r, "platform"),
		chi.URLParam(r, "region"),
		q.Get("mode"),
		q.Get("variant"),
	)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, models.InvalidArgument("%s must be an integer", key)
	}
	return i, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, models.InvalidArgument("%s must be a boolean", key)
	}
	return b, nil
}

// pageParams reads offset and limit. Limit defaults to DefaultPageLimit and is
// capped at MaxPageLimit.
func pageParams(r *http.Request) (int, int, error) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(r, "limit", DefaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 || limit < 0 {
		return 0, 0, models.InvalidArgument("offset and limit must not be negative")
	}
	return offset, min(limit, MaxPageLimit), nil
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var remote *models.RemoteError
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &remote) && remote.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	case errors.Is(err, models.ErrRemoteCallFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("Request failed", "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			h.errorResponse(w, status, "Internal error")
			return
		}
	} else {
		h.logger.Debugw("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	h.errorResponse(w, status, err.Error())
}
