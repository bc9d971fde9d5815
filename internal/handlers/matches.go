package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/valstats/matchcache/internal/logic"
	"github.com/valstats/matchcache/internal/models"
)

// latestQuery carries the player identity of a latest-match request
type latestQuery struct {
	Name string `validate:"required,max=64"`
	Tag  string `validate:"required,max=16"`
}

// GetLatestMatch handles GET /api/v1/scopes/{guild}/{platform}/{region}/matches/latest
// @Summary Latest Match
// @Description Returns the newest eligible match of a player, from the cache when allowed, otherwise fetched, enriched and stored
// @Tags Matches
// @Produce json
// @Param guild path string true "Guild ID (dm for direct messages)"
// @Param platform path string true "pc or console"
// @Param region path string true "eu, na, latam, br, ap or kr"
// @Param name query string true "Riot name"
// @Param tag query string true "Riot tag"
// @Param mode query string false "Queue mode (default custom)"
// @Param variant query string false "standard or deathmatch"
// @Param start query int false "List offset"
// @Param size query int false "List size (1-10)"
// @Param store query int false "Matches to store (1-10)"
// @Param skip_stored query bool false "Skip matches already stored"
// @Param cache query string false "default, prefer or bypass"
// @Success 200 {object} models.EnrichedMatch
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "No match found"
// @Failure 502 {object} map[string]string "Upstream failure"
// @Router /scopes/{guild}/{platform}/{region}/matches/latest [get]
func (h *Handler) GetLatestMatch(w http.ResponseWriter, r *http.Request) {
	req, err := h.fetchRequest(r)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	m, err := h.matches.Fetch(r.Context(), req)
	if err != nil {
		h.failure(w, r, err)
		return
	}
	if m == nil {
		h.errorResponse(w, http.StatusNotFound, "No match found")
		return
	}
	h.jsonResponse(w, http.StatusOK, m)
}

func (h *Handler) fetchRequest(r *http.Request) (logic.FetchRequest, error) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		return logic.FetchRequest{}, err
	}

	q := r.URL.Query()
	lq := latestQuery{Name: q.Get("name"), Tag: q.Get("tag")}
	if err := h.validator.Struct(lq); err != nil {
		return logic.FetchRequest{}, models.InvalidArgument("name and tag are required")
	}

	var opts logic.FetchOptions
	if opts.Start, err = queryInt(r, "start", 0); err != nil {
		return logic.FetchRequest{}, err
	}
	if opts.QuerySize, err = queryInt(r, "size", 0); err != nil {
		return logic.FetchRequest{}, err
	}
	if opts.StoreMatches, err = queryInt(r, "store", 0); err != nil {
		return logic.FetchRequest{}, err
	}
	if opts.SkipStored, err = queryBool(r, "skip_stored"); err != nil {
		return logic.FetchRequest{}, err
	}
	if opts.Cache, err = logic.ParseCachePolicy(q.Get("cache")); err != nil {
		return logic.FetchRequest{}, err
	}

	return logic.FetchRequest{
		Scope:   scope,
		Auth:    h.credential(r),
		Player:  models.RiotID{Name: lq.Name, Tag: lq.Tag},
		Options: opts,
	}, nil
}

// GetPlayerMatches handles GET /api/v1/scopes/{guild}/{platform}/{region}/players/{puuid}/matches
// @Summary Player Match Page
// @Description Returns a page of a player's stored matches, newest first
// @Tags Matches
// @Produce json
// @Param puuid path string true "Player PUUID"
// @Param offset query int false "Offset"
// @Param limit query int false "Limit (max 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /scopes/{guild}/{platform}/{region}/players/{puuid}/matches [get]
func (h *Handler) GetPlayerMatches(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		h.failure(w, r, err)
		return
	}
	offset, limit, err := pageParams(r)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	puuid := chi.URLParam(r, "puuid")
	matches, err := h.matches.Page(r.Context(), scope, puuid, offset, limit)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"puuid":   puuid,
		"offset":  offset,
		"limit":   limit,
		"matches": matches,
	})
}

// GetRiotHistory handles GET /api/v1/scopes/{guild}/{platform}/{region}/riot/{riotId}/history
// @Summary Player History By Riot ID
// @Tags Matches
// @Produce json
// @Param riotId path string true "Name#Tag"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Unknown player"
// @Router /scopes/{guild}/{platform}/{region}/riot/{riotId}/history [get]
func (h *Handler) GetRiotHistory(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		h.failure(w, r, err)
		return
	}
	offset, limit, err := pageParams(r)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	riotID := riotParam(r)
	matches, err := h.matches.History(r.Context(), scope, riotID, offset, limit)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"riot_id": riotID,
		"offset":  offset,
		"limit":   limit,
		"matches": matches,
	})
}

// GetRiotPUUID handles GET /api/v1/scopes/{guild}/{platform}/{region}/riot/{riotId}/puuid
// @Summary Resolve PUUID
// @Tags Players
// @Produce json
// @Param riotId path string true "Name#Tag"
// @Success 200 {object} map[string]string
// @Router /scopes/{guild}/{platform}/{region}/riot/{riotId}/puuid [get]
func (h *Handler) GetRiotPUUID(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	riotID := riotParam(r)
	puuid, err := h.matches.ResolvePUUID(r.Context(), scope, h.credential(r), riotID)
	if err != nil {
		h.failure(w, r, err)
		return
	}
	if puuid == "" {
		h.errorResponse(w, http.StatusNotFound, "Player not found")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]string{
		"riot_id": riotID,
		"puuid":   puuid,
	})
}

// PruneScope handles DELETE /api/v1/scopes/{guild}/{platform}/{region}
// @Summary Prune Scope
// @Description Deletes every stored match of a scope
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /scopes/{guild}/{platform}/{region} [delete]
func (h *Handler) PruneScope(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	removed, err := h.matches.Prune(scope)
	if err != nil {
		h.failure(w, r, err)
		return
	}

	h.logger.Infow("Scope pruned", "scope", scope.Key(), "removed", removed)
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"scope":   scope,
		"removed": removed,
	})
}

// riotParam returns the Name#Tag path segment. The # arrives as %23.
func riotParam(r *http.Request) string {
	raw := chi.URLParam(r, "riotId")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
