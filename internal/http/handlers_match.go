package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
	"github.com/denisok6893-rgb/travel-matching/internal/matching"
	"github.com/denisok6893-rgb/travel-matching/internal/metrics"
	"github.com/denisok6893-rgb/travel-matching/internal/storage"
)

type DestinationsListResponse struct {
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Total  int                  `json:"total"`
	Items  []domain.Destination `json:"items"`
}

func (s *Server) handleDestinationsList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 20, 0)
	q := r.URL.Query()

	items, total, err := s.catalog.ListDestinations(r.Context(), storage.DestinationFilter{
		Style:   q.Get("style"),
		Climate: q.Get("climate"),
		Budget:  q.Get("budget"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeInternal(w, r, err, "list destinations")
		return
	}
	writeJSON(w, http.StatusOK, DestinationsListResponse{
		Limit:  limit,
		Offset: offset,
		Total:  total,
		Items:  items,
	})
}

func (s *Server) handleDestinationGet(w http.ResponseWriter, r *http.Request) {
	d, ok, err := s.catalog.GetDestination(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeInternal(w, r, err, "get destination")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "destination not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type MatchRequest struct {
	Profile domain.PreferenceProfile `json:"profile"`
	// Interactions is the caller's engagement log, oldest first. When empty
	// and SessionID is set, the stored session log is used instead.
	Interactions  []string `json:"interactions" validate:"max=1000,dive,required"`
	SessionID     string   `json:"session_id,omitempty"`
	Filter        string   `json:"filter" validate:"omitempty,oneof=All Adventure Relaxation Cultural Urban Nature"`
	Limit         int      `json:"limit" validate:"gte=0,lte=200"`
	WithReasoning bool     `json:"with_reasoning"`
}

type MatchResponse struct {
	// Loaded is always true on success, telling an empty filtered list apart
	// from "not computed yet".
	Loaded  bool                         `json:"loaded"`
	Total   int                          `json:"total"`
	Filter  string                       `json:"filter"`
	Results []domain.RecommendationMatch `json:"results"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	limit := req.Limit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			limit = parsed
		}
	}

	log := matching.InteractionLog(req.Interactions)
	if len(log) == 0 && req.SessionID != "" {
		stored, err := s.interactions.GetInteractions(r.Context(), req.SessionID)
		if err != nil {
			writeInternal(w, r, err, "load session interactions")
			return
		}
		log = stored
	}

	s.respondRecommendations(w, r, req.Profile, log, req.Filter, limit, req.WithReasoning)
}

// respondRecommendations ranks the catalog for profile, applies the boost and
// filter, truncates to limit (0 means all) and optionally adds reasoning.
func (s *Server) respondRecommendations(w http.ResponseWriter, r *http.Request, p domain.PreferenceProfile, log matching.InteractionLog, filter string, limit int, withReasoning bool) {
	catalog, err := s.catalog.Destinations(r.Context())
	if err != nil {
		writeInternal(w, r, err, "load catalog")
		return
	}

	start := time.Now()
	results := s.engine.Recommend(p, catalog, log, filter)
	metrics.RecordRanking(len(catalog), time.Since(start))

	total := len(results)
	if limit > 0 && limit < total {
		results = results[:limit]
	}
	if withReasoning && len(results) > 0 {
		results = s.narrator.Enrich(r.Context(), p, results)
	}

	if filter == "" {
		filter = matching.FilterAll
	}
	writeJSON(w, http.StatusOK, MatchResponse{
		Loaded:  true,
		Total:   total,
		Filter:  filter,
		Results: results,
	})
}

type InteractionRequest struct {
	DestinationID string `json:"destination_id" validate:"required"`
}

type InteractionsResponse struct {
	SessionID    string   `json:"session_id"`
	Interactions []string `json:"interactions"`
}

func (s *Server) handleInteractionsGet(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	log, err := s.interactions.GetInteractions(r.Context(), sid)
	if err != nil {
		writeInternal(w, r, err, "get interactions")
		return
	}
	writeJSON(w, http.StatusOK, InteractionsResponse{SessionID: sid, Interactions: nonNilLog(log)})
}

func (s *Server) handleInteractionsAppend(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sid := chi.URLParam(r, "sid")

	log, ok := s.recordInteraction(w, r, sid, req.DestinationID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, InteractionsResponse{SessionID: sid, Interactions: nonNilLog(log)})
}

// recordInteraction checks that the destination exists and appends it to
// the session log.
func (s *Server) recordInteraction(w http.ResponseWriter, r *http.Request, sid, destID string) (matching.InteractionLog, bool) {
	if _, ok, err := s.catalog.GetDestination(r.Context(), destID); err != nil {
		writeInternal(w, r, err, "get destination")
		return nil, false
	} else if !ok {
		writeError(w, http.StatusNotFound, "not_found", "destination not found")
		return nil, false
	}

	log, err := s.interactions.AppendInteraction(r.Context(), sid, destID, s.window)
	if err != nil {
		writeInternal(w, r, err, "append interaction")
		return nil, false
	}
	zerolog.Ctx(r.Context()).Debug().
		Str("session_id", sid).
		Str("destination_id", destID).
		Int("log_len", len(log)).
		Msg("interaction recorded")
	return log, true
}

func (s *Server) handleInteractionsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.interactions.ClearInteractions(r.Context(), chi.URLParam(r, "sid")); err != nil {
		writeInternal(w, r, err, "clear interactions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNilLog(l matching.InteractionLog) []string {
	if l == nil {
		return []string{}
	}
	return l
}
