package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
	"github.com/denisok6893-rgb/travel-matching/internal/matching"
)

func (s *Server) handlePreferencesGet(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.users.GetPreferences(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeInternal(w, r, err, "get preferences")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no preferences stored for user")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePreferencesPut(w http.ResponseWriter, r *http.Request) {
	var p domain.PreferenceProfile
	if !decodeBody(w, r, &p) {
		return
	}
	if err := s.users.SavePreferences(r.Context(), chi.URLParam(r, "uid"), p); err != nil {
		writeInternal(w, r, err, "save preferences")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUserRecommendations(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.users.GetPreferences(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeInternal(w, r, err, "get preferences")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no preferences stored for user")
		return
	}

	q := r.URL.Query()
	filter := q.Get("filter")
	if filter != "" && filter != matching.FilterAll && !validStyle(filter) {
		writeError(w, http.StatusBadRequest, "invalid_filter", "unknown style filter "+strconv.Quote(filter))
		return
	}

	var log matching.InteractionLog
	if sid := q.Get("session"); sid != "" {
		if log, err = s.interactions.GetInteractions(r.Context(), sid); err != nil {
			writeInternal(w, r, err, "load session interactions")
			return
		}
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = min(parsed, 200)
		}
	}
	withReasoning, _ := strconv.ParseBool(q.Get("with_reasoning"))

	s.respondRecommendations(w, r, p, log, filter, limit, withReasoning)
}

func validStyle(s string) bool {
	switch domain.TravelStyle(s) {
	case domain.StyleAdventure, domain.StyleRelaxation, domain.StyleCultural, domain.StyleUrban, domain.StyleNature:
		return true
	}
	return false
}

type SaveRequest struct {
	DestinationID string `json:"destination_id" validate:"required"`
	// Session, when set, also records the save as an engagement event.
	Session   string `json:"session,omitempty"`
	Score     *int   `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Reasoning string `json:"reasoning,omitempty"`
}

type SavedListResponse struct {
	Items []domain.SavedRecommendation `json:"items"`
}

func (s *Server) handleSavedList(w http.ResponseWriter, r *http.Request) {
	items, err := s.users.ListSavedRecommendations(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeInternal(w, r, err, "list saved recommendations")
		return
	}
	writeJSON(w, http.StatusOK, SavedListResponse{Items: items})
}

func (s *Server) handleSavedCreate(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	uid := chi.URLParam(r, "uid")

	d, ok, err := s.catalog.GetDestination(r.Context(), req.DestinationID)
	if err != nil {
		writeInternal(w, r, err, "get destination")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "destination not found")
		return
	}

	// Record engagement before saving so a failed append leaves nothing saved.
	if req.Session != "" {
		if _, ok := s.recordInteraction(w, r, req.Session, d.ID); !ok {
			return
		}
	}

	rec := domain.SavedRecommendation{
		UserID:        uid,
		DestinationID: d.ID,
		Name:          d.Name,
		Country:       d.Country,
		Reasoning:     req.Reasoning,
	}
	if req.Score != nil {
		rec.Score = *req.Score
	} else if p, found, err := s.users.GetPreferences(r.Context(), uid); err != nil {
		writeInternal(w, r, err, "get preferences")
		return
	} else if found {
		rec.Score = s.engine.Score(p, d)
	}

	saved, err := s.users.SaveRecommendation(r.Context(), rec)
	if err != nil {
		writeInternal(w, r, err, "save recommendation")
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// handleSavedDelete removes a bookmark. Un-saving is not an engagement event.
func (s *Server) handleSavedDelete(w http.ResponseWriter, r *http.Request) {
	ok, err := s.users.DeleteSavedRecommendation(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "id"))
	if err != nil {
		writeInternal(w, r, err, "delete saved recommendation")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "saved recommendation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
