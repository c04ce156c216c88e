package httpapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/travel-matching/internal/advisor"
	"github.com/denisok6893-rgb/travel-matching/internal/domain"
)

// narrativeError is the 500 body of the trip planner endpoints.
type narrativeError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeNarrativeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("operation", op).Msg("narrative request failed")
	writeJSON(w, http.StatusInternalServerError, narrativeError{
		Error:   err.Error(),
		Code:    advisor.ErrorCode(err),
		Details: "Check server logs for more information",
	})
}

type AnalyzeRequest struct {
	UserInput *advisor.TripRequest `json:"userInput" validate:"required"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.narrator.Analyze(r.Context(), *req.UserInput)
	if err != nil {
		writeNarrativeError(w, r, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type RefineRequest struct {
	InitialRecommendations *advisor.NarrativeResult `json:"initialRecommendations" validate:"required"`
	UserFeedback           string                   `json:"userFeedback" validate:"required"`
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.narrator.Refine(r.Context(), *req.InitialRecommendations, req.UserFeedback)
	if err != nil {
		writeNarrativeError(w, r, "refine", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type ItineraryRequest struct {
	Destination string   `json:"destination" validate:"required"`
	Duration    int      `json:"duration" validate:"gte=1,lte=365"`
	Interests   []string `json:"interests"`
}

func (s *Server) handleItinerary(w http.ResponseWriter, r *http.Request) {
	var req ItineraryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	text, err := s.narrator.Itinerary(r.Context(), req.Destination, req.Duration, req.Interests)
	if err != nil {
		writeNarrativeError(w, r, "itinerary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"itinerary": text})
}

type ReasoningRequest struct {
	Preferences *domain.PreferenceProfile `json:"preferences"`
	Destination *domain.Destination       `json:"destination"`
}

func (s *Server) handleReasoning(w http.ResponseWriter, r *http.Request) {
	var req ReasoningRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Preferences == nil || req.Destination == nil {
		writeError(w, http.StatusBadRequest, "missing_input", "Missing preferences or destination data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reasoning": s.narrator.Reasoning(r.Context(), *req.Preferences, *req.Destination),
	})
}

type QueryRequest struct {
	Query string `json:"query"`
}

// decodeQuery reads {"query": "..."} and rejects a blank query.
func decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return "", false
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing_input", "Missing query parameter")
		return "", false
	}
	return q, true
}

func (s *Server) handleOptimization(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.narrator.Optimize(r.Context(), q))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"imageDescription": s.narrator.ImageDescription(r.Context(), q),
	})
}

type AuthHelpRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleAuthHelp(w http.ResponseWriter, r *http.Request) {
	var req AuthHelpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_input", "Missing message parameter")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"help": s.narrator.AuthHelp(r.Context(), req.Message),
	})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]advisor.Model{
		"models": s.narrator.Models(r.Context()),
	})
}

type SelectedModelResponse struct {
	SelectedModel *string `json:"selectedModel"`
}

func (s *Server) handleSelectedModel(w http.ResponseWriter, r *http.Request) {
	var resp SelectedModelResponse
	if m := s.narrator.SelectedModel(r.Context()); m != "" {
		resp.SelectedModel = &m
	}
	writeJSON(w, http.StatusOK, resp)
}
