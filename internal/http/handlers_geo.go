package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/denisok6893-rgb/travel-matching/internal/geo"
)

func (s *Server) handleCoordinatesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]geo.Coordinates{"items": s.geo.All()})
}

func (s *Server) handleCoordinatesGet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.geo.Lookup(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no coordinates for destination")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DistanceRequest takes either two destination names or two coordinate
// pairs. Names win when both are given.
type DistanceRequest struct {
	From string   `json:"from,omitempty"`
	To   string   `json:"to,omitempty"`
	Lat1 *float64 `json:"lat1,omitempty"`
	Lon1 *float64 `json:"lon1,omitempty"`
	Lat2 *float64 `json:"lat2,omitempty"`
	Lon2 *float64 `json:"lon2,omitempty"`
}

type DistanceResponse struct {
	From *geo.Coordinates `json:"from,omitempty"`
	To   *geo.Coordinates `json:"to,omitempty"`
	geo.Distance
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	var req DistanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.From != "" && req.To != "" {
		from, ok := s.geo.Lookup(req.From)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "no coordinates for "+req.From)
			return
		}
		to, ok := s.geo.Lookup(req.To)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "no coordinates for "+req.To)
			return
		}
		writeJSON(w, http.StatusOK, DistanceResponse{
			From:     &from,
			To:       &to,
			Distance: geo.Between(from.Latitude, from.Longitude, to.Latitude, to.Longitude),
		})
		return
	}

	if req.Lat1 == nil || req.Lon1 == nil || req.Lat2 == nil || req.Lon2 == nil {
		writeError(w, http.StatusBadRequest, "missing_input", "provide from/to destination names or lat1, lon1, lat2, lon2")
		return
	}
	for _, p := range [][2]float64{{*req.Lat1, *req.Lon1}, {*req.Lat2, *req.Lon2}} {
		if err := geo.ValidatePoint(p[0], p[1]); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, DistanceResponse{
		Distance: geo.Between(*req.Lat1, *req.Lon1, *req.Lat2, *req.Lon2),
	})
}
