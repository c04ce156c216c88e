package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/travel-matching/internal/advisor"
	"github.com/denisok6893-rgb/travel-matching/internal/geo"
	"github.com/denisok6893-rgb/travel-matching/internal/matching"
	"github.com/denisok6893-rgb/travel-matching/internal/storage"
	"github.com/denisok6893-rgb/travel-matching/internal/validation"
)

const maxBodyBytes = 1 << 20

// Deps wires the server. Users may be nil, which disables the /users routes.
type Deps struct {
	Engine       *matching.Engine
	Catalog      Catalog
	Interactions InteractionStore
	Users        UserStore
	Narrator     Narrator
	Geo          *geo.Table

	InteractionWindow int

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Ready is probed by /health when set.
	Ready func(ctx context.Context) error
}

type Server struct {
	engine       *matching.Engine
	catalog      Catalog
	interactions InteractionStore
	users        UserStore
	narrator     Narrator
	geo          *geo.Table
	window       int
	deps         Deps
}

func NewServer(d Deps) *Server {
	if d.Engine == nil {
		d.Engine = matching.NewEngine(matching.DefaultWeights())
	}
	if d.Catalog == nil {
		d.Catalog = storage.NewStaticCatalog(storage.DefaultDestinations())
	}
	if d.Interactions == nil {
		d.Interactions = storage.NewMemoryInteractions()
	}
	if d.Narrator == nil {
		d.Narrator = advisor.New(nil, 1)
	}
	if d.Geo == nil {
		d.Geo = geo.DefaultTable()
	}
	if d.InteractionWindow <= 0 {
		d.InteractionWindow = matching.DefaultInteractionWindow
	}
	return &Server{
		engine:       d.Engine,
		catalog:      d.Catalog,
		interactions: d.Interactions,
		users:        d.Users,
		narrator:     d.Narrator,
		geo:          d.Geo,
		window:       d.InteractionWindow,
		deps:         d,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         86400,
	}))
	r.Use(instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.deps.RateLimitRequests > 0 {
			r.Use(httprate.Limit(
				s.deps.RateLimitRequests,
				s.deps.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				}),
			))
		}

		r.Route("/destinations", func(r chi.Router) {
			r.Get("/", s.handleDestinationsList)
			r.Get("/{id}", s.handleDestinationGet)
		})

		r.Post("/match", s.handleMatch)

		r.Route("/sessions/{sid}/interactions", func(r chi.Router) {
			r.Get("/", s.handleInteractionsGet)
			r.Post("/", s.handleInteractionsAppend)
			r.Delete("/", s.handleInteractionsClear)
		})

		r.Route("/users/{uid}", func(r chi.Router) {
			r.Use(s.requireUsers)
			r.Get("/preferences", s.handlePreferencesGet)
			r.Put("/preferences", s.handlePreferencesPut)
			r.Get("/recommendations", s.handleUserRecommendations)
			r.Get("/saved", s.handleSavedList)
			r.Post("/saved", s.handleSavedCreate)
			r.Delete("/saved/{id}", s.handleSavedDelete)
		})

		r.Route("/api", func(r chi.Router) {
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/refine", s.handleRefine)
			r.Post("/itinerary", s.handleItinerary)
			r.Post("/gemini-reasoning", s.handleReasoning)
			r.Post("/gemini-analysis", s.handleOptimization)
			r.Post("/gemini-image", s.handleImage)
			r.Post("/gemini-auth-help", s.handleAuthHelp)
			r.Get("/list-models", s.handleListModels)
			r.Get("/selected-model", s.handleSelectedModel)
		})

		r.Route("/geo", func(r chi.Router) {
			r.Get("/coordinates", s.handleCoordinatesList)
			r.Get("/coordinates/{name}", s.handleCoordinatesGet)
			r.Post("/distance", s.handleDistance)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("readiness probe failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message,omitempty"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// writeInternal logs err on the request logger and returns a generic 500.
func writeInternal(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal", msg)
}

// decodeBody reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body exceeds 1MiB")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "invalid_json", "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		}
		return false
	}
	if err := validation.Struct(dst); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "validation_failed",
				Message: verr.Error(),
				Fields:  verr.Fields,
			})
			return false
		}
		writeInternal(w, r, err, "validate request")
		return false
	}
	return true
}

func parseLimitOffset(r *http.Request, defLimit, defOffset int) (int, int) {
	q := r.URL.Query()

	limit := defLimit
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = defLimit
	}
	// safety cap
	if limit > 200 {
		limit = 200
	}

	offset := defOffset
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = defOffset
	}
	return limit, offset
}
