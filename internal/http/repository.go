package httpapi

import (
	"context"

	"github.com/denisok6893-rgb/travel-matching/internal/advisor"
	"github.com/denisok6893-rgb/travel-matching/internal/domain"
	"github.com/denisok6893-rgb/travel-matching/internal/matching"
	"github.com/denisok6893-rgb/travel-matching/internal/storage"
)

// Catalog is implemented by storage.SQLiteStore and storage.StaticCatalog.
type Catalog interface {
	matching.CatalogProvider
	ListDestinations(ctx context.Context, f storage.DestinationFilter) ([]domain.Destination, int, error)
	GetDestination(ctx context.Context, id string) (domain.Destination, bool, error)
}

// InteractionStore is implemented by storage.SQLiteStore and
// storage.MemoryInteractions.
type InteractionStore interface {
	AppendInteraction(ctx context.Context, sessionID, destinationID string, window int) (matching.InteractionLog, error)
	GetInteractions(ctx context.Context, sessionID string) (matching.InteractionLog, error)
	ClearInteractions(ctx context.Context, sessionID string) error
}

// UserStore holds per-user preferences and bookmarks.
type UserStore interface {
	SavePreferences(ctx context.Context, userID string, p domain.PreferenceProfile) error
	GetPreferences(ctx context.Context, userID string) (domain.PreferenceProfile, bool, error)
	SaveRecommendation(ctx context.Context, rec domain.SavedRecommendation) (domain.SavedRecommendation, error)
	ListSavedRecommendations(ctx context.Context, userID string) ([]domain.SavedRecommendation, error)
	DeleteSavedRecommendation(ctx context.Context, userID, id string) (bool, error)
}

// Narrator is the narrative text collaborator, satisfied by *advisor.Advisor.
type Narrator interface {
	Reasoning(ctx context.Context, p domain.PreferenceProfile, d domain.Destination) string
	Enrich(ctx context.Context, p domain.PreferenceProfile, matches []domain.RecommendationMatch) []domain.RecommendationMatch
	Optimize(ctx context.Context, query string) advisor.Optimization
	ImageDescription(ctx context.Context, query string) string
	AuthHelp(ctx context.Context, message string) string
	Analyze(ctx context.Context, req advisor.TripRequest) (*advisor.NarrativeResult, error)
	Refine(ctx context.Context, prev advisor.NarrativeResult, feedback string) (*advisor.NarrativeResult, error)
	Itinerary(ctx context.Context, destination string, duration int, interests []string) (string, error)
	Models(ctx context.Context) []advisor.Model
	SelectedModel(ctx context.Context) string
}
