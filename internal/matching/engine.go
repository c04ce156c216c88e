package matching

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
)

const (
	// MaxScore is the ceiling of every match score, boosted or not.
	MaxScore = 100

	// FilterAll is the style filter sentinel that keeps every match.
	FilterAll = "All"

	// Catalogs at least this large are scored by several goroutines.
	parallelThreshold = 512
)

// CatalogProvider supplies the destinations to rank. Implementations must
// return a snapshot the engine may read without synchronisation.
type CatalogProvider interface {
	Destinations(ctx context.Context) ([]domain.Destination, error)
}

// Engine scores and ranks destinations. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	weights Weights
}

func NewEngine(w Weights) *Engine {
	return &Engine{weights: w}
}

func (e *Engine) Weights() Weights { return e.weights }

// Score returns the 0..100 match score of dest for profile.
func (e *Engine) Score(profile domain.PreferenceProfile, dest domain.Destination) int {
	return roundScore(e.Breakdown(profile, dest).Total())
}

// Breakdown returns each factor's contribution before rounding.
func (e *Engine) Breakdown(profile domain.PreferenceProfile, dest domain.Destination) domain.ScoreBreakdown {
	w := e.weights
	var b domain.ScoreBreakdown

	// Budget: exact tier, or partial credit when the user can afford exactly
	// one tier more than the destination requires.
	switch {
	case profile.Budget == dest.BudgetLevel:
		b.Budget = w.Budget
	case budgetSurplus(profile.Budget, dest.BudgetLevel) == 1:
		b.Budget = w.Budget * w.PartialBudget
	}

	b.Style = overlapRatio(profile.Styles, dest.PrimaryStyles) * w.Style

	if contains(profile.Climate, dest.ClimateType) {
		b.Climate = w.Climate
	}

	b.Activities = overlapRatio(profile.Interests, dest.PopularActivities) * w.Activities

	// Every destination is treated as suitable for any trip length.
	b.Duration = w.Duration

	return b
}

// Rank scores every destination in catalog and orders the matches by
// descending score. Ties keep catalog order.
func (e *Engine) Rank(profile domain.PreferenceProfile, catalog []domain.Destination) []domain.RecommendationMatch {
	out := make([]domain.RecommendationMatch, len(catalog))
	if len(catalog) >= parallelThreshold {
		e.scoreParallel(profile, catalog, out)
	} else {
		for i, d := range catalog {
			out[i] = domain.RecommendationMatch{Destination: d, Score: e.Score(profile, d)}
		}
	}
	sortByScore(out)
	return out
}

// scoreParallel fills out[i] for catalog[i] in GOMAXPROCS chunks.
// Each slot is written by exactly one goroutine.
func (e *Engine) scoreParallel(profile domain.PreferenceProfile, catalog []domain.Destination, out []domain.RecommendationMatch) {
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(catalog) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(catalog); start += chunk {
		lo, hi := start, min(start+chunk, len(catalog))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				out[i] = domain.RecommendationMatch{Destination: catalog[i], Score: e.Score(profile, catalog[i])}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Rerank applies the interaction boost and then the style filter to base.
// Boosting always uses the unfiltered list so switching filters keeps the
// interaction weighting. base is not modified.
func (e *Engine) Rerank(base []domain.RecommendationMatch, log InteractionLog, styleFilter string) []domain.RecommendationMatch {
	out := make([]domain.RecommendationMatch, len(base))
	copy(out, base)

	if len(log) > 0 {
		counts := log.counts()
		for i := range out {
			boosted := out[i].Score + counts[out[i].Destination.ID]*e.weights.InteractionBoost
			out[i].Score = min(boosted, MaxScore)
		}
		sortByScore(out)
	}

	if styleFilter == "" || styleFilter == FilterAll {
		return out
	}
	style := domain.TravelStyle(styleFilter)
	filtered := out[:0]
	for _, m := range out {
		if m.Destination.HasStyle(style) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// Recommend runs the full pipeline: rank, boost, filter.
func (e *Engine) Recommend(profile domain.PreferenceProfile, catalog []domain.Destination, log InteractionLog, styleFilter string) []domain.RecommendationMatch {
	return e.Rerank(e.Rank(profile, catalog), log, styleFilter)
}

// RecommendFrom is Recommend over the current snapshot of provider.
func (e *Engine) RecommendFrom(ctx context.Context, provider CatalogProvider, profile domain.PreferenceProfile, log InteractionLog, styleFilter string) ([]domain.RecommendationMatch, error) {
	catalog, err := provider.Destinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return e.Recommend(profile, catalog, log, styleFilter), nil
}

func sortByScore(m []domain.RecommendationMatch) {
	sort.SliceStable(m, func(i, j int) bool { return m[i].Score > m[j].Score })
}

// overlapRatio is the share of want found in have. The denominator is
// floored at 1, so an empty want contributes 0 rather than dividing by zero.
func overlapRatio[T comparable](want, have []T) float64 {
	shared := 0
	for _, v := range want {
		if contains(have, v) {
			shared++
		}
	}
	return float64(shared) / float64(max(len(want), 1))
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// budgetSurplus is how many tiers the user's budget exceeds the
// destination's, or 0 when either tier is unknown.
func budgetSurplus(user, dest domain.BudgetRange) int {
	u, d := user.Tier(), dest.Tier()
	if u < 0 || d < 0 {
		return 0
	}
	return u - d
}

func roundScore(v float64) int {
	s := int(math.Round(v))
	return max(0, min(s, MaxScore))
}
