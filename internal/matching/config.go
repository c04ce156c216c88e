package matching

import (
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"
)

// Weights defines the points each factor can contribute to a 0..100 score.
type Weights struct {
	Budget     float64 `json:"budget"`
	Style      float64 `json:"style"`
	Climate    float64 `json:"climate"`
	Activities float64 `json:"activities"`
	Duration   float64 `json:"duration"`

	// PartialBudget is the share of Budget awarded when the user's tier is
	// exactly one step above the destination's.
	PartialBudget float64 `json:"partial_budget"`
	// InteractionBoost is added per occurrence of a destination in the
	// interaction log.
	InteractionBoost int `json:"interaction_boost"`
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		Budget:           30,
		Style:            25,
		Climate:          20,
		Activities:       15,
		Duration:         10,
		PartialBudget:    0.7,
		InteractionBoost: 5,
	}
}

// Sum is the maximum score the factor weights can produce.
func (w Weights) Sum() float64 {
	return w.Budget + w.Style + w.Climate + w.Activities + w.Duration
}

// Validate requires non-negative weights summing to MaxScore, so that no
// combination of factors can leave the 0..100 range.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"budget": w.Budget, "style": w.Style, "climate": w.Climate,
		"activities": w.Activities, "duration": w.Duration,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %v", name, v)
		}
	}
	if math.Abs(w.Sum()-MaxScore) > 1e-9 {
		return fmt.Errorf("weights sum to %v, want %d", w.Sum(), MaxScore)
	}
	if w.PartialBudget < 0 || w.PartialBudget > 1 {
		return fmt.Errorf("partial_budget must be within 0..1, got %v", w.PartialBudget)
	}
	if w.InteractionBoost < 0 {
		return fmt.Errorf("interaction_boost is negative: %d", w.InteractionBoost)
	}
	return nil
}

// LoadWeightsFromFile loads weights from JSON file. Fields absent from the
// file keep their default value. On any error the defaults are returned
// together with the error.
func LoadWeightsFromFile(path string) (Weights, error) {
	w := DefaultWeights()
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights file: %w", err)
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return DefaultWeights(), fmt.Errorf("unmarshal weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return DefaultWeights(), fmt.Errorf("invalid weights: %w", err)
	}
	return w, nil
}
