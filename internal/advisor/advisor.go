// Package advisor produces the narrative text around a ranked list:
// per-card reasoning, best-time-to-visit analysis, free-form trip plans and
// itineraries. Scores and ordering never depend on it; every call that the
// UI renders inline degrades to a fixed fallback text.
package advisor

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
	"github.com/denisok6893-rgb/travel-matching/internal/logging"
	"github.com/denisok6893-rgb/travel-matching/internal/metrics"
)

// Fallback texts.
const (
	ReasoningOnError = "Matches your profile criteria."
	ReasoningOnEmpty = "This destination aligns perfectly with your preferred travel style and interests."
	CardReasoning    = "This destination matches your preferences and budget requirements."
	ImageOnEmpty     = "Travel destination image"
	ImageOnError     = "Travel destination"
	AuthHelpFallback = "Please double-check your email address, wait 1–2 minutes, and check spam/junk folders. If it still doesn’t arrive, try again or contact support."
)

// ErrNoRecommendations is returned when a trip plan reply parses but lists
// no destinations.
var ErrNoRecommendations = errors.New("response has no recommendations")

// ErrNoJSON is returned when a reply that must be JSON contains no object.
var ErrNoJSON = errors.New("no JSON structure found in response")

const defaultConcurrency = 4

// TripRequest is the free-form questionnaire sent to the trip planner.
type TripRequest struct {
	Budget              string   `json:"budget" validate:"required"`
	Duration            int      `json:"duration" validate:"gte=0,lte=365"`
	TravelStyle         []string `json:"travelStyle"`
	Interests           []string `json:"interests"`
	Climate             []string `json:"climate"`
	GroupSize           int      `json:"groupSize" validate:"gte=0"`
	SpecialRequirements string   `json:"specialRequirements,omitempty"`
}

type NarrativeRecommendation struct {
	Destination              string   `json:"destination"`
	Country                  string   `json:"country"`
	Reason                   string   `json:"reason"`
	Highlights               []string `json:"highlights"`
	EstimatedCost            string   `json:"estimatedCost"`
	BestTimeToVisit          string   `json:"bestTimeToVisit"`
	Activities               []string `json:"activities"`
	AccommodationSuggestions []string `json:"accommodationSuggestions"`
}

// NarrativeResult is a generated trip plan plus the raw model reply.
type NarrativeResult struct {
	Summary         string                    `json:"summary"`
	Recommendations []NarrativeRecommendation `json:"recommendations"`
	AdditionalTips  []string                  `json:"additionalTips"`
	RawResponse     string                    `json:"rawResponse,omitempty"`
}

// Optimization is the best-time-to-visit analysis of one destination.
type Optimization struct {
	BestMonths        string `json:"bestMonths"`
	WeatherSummary    string `json:"weatherSummary"`
	BudgetImpact      string `json:"budgetImpact"`
	CrowdLevels       string `json:"crowdLevels"`
	SuggestedDuration string `json:"suggestedDuration"`
}

var (
	optimizationOnEmpty = Optimization{
		BestMonths:        "Spring and Autumn.",
		WeatherSummary:    "Mild temperatures with relatively low rainfall.",
		BudgetImpact:      "More affordable during shoulder seasons compared to peak holidays.",
		CrowdLevels:       "Busiest during major holidays and school vacation periods.",
		SuggestedDuration: "5–7 days.",
	}
	optimizationFieldDefaults = Optimization{
		BestMonths:        "Spring and Autumn.",
		WeatherSummary:    "Mild temperature with low rainfall.",
		BudgetImpact:      "Cheaper during shoulder seasons.",
		CrowdLevels:       "High in peak season.",
		SuggestedDuration: "5–7 days.",
	}
	optimizationOnError = Optimization{
		BestMonths:        "Spring",
		WeatherSummary:    "Varies by season.",
		BudgetImpact:      "Contact local agencies for the latest pricing.",
		CrowdLevels:       "Moderate.",
		SuggestedDuration: "7 days.",
	}
)

// Advisor wraps a TextGenerator with prompts and fallbacks.
type Advisor struct {
	gen         TextGenerator
	concurrency int
	log         zerolog.Logger
}

// New returns an Advisor. A nil generator makes every call take its
// fallback path.
func New(gen TextGenerator, concurrency int) *Advisor {
	if gen == nil {
		gen = disabled{}
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Advisor{gen: gen, concurrency: concurrency, log: *logging.Component("advisor")}
}

type disabled struct{}

func (disabled) Generate(context.Context, string) (string, error) {
	return "", newProviderError(CodeNotConfigured, "text generation is disabled", nil)
}

func (a *Advisor) generate(ctx context.Context, op, prompt string) (string, error) {
	text, err := a.gen.Generate(ctx, prompt)
	metrics.RecordLLM(op, err)
	if err != nil {
		a.log.Warn().Err(err).Str("operation", op).Str("code", ErrorCode(err)).Msg("text generation failed")
	}
	return text, err
}

func (a *Advisor) fallback(op string) {
	metrics.RecordFallback(op)
}

// Reasoning explains in at most two sentences why dest suits the profile.
func (a *Advisor) Reasoning(ctx context.Context, p domain.PreferenceProfile, d domain.Destination) string {
	text, err := a.generate(ctx, "reasoning", reasoningPrompt(p, d))
	switch {
	case err != nil:
		a.fallback("reasoning")
		return ReasoningOnError
	case strings.TrimSpace(text) == "":
		a.fallback("reasoning")
		return ReasoningOnEmpty
	}
	return strings.TrimSpace(text)
}

// Enrich returns a copy of matches with Reasoning filled in. Matches that
// already carry reasoning are kept. Order and scores are untouched.
func (a *Advisor) Enrich(ctx context.Context, p domain.PreferenceProfile, matches []domain.RecommendationMatch) []domain.RecommendationMatch {
	out := make([]domain.RecommendationMatch, len(matches))
	copy(out, matches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range out {
		if out[i].Reasoning != "" {
			continue
		}
		i := i
		g.Go(func() error {
			text, err := a.generate(gctx, "reasoning", reasoningPrompt(p, out[i].Destination))
			if err != nil || strings.TrimSpace(text) == "" {
				a.fallback("card_reasoning")
				out[i].Reasoning = CardReasoning
				return nil
			}
			out[i].Reasoning = strings.TrimSpace(text)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Optimize analyses the best time to visit for query.
func (a *Advisor) Optimize(ctx context.Context, query string) Optimization {
	text, err := a.generate(ctx, "analysis", optimizationPrompt(query))
	if err != nil {
		a.fallback("analysis")
		return optimizationOnError
	}
	if strings.TrimSpace(text) == "" {
		a.fallback("analysis")
		return optimizationOnEmpty
	}

	raw, ok := extractJSON(text)
	if !ok {
		raw = strings.TrimSpace(text)
	}
	var parsed Optimization
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		a.log.Debug().Err(err).Msg("analysis reply is not JSON")
		a.fallback("analysis")
		return Optimization{
			BestMonths:        "Varies by season.",
			WeatherSummary:    text,
			BudgetImpact:      "Check current rates for your specific travel dates.",
			CrowdLevels:       "Crowd levels depend on holidays and local events.",
			SuggestedDuration: "5–7 days is usually ideal.",
		}
	}
	return parsed.withDefaults(optimizationFieldDefaults)
}

func (o Optimization) withDefaults(d Optimization) Optimization {
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Optimization{
		BestMonths:        pick(o.BestMonths, d.BestMonths),
		WeatherSummary:    pick(o.WeatherSummary, d.WeatherSummary),
		BudgetImpact:      pick(o.BudgetImpact, d.BudgetImpact),
		CrowdLevels:       pick(o.CrowdLevels, d.CrowdLevels),
		SuggestedDuration: pick(o.SuggestedDuration, d.SuggestedDuration),
	}
}

// ImageDescription returns stock image search hints for query.
func (a *Advisor) ImageDescription(ctx context.Context, query string) string {
	text, err := a.generate(ctx, "image", imagePrompt(query))
	switch {
	case err != nil:
		a.fallback("image")
		return ImageOnError
	case text == "":
		a.fallback("image")
		return ImageOnEmpty
	}
	return text
}

// AuthHelp returns troubleshooting steps for a login or reset problem.
func (a *Advisor) AuthHelp(ctx context.Context, message string) string {
	text, err := a.generate(ctx, "auth_help", authHelpPrompt(message))
	if err != nil || text == "" {
		a.fallback("auth_help")
		return AuthHelpFallback
	}
	return text
}

// Analyze asks for a full trip plan. Unlike the inline texts it fails
// loudly: the caller shows an error instead of a canned plan.
func (a *Advisor) Analyze(ctx context.Context, req TripRequest) (*NarrativeResult, error) {
	text, err := a.generate(ctx, "analyze", analyzePrompt(req))
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, newProviderError(CodeBadResponse, "empty response from gemini", nil)
	}
	res, err := parseNarrative(text)
	if err != nil {
		return nil, err
	}
	if len(res.Recommendations) == 0 {
		return nil, ErrNoRecommendations
	}
	return res, nil
}

// Refine regenerates a plan from the previous one and user feedback.
func (a *Advisor) Refine(ctx context.Context, prev NarrativeResult, feedback string) (*NarrativeResult, error) {
	text, err := a.generate(ctx, "refine", refinePrompt(prev, feedback))
	if err != nil {
		return nil, err
	}
	return parseNarrative(text)
}

// Itinerary returns a day-by-day plan as free text. An empty reply is not
// an error.
func (a *Advisor) Itinerary(ctx context.Context, destination string, duration int, interests []string) (string, error) {
	return a.generate(ctx, "itinerary", itineraryPrompt(destination, duration, interests))
}

// Models lists the backend's models. Failures and generators without a
// model listing yield an empty list.
func (a *Advisor) Models(ctx context.Context) []Model {
	src, ok := a.gen.(ModelSource)
	if !ok {
		return []Model{}
	}
	models, err := src.ListModels(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("list models failed")
		return []Model{}
	}
	return models
}

// SelectedModel names the model used for generation, or "" when the
// generator does not expose one.
func (a *Advisor) SelectedModel(ctx context.Context) string {
	if src, ok := a.gen.(ModelSource); ok {
		return src.SelectedModel(ctx)
	}
	return ""
}

func parseNarrative(text string) (*NarrativeResult, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return nil, ErrNoJSON
	}
	var res NarrativeResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, newProviderError(CodeBadResponse, "failed to parse response as JSON", err)
	}
	res.RawResponse = text
	return &res, nil
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON returns the outermost {...} span of text after removing any
// markdown code fence.
func extractJSON(text string) (string, bool) {
	m := jsonObject.FindString(stripMarkdownCodeBlock(text))
	return m, m != ""
}

// stripMarkdownCodeBlock removes a ```lang ... ``` wrapper.
func stripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
