package advisor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
)

type stubGen struct {
	mu      sync.Mutex
	prompts []string
	fn      func(prompt string) (string, error)
}

func (s *stubGen) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.fn(prompt)
}

func reply(text string, err error) *stubGen {
	return &stubGen{fn: func(string) (string, error) { return text, err }}
}

var errDown = newProviderError(CodeServerError, "down", nil)

func profile() domain.PreferenceProfile {
	return domain.PreferenceProfile{
		Budget:    domain.BudgetModerate,
		Styles:    []domain.TravelStyle{domain.StyleAdventure, domain.StyleNature},
		Climate:   []domain.Climate{domain.ClimateCold},
		Interests: []string{"Trekking", "Skiing"},
		Duration:  7,
	}
}

func himachal() domain.Destination {
	return domain.Destination{
		ID:                "3",
		Name:              "Himachal Pradesh",
		Country:           "India",
		Description:       "Snow-capped peaks.",
		BudgetLevel:       domain.BudgetModerate,
		PrimaryStyles:     []domain.TravelStyle{domain.StyleAdventure, domain.StyleNature},
		ClimateType:       domain.ClimateCold,
		PopularActivities: []string{"Trekking", "Skiing"},
	}
}

func TestReasoning(t *testing.T) {
	gen := reply("  A great fit.  ", nil)
	a := New(gen, 1)

	assert.Equal(t, "A great fit.", a.Reasoning(context.Background(), profile(), himachal()))
	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Contains(t, p, "- Travel Styles: Adventure, Nature")
	assert.Contains(t, p, "- Trip Duration: 7 days")
	assert.Contains(t, p, "Destination: Himachal Pradesh, India")
	assert.Contains(t, p, "- Popular Activities: Trekking, Skiing")
	assert.Contains(t, p, "max 2 sentences")
}

func TestReasoning_Fallbacks(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ReasoningOnError, New(reply("", errDown), 1).Reasoning(ctx, profile(), himachal()))
	assert.Equal(t, ReasoningOnEmpty, New(reply(" \n", nil), 1).Reasoning(ctx, profile(), himachal()))
	assert.Equal(t, ReasoningOnError, New(nil, 1).Reasoning(ctx, profile(), himachal()))
}

func TestEnrich(t *testing.T) {
	gen := &stubGen{fn: func(p string) (string, error) {
		if strings.Contains(p, "Destination: Broken,") {
			return "", errDown
		}
		return "Fits.", nil
	}}
	a := New(gen, 2)

	in := []domain.RecommendationMatch{
		{Destination: himachal(), Score: 100},
		{Destination: domain.Destination{ID: "9", Name: "Broken"}, Score: 60},
		{Destination: domain.Destination{ID: "7", Name: "Kept"}, Score: 40, Reasoning: "already"},
	}
	out := a.Enrich(context.Background(), profile(), in)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"3", "9", "7"}, []string{out[0].Destination.ID, out[1].Destination.ID, out[2].Destination.ID})
	assert.Equal(t, []int{100, 60, 40}, []int{out[0].Score, out[1].Score, out[2].Score})
	assert.Equal(t, "Fits.", out[0].Reasoning)
	assert.Equal(t, CardReasoning, out[1].Reasoning)
	assert.Equal(t, "already", out[2].Reasoning)
	assert.Empty(t, in[0].Reasoning, "input must not be mutated")
	assert.Len(t, gen.prompts, 2)
}

func TestEnrich_Empty(t *testing.T) {
	out := New(reply("x", nil), 1).Enrich(context.Background(), profile(), nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestOptimize(t *testing.T) {
	ctx := context.Background()

	t.Run("fenced partial json gets field defaults", func(t *testing.T) {
		a := New(reply("```json\n{\"bestMonths\":\"March to May.\",\"crowdLevels\":\"\"}\n```", nil), 1)
		got := a.Optimize(ctx, "Kyoto")
		assert.Equal(t, "March to May.", got.BestMonths)
		assert.Equal(t, "Mild temperature with low rainfall.", got.WeatherSummary)
		assert.Equal(t, "Cheaper during shoulder seasons.", got.BudgetImpact)
		assert.Equal(t, "High in peak season.", got.CrowdLevels)
		assert.Equal(t, "5–7 days.", got.SuggestedDuration)
	})

	t.Run("free text is wrapped", func(t *testing.T) {
		got := New(reply("Go in spring.", nil), 1).Optimize(ctx, "Kyoto")
		assert.Equal(t, "Varies by season.", got.BestMonths)
		assert.Equal(t, "Go in spring.", got.WeatherSummary)
		assert.Equal(t, "5–7 days is usually ideal.", got.SuggestedDuration)
	})

	t.Run("empty text", func(t *testing.T) {
		got := New(reply("", nil), 1).Optimize(ctx, "Kyoto")
		assert.Equal(t, optimizationOnEmpty, got)
	})

	t.Run("generator error", func(t *testing.T) {
		got := New(reply("", errDown), 1).Optimize(ctx, "Kyoto")
		assert.Equal(t, optimizationOnError, got)
	})

	t.Run("prompt names the query", func(t *testing.T) {
		gen := reply("{}", nil)
		New(gen, 1).Optimize(ctx, "Reykjavik in winter")
		assert.Contains(t, gen.prompts[0], "suggested trip duration for: Reykjavik in winter.")
	})
}

func TestImageAndAuthHelp(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "snowy peaks", New(reply("snowy peaks", nil), 1).ImageDescription(ctx, "Manali"))
	assert.Equal(t, ImageOnEmpty, New(reply("", nil), 1).ImageDescription(ctx, "Manali"))
	assert.Equal(t, ImageOnError, New(reply("", errDown), 1).ImageDescription(ctx, "Manali"))

	assert.Equal(t, "- check spam", New(reply("- check spam", nil), 1).AuthHelp(ctx, "no email"))
	assert.Equal(t, AuthHelpFallback, New(reply("", nil), 1).AuthHelp(ctx, "no email"))
	assert.Equal(t, AuthHelpFallback, New(reply("", errDown), 1).AuthHelp(ctx, "no email"))
}

const planJSON = `Here you go:
{"summary":"Mountain lover","recommendations":[{"destination":"Manali","country":"India","reason":"Snow","highlights":["Rohtang"]}],"additionalTips":["Pack layers"]}
Enjoy!`

func TestAnalyze(t *testing.T) {
	gen := reply(planJSON, nil)
	req := TripRequest{
		Budget:              "Moderate",
		Duration:            5,
		TravelStyle:         []string{"Adventure"},
		Interests:           []string{"Hiking", "Food"},
		Climate:             []string{"Cold"},
		GroupSize:           2,
		SpecialRequirements: "vegetarian",
	}

	res, err := New(gen, 1).Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Mountain lover", res.Summary)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "Manali", res.Recommendations[0].Destination)
	assert.Equal(t, []string{"Pack layers"}, res.AdditionalTips)
	assert.Equal(t, planJSON, res.RawResponse)

	p := gen.prompts[0]
	assert.Contains(t, p, "- Group Size: 2 people")
	assert.Contains(t, p, "- Special Requirements: vegetarian")
	assert.Contains(t, p, "interests (Hiking, Food)")
}

func TestAnalyze_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := New(reply("no json here", nil), 1).Analyze(ctx, TripRequest{Budget: "Budget"})
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = New(reply(`{"summary":"x","recommendations":[]}`, nil), 1).Analyze(ctx, TripRequest{Budget: "Budget"})
	assert.ErrorIs(t, err, ErrNoRecommendations)

	_, err = New(reply(`{"summary": broken}`, nil), 1).Analyze(ctx, TripRequest{Budget: "Budget"})
	assert.Equal(t, CodeBadResponse, ErrorCode(err))

	_, err = New(reply("", nil), 1).Analyze(ctx, TripRequest{Budget: "Budget"})
	assert.Equal(t, CodeBadResponse, ErrorCode(err))

	_, err = New(reply("", errDown), 1).Analyze(ctx, TripRequest{Budget: "Budget"})
	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
}

func TestRefine(t *testing.T) {
	gen := reply(`{"summary":"Beach instead","recommendations":[]}`, nil)
	prev := NarrativeResult{
		Summary: "Mountain lover",
		Recommendations: []NarrativeRecommendation{
			{Destination: "Manali", Country: "India", Reason: "Snow"},
			{Destination: "Zermatt", Country: "Switzerland", Reason: "Alps"},
		},
	}

	res, err := New(gen, 1).Refine(context.Background(), prev, "warmer please")
	require.NoError(t, err)
	assert.Equal(t, "Beach instead", res.Summary)

	p := gen.prompts[0]
	assert.Contains(t, p, "- Manali, India: Snow\n- Zermatt, Switzerland: Alps")
	assert.Contains(t, p, "User Feedback/Additional Requirements:\nwarmer please")
}

func TestItinerary(t *testing.T) {
	gen := reply("Day 1: arrive", nil)
	text, err := New(gen, 1).Itinerary(context.Background(), "Kyoto", 3, []string{"Temples", "Food"})
	require.NoError(t, err)
	assert.Equal(t, "Day 1: arrive", text)
	assert.Contains(t, gen.prompts[0], "Generate a detailed 3-day itinerary for Kyoto.")
	assert.Contains(t, gen.prompts[0], "User Interests: Temples, Food")
}

func TestModels_WithoutModelSource(t *testing.T) {
	a := New(reply("", nil), 1)
	assert.Empty(t, a.Models(context.Background()))
	assert.Equal(t, "", a.SelectedModel(context.Background()))
}

func TestStripMarkdownCodeBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripMarkdownCodeBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownCodeBlock("```\n{\"a\":1}```"))
	assert.Equal(t, "plain", stripMarkdownCodeBlock("  plain \n"))
}

func TestExtractJSON(t *testing.T) {
	got, ok := extractJSON("prefix {\"a\":{\"b\":1}} suffix")
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}}`, got)

	_, ok = extractJSON("nothing")
	assert.False(t, ok)
}
