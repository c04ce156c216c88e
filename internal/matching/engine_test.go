package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
)

func trekker() domain.PreferenceProfile {
	return domain.PreferenceProfile{
		Budget:    domain.BudgetModerate,
		Styles:    []domain.TravelStyle{domain.StyleAdventure},
		Climate:   []domain.Climate{domain.ClimateCold},
		Interests: []string{"Trekking"},
		Duration:  7,
	}
}

func himachal() domain.Destination {
	return domain.Destination{
		ID:                "3",
		Name:              "Himachal Pradesh",
		BudgetLevel:       domain.BudgetModerate,
		PrimaryStyles:     []domain.TravelStyle{domain.StyleAdventure, domain.StyleNature},
		ClimateType:       domain.ClimateCold,
		PopularActivities: []string{"Trekking", "Skiing"},
		AverageCostPerDay: 60,
	}
}

func dest(id string, budget domain.BudgetRange, climate domain.Climate, styles ...domain.TravelStyle) domain.Destination {
	return domain.Destination{ID: id, BudgetLevel: budget, ClimateType: climate, PrimaryStyles: styles}
}

func TestScore_PerfectMatch(t *testing.T) {
	e := NewEngine(DefaultWeights())
	assert.Equal(t, 100, e.Score(trekker(), himachal()))
}

func TestScore_UserBudgetBelowDestination(t *testing.T) {
	e := NewEngine(DefaultWeights())
	d := himachal()
	d.BudgetLevel = domain.BudgetLuxury

	b := e.Breakdown(trekker(), d)
	assert.Equal(t, 0.0, b.Budget)
	assert.Equal(t, 70, e.Score(trekker(), d))
}

func TestBreakdown_Budget(t *testing.T) {
	e := NewEngine(DefaultWeights())
	cases := []struct {
		user, dest domain.BudgetRange
		want       float64
	}{
		{domain.BudgetLow, domain.BudgetLow, 30},
		{domain.BudgetModerate, domain.BudgetModerate, 30},
		{domain.BudgetLuxury, domain.BudgetLuxury, 30},
		{domain.BudgetLuxury, domain.BudgetModerate, 21},
		{domain.BudgetModerate, domain.BudgetLow, 21},
		{domain.BudgetLuxury, domain.BudgetLow, 0},
		{domain.BudgetLow, domain.BudgetModerate, 0},
		{domain.BudgetModerate, domain.BudgetLuxury, 0},
		{domain.BudgetLow, domain.BudgetLuxury, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_for_%s", tc.user, tc.dest), func(t *testing.T) {
			p := trekker()
			p.Budget = tc.user
			d := himachal()
			d.BudgetLevel = tc.dest
			assert.InDelta(t, tc.want, e.Breakdown(p, d).Budget, 1e-9)
		})
	}
}

func TestBreakdown_StyleRatio(t *testing.T) {
	e := NewEngine(DefaultWeights())

	p := trekker()
	assert.Equal(t, 25.0, e.Breakdown(p, himachal()).Style)

	p.Styles = []domain.TravelStyle{domain.StyleAdventure, domain.StyleCultural}
	d := himachal()
	d.PrimaryStyles = []domain.TravelStyle{domain.StyleAdventure}
	assert.Equal(t, 12.5, e.Breakdown(p, d).Style)
}

func TestBreakdown_EmptySetsContributeNothing(t *testing.T) {
	e := NewEngine(DefaultWeights())
	p := domain.PreferenceProfile{Budget: domain.BudgetModerate}

	b := e.Breakdown(p, himachal())
	assert.Equal(t, 0.0, b.Style)
	assert.Equal(t, 0.0, b.Climate)
	assert.Equal(t, 0.0, b.Activities)
	assert.Equal(t, 10.0, b.Duration)
	assert.Equal(t, 40, e.Score(p, himachal()))
}

func TestBreakdown_DurationIsConstant(t *testing.T) {
	e := NewEngine(DefaultWeights())
	for _, days := range []int{-3, 0, 1, 30, 365} {
		p := trekker()
		p.Duration = days
		assert.Equal(t, 10.0, e.Breakdown(p, himachal()).Duration)
	}
}

func TestScore_Rounding(t *testing.T) {
	e := NewEngine(DefaultWeights())
	// 21 (partial budget) + 12.5 (style 1/2) + 0 + 7.5 (activities 1/2) + 10 = 51
	p := domain.PreferenceProfile{
		Budget:    domain.BudgetLuxury,
		Styles:    []domain.TravelStyle{domain.StyleAdventure, domain.StyleUrban},
		Climate:   []domain.Climate{domain.ClimateArid},
		Interests: []string{"Trekking", "Museums"},
	}
	assert.Equal(t, 51, e.Score(p, himachal()))

	// 30 + 25/3 + 0 + 0 + 10 = 48.33 -> 48
	p = domain.PreferenceProfile{
		Budget: domain.BudgetModerate,
		Styles: []domain.TravelStyle{domain.StyleAdventure, domain.StyleUrban, domain.StyleCultural},
	}
	assert.Equal(t, 48, e.Score(p, himachal()))

	// 30 + 12.5 + 0 + 0 + 10 = 52.5 -> 53
	p.Styles = p.Styles[:2]
	assert.Equal(t, 53, e.Score(p, himachal()))
}

func TestScore_RangeAndDeterminism(t *testing.T) {
	e := NewEngine(DefaultWeights())
	budgets := []domain.BudgetRange{domain.BudgetLow, domain.BudgetModerate, domain.BudgetLuxury, ""}
	climates := []domain.Climate{domain.ClimateTropical, domain.ClimateTemperate, domain.ClimateCold, domain.ClimateArid}

	for _, ub := range budgets {
		for _, db := range budgets {
			for _, c := range climates {
				p := trekker()
				p.Budget = ub
				d := himachal()
				d.BudgetLevel = db
				d.ClimateType = c

				s := e.Score(p, d)
				assert.GreaterOrEqual(t, s, 0)
				assert.LessOrEqual(t, s, MaxScore)
				assert.Equal(t, s, e.Score(p, d))
			}
		}
	}
}

func TestRank_SortedAndStable(t *testing.T) {
	e := NewEngine(DefaultWeights())
	catalog := []domain.Destination{
		dest("a", domain.BudgetLuxury, domain.ClimateArid, domain.StyleUrban),
		dest("b", domain.BudgetModerate, domain.ClimateCold, domain.StyleAdventure),
		dest("c", domain.BudgetLuxury, domain.ClimateArid, domain.StyleUrban),
		dest("d", domain.BudgetModerate, domain.ClimateCold, domain.StyleAdventure),
		dest("e", domain.BudgetLow, domain.ClimateCold),
	}

	got := e.Rank(trekker(), catalog)
	require.Len(t, got, 5)

	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.Destination.ID
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, m.Score)
		}
	}
	assert.Equal(t, []string{"b", "d", "e", "a", "c"}, ids)
}

func TestRank_EmptyCatalog(t *testing.T) {
	e := NewEngine(DefaultWeights())
	got := e.Rank(trekker(), nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRank_ParallelMatchesSequential(t *testing.T) {
	e := NewEngine(DefaultWeights())
	styles := []domain.TravelStyle{domain.StyleAdventure, domain.StyleNature, domain.StyleUrban}
	budgets := []domain.BudgetRange{domain.BudgetLow, domain.BudgetModerate, domain.BudgetLuxury}
	climates := []domain.Climate{domain.ClimateCold, domain.ClimateArid}

	catalog := make([]domain.Destination, parallelThreshold+37)
	for i := range catalog {
		catalog[i] = dest(fmt.Sprintf("d%d", i), budgets[i%3], climates[i%2], styles[i%3])
	}

	got := e.Rank(trekker(), catalog)

	want := make([]domain.RecommendationMatch, len(catalog))
	for i, d := range catalog {
		want[i] = domain.RecommendationMatch{Destination: d, Score: e.Score(trekker(), d)}
	}
	sortByScore(want)

	assert.Equal(t, want, got)
}

func TestRerank_BoostClampsAtMax(t *testing.T) {
	e := NewEngine(DefaultWeights())
	base := []domain.RecommendationMatch{
		{Destination: dest("y", domain.BudgetLow, domain.ClimateArid), Score: 95},
		{Destination: dest("x", domain.BudgetLow, domain.ClimateArid), Score: 92},
		{Destination: dest("z", domain.BudgetLow, domain.ClimateArid), Score: 40},
	}

	got := e.Rerank(base, InteractionLog{"x", "z", "x", "x"}, FilterAll)
	require.Len(t, got, 3)
	assert.Equal(t, "x", got[0].Destination.ID)
	assert.Equal(t, 100, got[0].Score)
	assert.Equal(t, 95, got[1].Score)
	assert.Equal(t, 45, got[2].Score)

	// base untouched
	assert.Equal(t, 92, base[1].Score)
}

func TestRerank_BoostByThreeInteractions(t *testing.T) {
	e := NewEngine(DefaultWeights())
	base := []domain.RecommendationMatch{
		{Destination: dest("a", domain.BudgetLow, domain.ClimateArid), Score: 70},
		{Destination: dest("x", domain.BudgetLow, domain.ClimateArid), Score: 60},
	}
	got := e.Rerank(base, InteractionLog{"x", "x", "x"}, "")
	assert.Equal(t, "x", got[0].Destination.ID)
	assert.Equal(t, 75, got[0].Score)
	assert.Equal(t, 70, got[1].Score)
}

func TestRerank_TiesKeepOrder(t *testing.T) {
	e := NewEngine(DefaultWeights())
	base := []domain.RecommendationMatch{
		{Destination: dest("a", domain.BudgetLow, domain.ClimateArid), Score: 80},
		{Destination: dest("b", domain.BudgetLow, domain.ClimateArid), Score: 75},
		{Destination: dest("c", domain.BudgetLow, domain.ClimateArid), Score: 75},
	}
	got := e.Rerank(base, InteractionLog{"c"}, FilterAll)
	assert.Equal(t, "a", got[0].Destination.ID)
	assert.Equal(t, "c", got[1].Destination.ID)
	assert.Equal(t, "b", got[2].Destination.ID)

	got = e.Rerank(base, InteractionLog{"b", "b", "c", "c"}, FilterAll)
	assert.Equal(t, []int{85, 85, 80}, []int{got[0].Score, got[1].Score, got[2].Score})
	assert.Equal(t, "b", got[0].Destination.ID)
	assert.Equal(t, "c", got[1].Destination.ID)
}

func TestRerank_FilterAfterBoost(t *testing.T) {
	e := NewEngine(DefaultWeights())
	base := []domain.RecommendationMatch{
		{Destination: dest("goa", domain.BudgetLow, domain.ClimateTropical, domain.StyleRelaxation, domain.StyleUrban), Score: 60},
		{Destination: dest("kerala", domain.BudgetLow, domain.ClimateTropical, domain.StyleNature), Score: 90},
		{Destination: dest("jaipur", domain.BudgetLow, domain.ClimateArid, domain.StyleCultural, domain.StyleUrban), Score: 58},
	}

	got := e.Rerank(base, InteractionLog{"jaipur"}, string(domain.StyleUrban))
	require.Len(t, got, 2)
	assert.Equal(t, "jaipur", got[0].Destination.ID)
	assert.Equal(t, 63, got[0].Score)
	assert.Equal(t, "goa", got[1].Destination.ID)
	for _, m := range got {
		assert.True(t, m.Destination.HasStyle(domain.StyleUrban))
	}
}

func TestRerank_EmptyAfterFilter(t *testing.T) {
	e := NewEngine(DefaultWeights())
	base := []domain.RecommendationMatch{
		{Destination: dest("kerala", domain.BudgetLow, domain.ClimateTropical, domain.StyleNature), Score: 90},
	}
	got := e.Rerank(base, nil, string(domain.StyleUrban))
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRerank_NoLogKeepsOrder(t *testing.T) {
	e := NewEngine(DefaultWeights())
	base := []domain.RecommendationMatch{
		{Destination: dest("a", domain.BudgetLow, domain.ClimateArid), Score: 10},
		{Destination: dest("b", domain.BudgetLow, domain.ClimateArid), Score: 90},
	}
	got := e.Rerank(base, nil, FilterAll)
	assert.Equal(t, base, got)
}

type stubCatalog struct {
	items []domain.Destination
	err   error
}

func (s stubCatalog) Destinations(_ context.Context) ([]domain.Destination, error) {
	return s.items, s.err
}

func TestRecommendFrom(t *testing.T) {
	e := NewEngine(DefaultWeights())
	items := []domain.Destination{
		dest("a", domain.BudgetLuxury, domain.ClimateArid, domain.StyleUrban),
		himachal(),
	}

	got, err := e.RecommendFrom(context.Background(), stubCatalog{items: items}, trekker(), InteractionLog{"a"}, FilterAll)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].Destination.ID)
	assert.Equal(t, 100, got[0].Score)

	_, err = e.RecommendFrom(context.Background(), stubCatalog{err: errors.New("boom")}, trekker(), nil, FilterAll)
	assert.ErrorContains(t, err, "boom")
}
