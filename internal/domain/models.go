package domain

// BudgetRange is an ordered spending tier, low to high.
type BudgetRange string

const (
	BudgetLow      BudgetRange = "Budget"
	BudgetModerate BudgetRange = "Moderate"
	BudgetLuxury   BudgetRange = "Luxury"
)

// Tier returns the position of b in the Budget < Moderate < Luxury order,
// or -1 for an unknown value.
func (b BudgetRange) Tier() int {
	switch b {
	case BudgetLow:
		return 0
	case BudgetModerate:
		return 1
	case BudgetLuxury:
		return 2
	default:
		return -1
	}
}

type TravelStyle string

const (
	StyleAdventure  TravelStyle = "Adventure"
	StyleRelaxation TravelStyle = "Relaxation"
	StyleCultural   TravelStyle = "Cultural"
	StyleUrban      TravelStyle = "Urban"
	StyleNature     TravelStyle = "Nature"
)

type Climate string

const (
	ClimateTropical  Climate = "Tropical"
	ClimateTemperate Climate = "Temperate"
	ClimateCold      Climate = "Cold"
	ClimateArid      Climate = "Arid"
)

// PreferenceProfile is the result of one onboarding session.
type PreferenceProfile struct {
	Budget               BudgetRange   `json:"budget" validate:"required,oneof=Budget Moderate Luxury"`
	Styles               []TravelStyle `json:"styles" validate:"dive,oneof=Adventure Relaxation Cultural Urban Nature"`
	Climate              []Climate     `json:"climate" validate:"dive,oneof=Tropical Temperate Cold Arid"`
	Interests            []string      `json:"interests" validate:"dive,required"`
	Duration             int           `json:"duration" validate:"gte=0,lte=365"`
	SeasonalAvailability string        `json:"seasonal_availability,omitempty"`
}

type Destination struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Country           string        `json:"country"`
	Description       string        `json:"description"`
	BudgetLevel       BudgetRange   `json:"budget_level"`
	PrimaryStyles     []TravelStyle `json:"primary_styles"`
	ClimateType       Climate       `json:"climate_type"`
	PopularActivities []string      `json:"popular_activities"`
	BestMonths        []string      `json:"best_months,omitempty"`
	ImageURL          string        `json:"image_url,omitempty"`
	AverageCostPerDay float64       `json:"average_cost_per_day"`
}

// HasStyle reports whether s is one of the destination's primary styles.
func (d Destination) HasStyle(s TravelStyle) bool {
	for _, ps := range d.PrimaryStyles {
		if ps == s {
			return true
		}
	}
	return false
}

// RecommendationMatch is recomputed on every scoring pass and never persisted
// as authoritative.
type RecommendationMatch struct {
	Destination Destination `json:"destination"`
	Score       int         `json:"score"`
	Reasoning   string      `json:"reasoning,omitempty"`
}

// ScoreBreakdown holds the pre-rounding contribution of each factor.
type ScoreBreakdown struct {
	Budget     float64 `json:"budget"`
	Style      float64 `json:"style"`
	Climate    float64 `json:"climate"`
	Activities float64 `json:"activities"`
	Duration   float64 `json:"duration"`
}

func (b ScoreBreakdown) Total() float64 {
	return b.Budget + b.Style + b.Climate + b.Activities + b.Duration
}

// SavedRecommendation is a destination the user bookmarked, with the score
// they saw at the time.
type SavedRecommendation struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	DestinationID string `json:"destination_id"`
	Name          string `json:"name"`
	Country       string `json:"country"`
	Score         int    `json:"score"`
	Reasoning     string `json:"reasoning,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}
