package advisor

import (
	"fmt"
	"strings"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
)

func joinStrings[T ~string](xs []T) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = string(x)
	}
	return strings.Join(parts, ", ")
}

func reasoningPrompt(p domain.PreferenceProfile, d domain.Destination) string {
	return fmt.Sprintf(`
User Preferences:
- Budget: %s
- Travel Styles: %s
- Climate Preference: %s
- Interests: %s
- Trip Duration: %d days

Destination: %s, %s
- Description: %s
- Style: %s
- Climate: %s
- Popular Activities: %s

Briefly explain (max 2 sentences) why this destination is a great match for this specific user.
Focus on how the destination features align with their specific style and interests.
`,
		p.Budget, joinStrings(p.Styles), joinStrings(p.Climate), joinStrings(p.Interests), p.Duration,
		d.Name, d.Country, d.Description, joinStrings(d.PrimaryStyles), d.ClimateType,
		joinStrings(d.PopularActivities))
}

func optimizationPrompt(query string) string {
	return fmt.Sprintf(`
You are a travel optimization assistant.
Analyze the best time to visit, weather patterns, budget impact, crowd levels, and suggested trip duration for: %s.

Return ONLY valid JSON with this exact structure and no extra text:
{
  "bestMonths": "Ideal months and why in 1–2 short sentences",
  "weatherSummary": "Climate overview in 1–2 short sentences",
  "budgetImpact": "How prices change by season in 1–2 short sentences",
  "crowdLevels": "How busy it gets across seasons in 1–2 short sentences",
  "suggestedDuration": "Recommended length of stay, like '5–7 days'"
}
`, query)
}

func imagePrompt(query string) string {
	return fmt.Sprintf(`Generate a detailed visual description for stock image search based on this travel destination: %s.
Provide keywords and visual elements to look for in images.`, query)
}

func authHelpPrompt(message string) string {
	return fmt.Sprintf(`
You are a helpful support assistant for a travel app.
The user is having trouble with login / password reset.

User message:
%s

Provide a concise response with:
- 3 to 6 bullet points of practical troubleshooting steps
- mention checking spam/junk and waiting 1-2 minutes for email delivery if relevant
- mention verifying the email address and trying again
- mention contacting support only as a last resort

Do NOT ask for passwords or any secrets.
Return plain text only (no markdown fences).
`, message)
}

const recommendationShape = `{
      "destination": "Destination name",
      "country": "Country",
      "reason": "Why this matches their preferences",
      "highlights": ["highlight1", "highlight2", "highlight3"],
      "estimatedCost": "Budget range",
      "bestTimeToVisit": "Best season/months",
      "activities": ["activity1", "activity2", "activity3"],
      "accommodationSuggestions": ["type1", "type2", "type3"]
    }`

func analyzePrompt(r TripRequest) string {
	var b strings.Builder
	b.WriteString("You are an expert travel advisor. Based on the following user preferences, provide detailed travel recommendations.\n\n")
	b.WriteString("User Preferences:\n")
	fmt.Fprintf(&b, "- Budget Level: %s\n", r.Budget)
	fmt.Fprintf(&b, "- Duration: %d days\n", r.Duration)
	fmt.Fprintf(&b, "- Travel Style: %s\n", joinStrings(r.TravelStyle))
	fmt.Fprintf(&b, "- Interests: %s\n", joinStrings(r.Interests))
	fmt.Fprintf(&b, "- Climate Preference: %s\n", joinStrings(r.Climate))
	fmt.Fprintf(&b, "- Group Size: %d people\n", r.GroupSize)
	if r.SpecialRequirements != "" {
		fmt.Fprintf(&b, "- Special Requirements: %s\n", r.SpecialRequirements)
	}
	b.WriteString("\nIMPORTANT: You MUST provide personalized recommendations that match EXACTLY the user's budget, travel style, interests, and climate preferences. Do not give generic recommendations.\n\n")
	b.WriteString("Please provide your response ONLY as valid JSON (no markdown, no extra text) with this exact structure:\n")
	fmt.Fprintf(&b, `{
  "summary": "A brief personalized summary of the ideal destination profile for this specific traveler based on their budget (%s), interests (%s), and travel style (%s)",
  "recommendations": [
    %s,
    %s,
    %s
  ],
  "additionalTips": ["tip1", "tip2", "tip3"]
}`, r.Budget, joinStrings(r.Interests), joinStrings(r.TravelStyle),
		recommendationShape, recommendationShape, recommendationShape)
	return b.String()
}

func refinePrompt(prev NarrativeResult, feedback string) string {
	var b strings.Builder
	b.WriteString("\nYou are a travel advisor refining recommendations based on user feedback.\n\n")
	b.WriteString("Previous Recommendations Summary:\n")
	b.WriteString(prev.Summary)
	b.WriteString("\n\nPrevious Recommendations:\n")
	for i, r := range prev.Recommendations {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s, %s: %s", r.Destination, r.Country, r.Reason)
	}
	b.WriteString("\n\nUser Feedback/Additional Requirements:\n")
	b.WriteString(feedback)
	b.WriteString("\n\nPlease refine the recommendations based on this feedback. Provide updated recommendations in the same JSON format:\n")
	fmt.Fprintf(&b, `{
  "summary": "Updated profile summary",
  "recommendations": [
    %s
  ],
  "additionalTips": ["tip1", "tip2", "tip3"]
}
`, recommendationShape)
	b.WriteString("\nEnsure the refined recommendations better match the user's updated requirements.\n")
	return b.String()
}

func itineraryPrompt(destination string, duration int, interests []string) string {
	return fmt.Sprintf(`
Generate a detailed %d-day itinerary for %s.

User Interests: %s

Create a day-by-day itinerary with:
- Morning, Afternoon, and Evening activities
- Estimated travel times
- Budget estimates for meals and activities
- Insider tips and local recommendations
- Practical logistics (transportation, best times to visit sites)

Make it engaging, practical, and personalized to the interests provided.
`, duration, destination, strings.Join(interests, ", "))
}
