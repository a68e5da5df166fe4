package scoring

import (
	"strings"
	"time"
)

// LeadFacts is the flat view of a lead that scoring rules evaluate against.
type LeadFacts struct {
	CreatedAt   time.Time
	Phone       string
	Email       string
	Status      string
	Source      string
	LastMessage string
}

// Rule awards (or deducts) points when its predicate holds for a lead.
// Rules are deliberately not idempotent; callers decide when a rule fires.
type Rule struct {
	ID          string
	Name        string
	Description string
	Category    string
	Points      int
	Applies     func(facts LeadFacts, now time.Time) bool
}

func sourceContains(facts LeadFacts, fragment string) bool {
	return strings.Contains(strings.ToLower(facts.Source), fragment)
}

func messageContainsAny(facts LeadFacts, keywords []string) bool {
	message := strings.ToLower(facts.LastMessage)
	for _, keyword := range keywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}

// DefaultRules returns the shipped scoring rule catalog.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "recent_contact",
			Name:        "Recent Contact",
			Description: "Lead contacted within last 7 days",
			Category:    "engagement",
			Points:      25,
			Applies: func(f LeadFacts, now time.Time) bool {
				return f.CreatedAt.After(now.Add(-7 * 24 * time.Hour))
			},
		},
		{
			ID:          "phone_provided",
			Name:        "Phone Number Provided",
			Description: "Lead provided a phone number",
			Category:    "engagement",
			Points:      15,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return len(f.Phone) > 5
			},
		},
		{
			ID:          "email_provided",
			Name:        "Email Provided",
			Description: "Lead provided an email address",
			Category:    "engagement",
			Points:      10,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return strings.Contains(f.Email, "@")
			},
		},
		{
			ID:          "detailed_inquiry",
			Name:        "Detailed Inquiry",
			Description: "Lead sent a detailed message (>50 characters)",
			Category:    "engagement",
			Points:      20,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return len(f.LastMessage) > 50
			},
		},
		{
			ID:          "qualified_status",
			Name:        "Qualified Status",
			Description: "Lead has been qualified by agent",
			Category:    "behavior",
			Points:      50,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return f.Status == "Qualified"
			},
		},
		{
			ID:          "showing_scheduled",
			Name:        "Showing Scheduled",
			Description: "Lead has a showing scheduled",
			Category:    "behavior",
			Points:      40,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return f.Status == "Showing"
			},
		},
		{
			ID:          "contacted_status",
			Name:        "Agent Contact Made",
			Description: "Agent has contacted the lead",
			Category:    "behavior",
			Points:      20,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return f.Status == "Contacted"
			},
		},
		{
			ID:          "zillow_source",
			Name:        "Zillow Lead",
			Description: "Lead came from Zillow",
			Category:    "demographics",
			Points:      15,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return sourceContains(f, "zillow")
			},
		},
		{
			ID:          "referral_source",
			Name:        "Referral Lead",
			Description: "Lead came from referral",
			Category:    "demographics",
			Points:      30,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return sourceContains(f, "referral")
			},
		},
		{
			ID:          "website_source",
			Name:        "Website Direct",
			Description: "Lead came directly from website",
			Category:    "demographics",
			Points:      20,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return sourceContains(f, "website")
			},
		},
		{
			ID:          "weekend_inquiry",
			Name:        "Weekend Inquiry",
			Description: "Lead contacted during weekend",
			Category:    "timing",
			Points:      10,
			Applies: func(f LeadFacts, _ time.Time) bool {
				day := f.CreatedAt.Weekday()
				return day == time.Saturday || day == time.Sunday
			},
		},
		{
			ID:          "evening_inquiry",
			Name:        "Evening Inquiry",
			Description: "Lead contacted in the evening",
			Category:    "timing",
			Points:      5,
			Applies: func(f LeadFacts, _ time.Time) bool {
				hour := f.CreatedAt.Hour()
				return hour >= 18 || hour <= 6
			},
		},
		{
			ID:          "professional_message",
			Name:        "Professional Communication",
			Description: "Lead uses professional language",
			Category:    "engagement",
			Points:      15,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return messageContainsAny(f, []string{
					"interested", "schedule", "appointment", "showing",
					"available", "please", "thank you",
				})
			},
		},
		{
			ID:          "specific_questions",
			Name:        "Specific Questions",
			Description: "Lead asks specific property questions",
			Category:    "engagement",
			Points:      25,
			Applies: func(f LeadFacts, _ time.Time) bool {
				return messageContainsAny(f, []string{
					"price", "square feet", "bedrooms", "bathrooms",
					"neighborhood", "schools", "hoa",
				})
			},
		},
	}
}
