package domain

// DefaultSteps returns the shipped step catalog for a funnel type, used to
// seed a new agent's funnels. Templates use {{bucket.key}} merge tokens; the
// authored copy includes "||" fallbacks, which render only when the resolver
// has fallback parsing enabled.
func DefaultSteps(funnelType FunnelType) []Step {
	switch funnelType {
	case FunnelWelcome:
		return defaultWelcomeSteps()
	case FunnelHomeBuyer:
		return defaultHomeBuyerSteps()
	case FunnelListing:
		return defaultListingSteps()
	case FunnelPostShowing:
		return defaultPostShowingSteps()
	}
	return nil
}

// DefaultFunnelTypes lists the lifecycle stages that ship with a catalog.
func DefaultFunnelTypes() []FunnelType {
	return []FunnelType{FunnelWelcome, FunnelHomeBuyer, FunnelListing, FunnelPostShowing}
}

func defaultWelcomeSteps() []Step {
	return []Step{
		{
			ID:          "welcome-ai",
			Title:       "Instant AI Welcome",
			Description: "Chatbot fires a warm intro email + SMS within 2 minutes.",
			Icon:        "thunderstorm",
			Delay:       "0 min",
			Type:        StepEmail,
			Subject:     "Welcome aboard, {{lead.name}}!",
			ContentTemplate: "Hi {{lead.name}},\n\n" +
				"Great to meet you! I built a quick concierge just for you — it highlights " +
				`{{lead.interestAddress || "the homes we're short-listing"}} and answers questions 24/7.` + "\n\n" +
				"Take a peek here: {{agent.aiCardUrl || agent.website}}\n\n" +
				"Talk soon,\n{{agent.name}} · {{agent.phone}}",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
		{
			ID:          "welcome-checkin",
			Title:       "Day 1 Check-In",
			Description: "Bot shares quick resources and asks for timeline + budget so you can prioritize.",
			Icon:        "draft",
			Delay:       "+1 day",
			Type:        StepEmail,
			Subject:     "Quick check-in + next steps",
			ContentTemplate: "Hi {{lead.name}},\n\n" +
				`Want me to line up tours for {{lead.interestAddress || "any favorite homes"}}?` + "\n\n" +
				"Drop me your target move-in date + ideal payment range and I'll tailor alerts that match perfectly.",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
		{
			ID:          "welcome-opened-gate",
			Title:       "Engagement Check",
			Description: "Branch on whether the welcome emails were opened before the human task.",
			Icon:        "alt_route",
			Delay:       "+1 day",
			Type:        StepCondition,
			ConditionRule:  RuleEmailOpened,
			ConditionValue: 1,
		},
		{
			ID:          "welcome-task",
			Title:       "Agent Task",
			Description: "Reminder for a human touch — call/text with next steps.",
			Icon:        "call",
			Delay:       "0 min",
			Type:        StepTask,
			Subject:     "Agent task",
			ContentTemplate: `Task: Call {{lead.name}} about {{lead.interestAddress || "their top picks"}}.` + "\n\n" +
				"Goal: confirm financing path + invite to a live strategy session.",
		},
	}
}

func defaultHomeBuyerSteps() []Step {
	return []Step{
		{
			ID:          "buyer-intake",
			Title:       "Lead Qualification",
			Description: "AI concierge confirms price range, move timeline, and pre-approval status.",
			Icon:        "assignment",
			Delay:       "0 min",
			Type:        StepEmail,
			Subject:     "Let's dial in your wishlist",
			ContentTemplate: "Hey {{lead.name}},\n\n" +
				"Quick lightning round so I can curate listings for you:\n" +
				"- Ideal price range?\n- Must-haves (beds, neighborhood, vibes)?\n- Target move date?\n\n" +
				"Reply here and I'll handle the rest.",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
		{
			ID:          "buyer-matches",
			Title:       "Curated Matches",
			Description: "Send 3 tailored MLS matches that fit the captured wishlist.",
			Icon:        "home",
			Delay:       "+6 hours",
			Type:        StepEmail,
			Subject:     "Hand-picked homes to preview",
			ContentTemplate: "Based on your wishlist, here are three homes that hit the mark:\n" +
				`1. {{lead.matchOne || "Palm Oasis · $890k · Pool + ADU"}}` + "\n" +
				`2. {{lead.matchTwo || "Vista Row · $815k · Walkable to everything"}}` + "\n" +
				`3. {{lead.matchThree || "Sierra Modern · $925k · Views for days"}}` + "\n\n" +
				"Want me to unlock more details or line up a private tour?",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
		{
			ID:          "buyer-tour",
			Title:       "Tour Offer",
			Description: "Invite the buyer to pick a tour window or book a virtual walk-through.",
			Icon:        "calendar_add_on",
			Delay:       "+1 day",
			Type:        StepEmail,
			Subject:     "Ready to tour this week?",
			ContentTemplate: "I can stack back-to-back showings or drop you into a private FaceTime walk-through.\n\n" +
				"Tap a window that works: {{agent.aiCardUrl}}/schedule",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
	}
}

func defaultListingSteps() []Step {
	return []Step{
		{
			ID:          "listing-intake",
			Title:       "AI Story Intake",
			Description: "Seller completes a quick form; AI turns the notes into a lifestyle narrative.",
			Icon:        "stylus",
			Delay:       "0 min",
			Type:        StepEmail,
			Subject:     "Let's make your home talk",
			ContentTemplate: `Thanks for the details on {{lead.interestAddress || "your property"}}.` + "\n" +
				"I'm feeding them into our AI storyteller so buyers feel the lifestyle on the first touch.",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
		{
			ID:          "listing-draft",
			Title:       "Interactive Listing Draft",
			Description: "System builds the AI-powered property page with concierge + talking points.",
			Icon:        "dynamic_feed",
			Delay:       "+30 min",
			Type:        StepEmail,
			Subject:     "Preview your interactive listing",
			ContentTemplate: "Here's the first pass of your AI listing experience:\n" +
				"{{agent.website}}/listing-preview\n\n" +
				"The concierge already knows how to answer buyer questions 24/7.",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
	}
}

func defaultPostShowingSteps() []Step {
	return []Step{
		{
			ID:          "post-thanks",
			Title:       "Immediate Thanks",
			Description: "AI concierge sends a recap minutes after the showing with highlights and next steps.",
			Icon:        "handshake",
			Delay:       "0 min",
			Type:        StepEmail,
			Subject:     "Thanks for touring {{lead.interestAddress}}",
			ContentTemplate: "Hi {{lead.name}},\n\n" +
				"Loved walking you through {{lead.interestAddress}}. Here's a quick recap + next steps.\n\n" +
				"Want a second look or details on similar homes? I'm on standby.",
			TrackOpens:         true,
			IncludeUnsubscribe: true,
		},
		{
			ID:          "post-feedback",
			Title:       "Feedback Pulse",
			Description: "Ask the buyer to rate interest level and capture objections via chatbot survey.",
			Icon:        "rate_review",
			Delay:       "+2 hours",
			Type:        StepSMS,
			Subject:     "Mind sharing quick feedback?",
			ContentTemplate: "Drop a 30-second response so I can tailor our next steps:\n" +
				"{{agent.aiCardUrl}}/feedback",
		},
	}
}
