package scoring

import (
	"context"
	"math"
	"sort"
	"time"

	"nurture_backend/internal/events"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadScoreState is a lead's accumulated score. Tier is always derived from
// TotalPoints via the tier set, never stored independently of it.
type LeadScoreState struct {
	LeadID      uuid.UUID
	TotalPoints int
	Tier        string
}

// Applied records one rule firing inside a score calculation.
type Applied struct {
	RuleID       string
	RuleName     string
	Points       int
	Category     string
	AppliedCount int
}

// RuleOverride is operator configuration layered over the shipped catalog.
type RuleOverride struct {
	Points  int
	Enabled bool
}

// SourceTier pairs a lead's acquisition source with its current tier.
type SourceTier struct {
	Source string
	Tier   string
}

// SourceStats is the per-source conversion summary.
type SourceStats struct {
	Source         string
	LeadCount      int
	HotCount       int
	ConversionRate float64
}

// Distribution summarizes scores across a book of leads.
type Distribution struct {
	Counts       map[string]int
	TotalLeads   int
	AverageScore float64
	HighestScore int
	LowestScore  int
}

// Store is the persistence the scoring service needs.
type Store interface {
	FetchTiers(ctx context.Context) ([]Tier, error)
	FetchRuleOverrides(ctx context.Context) (map[string]RuleOverride, error)
	GetScore(ctx context.Context, leadID uuid.UUID) (LeadScoreState, error)
	SaveScore(ctx context.Context, state LeadScoreState) error
	ListScores(ctx context.Context, ownerID uuid.UUID) ([]LeadScoreState, error)
	ListSourceTiers(ctx context.Context, ownerID uuid.UUID) ([]SourceTier, error)
}

// Config is one immutable scoring configuration snapshot. Classification
// passes load it once and hold it for their duration.
type Config struct {
	Tiers TierSet
	Rules []Rule
}

type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log, now: time.Now}
}

// LoadConfig builds a validated scoring snapshot: stored tiers (falling back
// to the shipped set when none are configured) plus the rule catalog with
// operator overrides applied. A broken stored tier set fails loudly here,
// before any classification runs.
func (s *Service) LoadConfig(ctx context.Context) (Config, error) {
	stored, err := s.store.FetchTiers(ctx)
	if err != nil {
		return Config{}, err
	}

	tiers := DefaultTierSet()
	if len(stored) > 0 {
		tiers, err = NewTierSet(stored, defaultDomainMin, defaultDomainMax)
		if err != nil {
			return Config{}, err
		}
	}

	overrides, err := s.store.FetchRuleOverrides(ctx)
	if err != nil {
		return Config{}, err
	}

	rules := make([]Rule, 0, len(DefaultRules()))
	for _, rule := range DefaultRules() {
		if override, ok := overrides[rule.ID]; ok {
			if !override.Enabled {
				continue
			}
			rule.Points = override.Points
		}
		rules = append(rules, rule)
	}

	return Config{Tiers: tiers, Rules: rules}, nil
}

// Apply adds a rule's points to a score and re-derives the tier. Applying
// the same rule twice moves the score twice; not double-firing a rule for
// one event is the caller's job.
func Apply(state LeadScoreState, rule Rule, tiers TierSet) (LeadScoreState, error) {
	state.TotalPoints += rule.Points
	tier, err := tiers.Classify(state.TotalPoints)
	if err != nil {
		return LeadScoreState{}, err
	}
	state.Tier = tier
	return state, nil
}

// ApplyRule fires one rule for a lead, persists the new score, and publishes
// the change.
func (s *Service) ApplyRule(ctx context.Context, leadID uuid.UUID, ruleID string) (LeadScoreState, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return LeadScoreState{}, err
	}

	var rule *Rule
	for i := range cfg.Rules {
		if cfg.Rules[i].ID == ruleID {
			rule = &cfg.Rules[i]
			break
		}
	}
	if rule == nil {
		return LeadScoreState{}, apperr.NotFound("scoring rule " + ruleID + " not found")
	}

	state, err := s.store.GetScore(ctx, leadID)
	if err != nil {
		return LeadScoreState{}, err
	}
	state.LeadID = leadID

	state, err = Apply(state, *rule, cfg.Tiers)
	if err != nil {
		return LeadScoreState{}, err
	}

	if err := s.store.SaveScore(ctx, state); err != nil {
		return LeadScoreState{}, err
	}

	s.bus.Publish(ctx, events.LeadScoreChanged{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      leadID,
		TotalPoints: state.TotalPoints,
		Tier:        state.Tier,
		RuleID:      ruleID,
	})
	return state, nil
}

// CalculateScore evaluates the full rule catalog against a lead's facts,
// each rule firing at most once.
func CalculateScore(facts LeadFacts, cfg Config, now time.Time) (LeadScoreState, []Applied, error) {
	var total int
	breakdown := make([]Applied, 0)

	for _, rule := range cfg.Rules {
		if !rule.Applies(facts, now) {
			continue
		}
		total += rule.Points
		breakdown = append(breakdown, Applied{
			RuleID:       rule.ID,
			RuleName:     rule.Name,
			Points:       rule.Points,
			Category:     rule.Category,
			AppliedCount: 1,
		})
	}

	tier, err := cfg.Tiers.Classify(total)
	if err != nil {
		return LeadScoreState{}, nil, err
	}

	return LeadScoreState{TotalPoints: total, Tier: tier}, breakdown, nil
}

// Score evaluates a lead's facts against the stored configuration and
// persists the result.
func (s *Service) Score(ctx context.Context, leadID uuid.UUID, facts LeadFacts) (LeadScoreState, []Applied, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return LeadScoreState{}, nil, err
	}

	state, breakdown, err := CalculateScore(facts, cfg, s.now())
	if err != nil {
		return LeadScoreState{}, nil, err
	}
	state.LeadID = leadID

	if err := s.store.SaveScore(ctx, state); err != nil {
		return LeadScoreState{}, nil, err
	}
	return state, breakdown, nil
}

// SourceBreakdown groups leads by acquisition source and reports how many
// reached Hot or Qualified. Unset sources group under "Unknown". Groups only
// exist for observed leads, so the rate division is never by zero.
func SourceBreakdown(leads []SourceTier) []SourceStats {
	type bucket struct {
		total int
		hot   int
	}
	buckets := make(map[string]*bucket)

	for _, lead := range leads {
		source := lead.Source
		if source == "" {
			source = "Unknown"
		}
		b, ok := buckets[source]
		if !ok {
			b = &bucket{}
			buckets[source] = b
		}
		b.total++
		if lead.Tier == TierHot || lead.Tier == TierQualified {
			b.hot++
		}
	}

	stats := make([]SourceStats, 0, len(buckets))
	for source, b := range buckets {
		stats = append(stats, SourceStats{
			Source:         source,
			LeadCount:      b.total,
			HotCount:       b.hot,
			ConversionRate: math.Round(float64(b.hot)/float64(b.total)*1000) / 10,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Source < stats[j].Source })
	return stats
}

// SourceBreakdown reports the per-source conversion summary for an agent's
// book of leads.
func (s *Service) SourceBreakdown(ctx context.Context, ownerID uuid.UUID) ([]SourceStats, error) {
	leads, err := s.store.ListSourceTiers(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return SourceBreakdown(leads), nil
}

// ScoreDistribution summarizes per-tier counts and score extremes.
func ScoreDistribution(scores []LeadScoreState) Distribution {
	dist := Distribution{Counts: make(map[string]int)}
	if len(scores) == 0 {
		return dist
	}

	sum := 0
	dist.HighestScore = scores[0].TotalPoints
	dist.LowestScore = scores[0].TotalPoints
	for _, score := range scores {
		dist.Counts[score.Tier]++
		sum += score.TotalPoints
		if score.TotalPoints > dist.HighestScore {
			dist.HighestScore = score.TotalPoints
		}
		if score.TotalPoints < dist.LowestScore {
			dist.LowestScore = score.TotalPoints
		}
	}
	dist.TotalLeads = len(scores)
	dist.AverageScore = float64(sum) / float64(len(scores))
	return dist
}

// Distribution reports the score distribution for an agent's leads.
func (s *Service) Distribution(ctx context.Context, ownerID uuid.UUID) (Distribution, error) {
	scores, err := s.store.ListScores(ctx, ownerID)
	if err != nil {
		return Distribution{}, err
	}
	return ScoreDistribution(scores), nil
}
