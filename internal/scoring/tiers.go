// Package scoring classifies leads into named tiers from accumulated rule
// points and produces the per-source analytics the dashboard reads.
package scoring

import (
	"fmt"
	"sort"

	"nurture_backend/platform/apperr"
)

// Tier is one classification bucket over an inclusive point range.
type Tier struct {
	ID          string
	Min         int
	Max         int
	Description string
}

// TierSet is a validated, ordered set of tiers covering a score domain.
// Construct it with NewTierSet; the zero value refuses to classify.
type TierSet struct {
	tiers     []Tier
	domainMin int
	domainMax int
	validated bool
}

// NewTierSet validates a tier configuration: ranges must be well formed,
// non-overlapping, and together cover every integer in [domainMin,
// domainMax] with no gaps. A broken configuration is a configuration error,
// never a silent default.
func NewTierSet(tiers []Tier, domainMin, domainMax int) (TierSet, error) {
	if len(tiers) == 0 {
		return TierSet{}, apperr.Configuration("tier set is empty")
	}
	if domainMax < domainMin {
		return TierSet{}, apperr.Configuration("tier domain is inverted")
	}

	ordered := make([]Tier, len(tiers))
	copy(ordered, tiers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Min < ordered[j].Min })

	for _, t := range ordered {
		if t.ID == "" {
			return TierSet{}, apperr.Configuration("tier with empty id")
		}
		if t.Max < t.Min {
			return TierSet{}, apperr.Configuration(fmt.Sprintf("tier %s has inverted range [%d,%d]", t.ID, t.Min, t.Max))
		}
	}

	if ordered[0].Min != domainMin {
		return TierSet{}, apperr.Configuration(fmt.Sprintf("tier %s starts at %d, domain starts at %d", ordered[0].ID, ordered[0].Min, domainMin))
	}
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if cur.Min <= prev.Max {
			return TierSet{}, apperr.Configuration(fmt.Sprintf("tiers %s and %s overlap", prev.ID, cur.ID))
		}
		if cur.Min != prev.Max+1 {
			return TierSet{}, apperr.Configuration(fmt.Sprintf("gap between tiers %s and %s", prev.ID, cur.ID))
		}
	}
	if last := ordered[len(ordered)-1]; last.Max != domainMax {
		return TierSet{}, apperr.Configuration(fmt.Sprintf("tier %s ends at %d, domain ends at %d", last.ID, last.Max, domainMax))
	}

	return TierSet{tiers: ordered, domainMin: domainMin, domainMax: domainMax, validated: true}, nil
}

// Classify maps a point total to the single tier containing it.
func (s TierSet) Classify(points int) (string, error) {
	if !s.validated {
		return "", apperr.Configuration("tier set has not been validated")
	}
	if points < s.domainMin || points > s.domainMax {
		return "", apperr.Configuration(fmt.Sprintf("score %d is outside the tier domain [%d,%d]", points, s.domainMin, s.domainMax))
	}

	for _, t := range s.tiers {
		if points >= t.Min && points <= t.Max {
			return t.ID, nil
		}
	}
	// Unreachable for a validated set.
	return "", apperr.Configuration(fmt.Sprintf("no tier covers score %d", points))
}

// Tiers returns the ordered tier list.
func (s TierSet) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// Shipped tier names.
const (
	TierCold      = "Cold"
	TierWarm      = "Warm"
	TierHot       = "Hot"
	TierQualified = "Qualified"
)

const (
	defaultDomainMin = 0
	defaultDomainMax = 999
)

// DefaultTierSet returns the shipped tier thresholds.
func DefaultTierSet() TierSet {
	set, err := NewTierSet([]Tier{
		{ID: TierCold, Min: 0, Max: 30, Description: "Needs nurturing"},
		{ID: TierWarm, Min: 31, Max: 70, Description: "Shows interest"},
		{ID: TierHot, Min: 71, Max: 110, Description: "High potential"},
		{ID: TierQualified, Min: 111, Max: 999, Description: "Ready to buy"},
	}, defaultDomainMin, defaultDomainMax)
	if err != nil {
		panic(err)
	}
	return set
}
