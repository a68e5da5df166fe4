package scoring

import (
	"testing"

	"nurture_backend/platform/apperr"
)

func fixtureTiers() []Tier {
	return []Tier{
		{ID: "COLD", Min: 0, Max: 39},
		{ID: "WARM", Min: 40, Max: 69},
		{ID: "HOT", Min: 70, Max: 89},
		{ID: "QUALIFIED", Min: 90, Max: 100},
	}
}

func TestTierSetClassifiesEveryScoreInDomain(t *testing.T) {
	set, err := NewTierSet(fixtureTiers(), 0, 100)
	if err != nil {
		t.Fatalf("tier set rejected: %v", err)
	}

	expected := func(points int) string {
		switch {
		case points <= 39:
			return "COLD"
		case points <= 69:
			return "WARM"
		case points <= 89:
			return "HOT"
		default:
			return "QUALIFIED"
		}
	}

	for points := 0; points <= 100; points++ {
		tier, err := set.Classify(points)
		if err != nil {
			t.Fatalf("classify(%d) failed: %v", points, err)
		}
		if tier != expected(points) {
			t.Fatalf("classify(%d) = %s, expected %s", points, tier, expected(points))
		}
	}
}

func TestTierSetRejectsScoreOutsideDomain(t *testing.T) {
	set, err := NewTierSet(fixtureTiers(), 0, 100)
	if err != nil {
		t.Fatalf("tier set rejected: %v", err)
	}

	if _, err := set.Classify(-1); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected configuration error below domain, got %v", err)
	}
	if _, err := set.Classify(101); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected configuration error above domain, got %v", err)
	}
}

func TestTierSetRejectsOverlap(t *testing.T) {
	tiers := fixtureTiers()
	tiers[1].Min = 35

	if _, err := NewTierSet(tiers, 0, 100); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected overlap to be a configuration error, got %v", err)
	}
}

func TestTierSetRejectsGap(t *testing.T) {
	tiers := fixtureTiers()
	tiers[1].Min = 45

	if _, err := NewTierSet(tiers, 0, 100); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected gap to be a configuration error, got %v", err)
	}
}

func TestTierSetRejectsInvertedRange(t *testing.T) {
	tiers := fixtureTiers()
	tiers[2].Max = 60

	if _, err := NewTierSet(tiers, 0, 100); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected inverted range to be a configuration error, got %v", err)
	}
}

func TestTierSetRejectsUncoveredDomainEdges(t *testing.T) {
	tiers := fixtureTiers()
	tiers[0].Min = 5
	if _, err := NewTierSet(tiers, 0, 100); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected uncovered domain start to fail, got %v", err)
	}

	tiers = fixtureTiers()
	tiers[3].Max = 95
	if _, err := NewTierSet(tiers, 0, 100); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected uncovered domain end to fail, got %v", err)
	}
}

func TestZeroTierSetRefusesToClassify(t *testing.T) {
	var set TierSet
	if _, err := set.Classify(10); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected unvalidated set to refuse, got %v", err)
	}
}

func TestDefaultTierSetBoundaries(t *testing.T) {
	set := DefaultTierSet()
	cases := []struct {
		points int
		tier   string
	}{
		{0, TierCold}, {30, TierCold},
		{31, TierWarm}, {70, TierWarm},
		{71, TierHot}, {110, TierHot},
		{111, TierQualified}, {999, TierQualified},
	}
	for _, c := range cases {
		tier, err := set.Classify(c.points)
		if err != nil {
			t.Fatalf("classify(%d) failed: %v", c.points, err)
		}
		if tier != c.tier {
			t.Fatalf("classify(%d) = %s, expected %s", c.points, tier, c.tier)
		}
	}
}
