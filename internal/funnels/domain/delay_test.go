package domain

import "testing"

func TestParseDelayDays(t *testing.T) {
	if got := ParseDelay("2 days"); got != 2880 {
		t.Fatalf("expected 2880 minutes for %q, got %d", "2 days", got)
	}
	if got := ParseDelay("+1 day"); got != 1440 {
		t.Fatalf("expected 1440 minutes for %q, got %d", "+1 day", got)
	}
}

func TestParseDelayHours(t *testing.T) {
	if got := ParseDelay("1 hour"); got != 60 {
		t.Fatalf("expected 60 minutes for %q, got %d", "1 hour", got)
	}
	if got := ParseDelay("+3 hours"); got != 180 {
		t.Fatalf("expected 180 minutes for %q, got %d", "+3 hours", got)
	}
}

func TestParseDelayMinutes(t *testing.T) {
	if got := ParseDelay("30 min"); got != 30 {
		t.Fatalf("expected 30 minutes for %q, got %d", "30 min", got)
	}
	if got := ParseDelay("0 min"); got != 0 {
		t.Fatalf("expected 0 minutes for %q, got %d", "0 min", got)
	}
}

func TestParseDelayAbbreviatedHoursFallThroughToMinutes(t *testing.T) {
	// "hrs" is not a recognized unit; the leading integer is taken as
	// minutes, matching how stored funnels have always behaved.
	if got := ParseDelay("+24 hrs"); got != 24 {
		t.Fatalf("expected 24 minutes for %q, got %d", "+24 hrs", got)
	}
}

func TestParseDelayBareInteger(t *testing.T) {
	if got := ParseDelay("45"); got != 45 {
		t.Fatalf("expected 45 minutes for %q, got %d", "45", got)
	}
}

func TestParseDelayEmptyAndGarbage(t *testing.T) {
	if got := ParseDelay(""); got != 0 {
		t.Fatalf("expected 0 for empty delay, got %d", got)
	}
	if got := ParseDelay("soon"); got != 0 {
		t.Fatalf("expected 0 for unparseable delay, got %d", got)
	}
}

func TestParseDelayCaseInsensitive(t *testing.T) {
	if got := ParseDelay("+1 DAY"); got != 1440 {
		t.Fatalf("expected 1440 minutes for %q, got %d", "+1 DAY", got)
	}
}
