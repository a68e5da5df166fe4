package template

import "testing"

func testContext() MergeContext {
	return MergeContext{
		Lead: map[string]string{
			"name":      "Jordan Avery",
			"firstName": "Jordan",
			"email":     "jordan@example.com",
		},
		Agent: map[string]string{
			"name":      "Sam Realtor",
			"signature": "Sam Realtor, Sunrise Realty",
		},
	}
}

func TestResolveSubstitutesLeadAndAgentTokens(t *testing.T) {
	got := Resolve("Hi {{lead.firstName}}, this is {{agent.name}}.", testContext())
	want := "Hi Jordan, this is Sam Realtor."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolveUnknownTokensCollapseToEmpty(t *testing.T) {
	if got := Resolve("Hi {{foo.bar}}", testContext()); got != "Hi " {
		t.Fatalf("expected unknown bucket to resolve empty, got %q", got)
	}
	if got := Resolve("Hi {{lead.nickname}}!", testContext()); got != "Hi !" {
		t.Fatalf("expected unknown key to resolve empty, got %q", got)
	}
}

func TestResolveToleratesWhitespaceInsideTokens(t *testing.T) {
	if got := Resolve("{{ lead.firstName }}", testContext()); got != "Jordan" {
		t.Fatalf("expected whitespace-padded token to resolve, got %q", got)
	}
}

func TestResolveSignatureOverride(t *testing.T) {
	got := Resolve("Best,\n{{agent.signature}}", testContext(), WithSignatureOverride("Sam | 555-0100"))
	want := "Best,\nSam | 555-0100"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	// Other agent tokens are unaffected by the override.
	if got := Resolve("{{agent.name}}", testContext(), WithSignatureOverride("x")); got != "Sam Realtor" {
		t.Fatalf("expected agent.name untouched, got %q", got)
	}
}

func TestResolveIsSinglePass(t *testing.T) {
	ctx := testContext()
	ctx.Lead["name"] = "{{agent.signature}}"

	got := Resolve("{{lead.name}}", ctx)
	if got != "{{agent.signature}}" {
		t.Fatalf("expected substituted tokens not to be re-expanded, got %q", got)
	}
}

func TestResolveFallbacksDisabledByDefault(t *testing.T) {
	got := Resolve(`{{lead.interestAddress || "your property"}}`, testContext())
	if got != "" {
		t.Fatalf("expected fallback syntax to resolve empty without the option, got %q", got)
	}
}

func TestResolveFallbacksPickFirstNonEmpty(t *testing.T) {
	ctx := testContext()

	got := Resolve(`{{lead.interestAddress || "your property"}}`, ctx, WithFallbacks())
	if got != "your property" {
		t.Fatalf("expected literal fallback, got %q", got)
	}

	ctx.Lead["interestAddress"] = "12 Elm Street"
	got = Resolve(`{{lead.interestAddress || "your property"}}`, ctx, WithFallbacks())
	if got != "12 Elm Street" {
		t.Fatalf("expected primary lookup to win, got %q", got)
	}
}

func TestResolveFallbackChainsLookups(t *testing.T) {
	got := Resolve(`{{lead.nickname || lead.firstName || "there"}}`, testContext(), WithFallbacks())
	if got != "Jordan" {
		t.Fatalf("expected second lookup to win, got %q", got)
	}
}
