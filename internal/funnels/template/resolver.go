// Package template resolves {{bucket.key}} merge tokens against lead and
// agent data. Resolution never fails: unknown buckets and keys collapse to
// the empty string so a half-filled lead record produces a sendable message
// rather than an error.
package template

import (
	"regexp"
	"strings"
)

// MergeContext carries the two named token buckets. Values are flat
// string-to-string mappings built from the lead record and agent profile.
type MergeContext struct {
	Lead  map[string]string
	Agent map[string]string
}

const signaturePath = "agent.signature"

var tokenPattern = regexp.MustCompile(`{{\s*([^}]+?)\s*}}`)

// Option configures a Resolve call.
type Option func(*resolver)

// WithSignatureOverride substitutes the agent.signature token with the
// operator's custom signature instead of the agent bucket value.
func WithSignatureOverride(signature string) Option {
	return func(r *resolver) {
		r.signatureOverride = signature
	}
}

// WithFallbacks enables "||" fallback parsing inside tokens, e.g.
// {{lead.interestAddress || "your property"}}. Alternatives are tried left
// to right; a quoted alternative is a literal, an unquoted one is another
// lookup. Without this option the whole path is looked up verbatim and such
// tokens resolve to empty string, matching the historical resolver.
func WithFallbacks() Option {
	return func(r *resolver) {
		r.fallbacks = true
	}
}

type resolver struct {
	ctx               MergeContext
	signatureOverride string
	fallbacks         bool
}

// Resolve substitutes every {{ path }} token in tpl in a single pass. Tokens
// produced by substitution are not re-expanded.
func Resolve(tpl string, ctx MergeContext, opts ...Option) string {
	r := resolver{ctx: ctx}
	for _, opt := range opts {
		opt(&r)
	}

	return tokenPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		submatch := tokenPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return ""
		}
		return r.resolvePath(strings.TrimSpace(submatch[1]))
	})
}

func (r *resolver) resolvePath(path string) string {
	if !r.fallbacks {
		return r.lookup(path)
	}

	for _, alternative := range strings.Split(path, "||") {
		alternative = strings.TrimSpace(alternative)
		if alternative == "" {
			continue
		}
		if literal, ok := unquote(alternative); ok {
			if literal != "" {
				return literal
			}
			continue
		}
		if value := r.lookup(alternative); value != "" {
			return value
		}
	}
	return ""
}

// lookup resolves a single bucket.key path. The path is split on the first
// dot; anything unknown resolves to empty string.
func (r *resolver) lookup(path string) string {
	if path == signaturePath && r.signatureOverride != "" {
		return r.signatureOverride
	}

	bucket, key, found := strings.Cut(path, ".")
	if !found {
		return ""
	}

	switch bucket {
	case "lead":
		return r.ctx.Lead[key]
	case "agent":
		return r.ctx.Agent[key]
	}
	return ""
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1], true
		}
	}
	return "", false
}
