// Package redirect turns untrusted redirect targets into safe, internal,
// allow-listed paths that can be handed to a navigation API.
//
// Candidates come from query parameters, cookies written by an earlier
// request, or literals passed by callers. All of them are treated as hostile:
// any candidate that fails a check is replaced by the configured fallback
// path, and no error is ever returned to the caller.
//
// Accepted paths are returned percent-encoded. Non-ASCII characters grow when
// escaped, so a legitimate path close to MaxLength can exceed it after
// encoding; such a path falls back rather than being cut again, which keeps
// Sanitize idempotent.
package redirect

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTrustedDomain is the only host absolute redirect targets may point at.
	DefaultTrustedDomain = "emvi.app"
	// DefaultFallback is returned whenever a candidate is rejected.
	DefaultFallback = "/jobs"
	// DefaultMaxLength bounds the number of characters considered from a candidate.
	DefaultMaxLength = 200
)

// DefaultAllowedPrefixes returns the path prefixes a sanitized redirect may start with.
func DefaultAllowedPrefixes() []string {
	return []string{"/jobs", "/artists", "/salons", "/blog", "/dashboard", "/post-job"}
}

// DefaultSignInPrefixes returns the sign-in route spellings that are never
// valid post-sign-in destinations.
func DefaultSignInPrefixes() []string {
	return []string{"/signin", "/auth/signin", "/sign-in"}
}

// DefaultNestedParams returns the query parameter names that carry a second
// redirect hop and are stripped from accepted candidates.
func DefaultNestedParams() []string {
	return []string{"redirect", "redirect_uri", "redirect_to", "redirectTo", "return_to", "returnTo", "next", "callbackUrl"}
}

// Reason explains the outcome of a sanitization. It is meant for metrics and
// server-side logs only and must never be shown to end users.
type Reason string

const (
	ReasonAccepted     Reason = "accepted"
	ReasonEmpty        Reason = "empty"
	ReasonMalformed    Reason = "malformed"
	ReasonExternalHost Reason = "external_host"
	ReasonNotRelative  Reason = "not_relative"
	ReasonSignInLoop   Reason = "sign_in_loop"
	ReasonNotAllowed   Reason = "not_allowed"
	ReasonTooLong      Reason = "too_long"
)

// Options configure a Sanitizer. Zero values are replaced by the package defaults.
type Options struct {
	// TrustedDomain is the application host. A leading "www." is ignored on
	// both sides of the comparison.
	TrustedDomain string
	// Fallback is returned for every rejected candidate.
	Fallback string
	// MaxLength is the number of characters kept from a candidate before any
	// other processing. Sanitized output never exceeds it.
	MaxLength int
	// AllowedPrefixes lists the paths a result must equal or be nested under.
	AllowedPrefixes []string
	// SignInPrefixes lists sign-in routes that must not be redirect targets.
	SignInPrefixes []string
	// NestedParams lists query parameters removed from accepted candidates.
	// Matching is case-insensitive.
	NestedParams []string
}

// DefaultOptions returns Options populated with the package defaults.
func DefaultOptions() Options {
	return Options{
		TrustedDomain:   DefaultTrustedDomain,
		Fallback:        DefaultFallback,
		MaxLength:       DefaultMaxLength,
		AllowedPrefixes: DefaultAllowedPrefixes(),
		SignInPrefixes:  DefaultSignInPrefixes(),
		NestedParams:    DefaultNestedParams(),
	}
}

// Sanitizer validates redirect candidates against a fixed configuration.
// It holds no mutable state and is safe for concurrent use.
type Sanitizer struct {
	trustedDomain string
	fallback      string
	maxLength     int
	allowed       []string
	signIn        []string
	nested        map[string]struct{}
}

var absoluteURLPattern = regexp.MustCompile(`(?i)^https?://`)

// New builds a Sanitizer from opts, filling unset fields with defaults.
func New(opts Options) *Sanitizer {
	def := DefaultOptions()
	if opts.TrustedDomain == "" {
		opts.TrustedDomain = def.TrustedDomain
	}
	if opts.Fallback == "" {
		opts.Fallback = def.Fallback
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = def.MaxLength
	}
	if len(opts.AllowedPrefixes) == 0 {
		opts.AllowedPrefixes = def.AllowedPrefixes
	}
	if opts.SignInPrefixes == nil {
		opts.SignInPrefixes = def.SignInPrefixes
	}
	if opts.NestedParams == nil {
		opts.NestedParams = def.NestedParams
	}

	s := &Sanitizer{
		trustedDomain: normalizeHost(opts.TrustedDomain),
		fallback:      opts.Fallback,
		maxLength:     opts.MaxLength,
		nested:        make(map[string]struct{}, len(opts.NestedParams)),
	}
	for _, p := range opts.AllowedPrefixes {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if p != "/" {
			p = strings.TrimRight(p, "/")
		}
		s.allowed = append(s.allowed, p)
	}
	for _, p := range opts.SignInPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			s.signIn = append(s.signIn, p)
		}
	}
	for _, p := range opts.NestedParams {
		s.nested[strings.ToLower(p)] = struct{}{}
	}

	return s
}

// Default returns a Sanitizer using DefaultOptions.
func Default() *Sanitizer {
	return New(DefaultOptions())
}

// Fallback returns the path substituted for rejected candidates.
func (s *Sanitizer) Fallback() string {
	return s.fallback
}

// Sanitize returns a safe internal path for raw, or the fallback path when
// raw fails any check. It is a pure function of raw and the configuration,
// and Sanitize(Sanitize(x)) == Sanitize(x) for every x.
func (s *Sanitizer) Sanitize(raw string) string {
	out, _ := s.Decide(raw)

	return out
}

// Decide is Sanitize that also reports why the candidate was accepted or rejected.
//
// Processing order:
//  1. empty input is rejected;
//  2. the input is cut to MaxLength characters;
//  3. absolute http(s) URLs must point at the trusted domain and are reduced
//     to their path and query; unparsable ones are treated as relative paths;
//  4. the candidate must be a rooted path (no "//" authority, no backslash);
//  5. sign-in routes are rejected;
//  6. nested redirect parameters are dropped from the query;
//  7. the cleaned path must match the allow-list.
func (s *Sanitizer) Decide(raw string) (string, Reason) {
	if raw == "" {
		return s.fallback, ReasonEmpty
	}

	candidate := truncate(raw, s.maxLength)

	if absoluteURLPattern.MatchString(candidate) {
		if u, err := url.Parse(candidate); err == nil {
			if normalizeHost(u.Hostname()) != s.trustedDomain {
				return s.fallback, ReasonExternalHost
			}
			candidate = u.EscapedPath()
			if candidate == "" {
				candidate = "/"
			}
			if u.RawQuery != "" {
				candidate += "?" + u.RawQuery
			}
		}
	}

	if !strings.HasPrefix(candidate, "/") ||
		strings.HasPrefix(candidate, "//") ||
		strings.Contains(candidate, `\`) {
		return s.fallback, ReasonNotRelative
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return s.fallback, ReasonMalformed
	}

	// resolve dot-segments on the decoded path so "/jobs/../admin" cannot
	// sneak past the prefix check
	cleaned := path.Clean(u.Path)
	if !strings.HasPrefix(cleaned, "/") {
		return s.fallback, ReasonNotRelative
	}

	if s.isSignIn(cleaned) {
		return s.fallback, ReasonSignInLoop
	}

	query := ""
	if u.RawQuery != "" {
		values, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return s.fallback, ReasonMalformed
		}
		for key := range values {
			if _, ok := s.nested[strings.ToLower(key)]; ok {
				delete(values, key)
			}
		}
		query = values.Encode()
	}

	if !s.isAllowed(cleaned) {
		return s.fallback, ReasonNotAllowed
	}

	out := (&url.URL{Path: cleaned}).EscapedPath()
	if query != "" {
		out += "?" + query
	}
	// re-encoding may grow the candidate; cutting it again would change its
	// meaning, so oversized results are rejected instead
	if utf8.RuneCountInString(out) > s.maxLength {
		return s.fallback, ReasonTooLong
	}

	return out, ReasonAccepted
}

func (s *Sanitizer) isSignIn(p string) bool {
	lower := strings.ToLower(p)
	for _, prefix := range s.signIn {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}

func (s *Sanitizer) isAllowed(p string) bool {
	for _, prefix := range s.allowed {
		if prefix == "/" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	return false
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}

// truncate keeps the first limit characters of s.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}

	return s
}
