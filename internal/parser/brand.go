package parser

import (
	"regexp"
	"strings"
)

// UnknownBrand is used when an item is a single token with no brand.
const UnknownBrand = "Unknown"

// BrandMatcher is one strategy for splitting a "brand name" blob.
type BrandMatcher interface {
	Name() string
	Match(blob string) (brand, name string, ok bool)
}

// DefaultBrandMatchers is the priority order used by SplitBrand.
var DefaultBrandMatchers = []BrandMatcher{
	KnownBrandMatcher{},
	SeparatorMatcher{},
	PositionalMatcher{},
	SingleTokenMatcher{},
}

type brandPattern struct {
	brand string
	re    *regexp.Regexp
}

var brandPatterns = func() []brandPattern {
	patterns := make([]brandPattern, len(knownBrands))
	for i, b := range knownBrands {
		patterns[i] = brandPattern{
			brand: b,
			re:    regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(` + regexp.QuoteMeta(b) + `)(?:$|[^\pL\pN])`),
		}
	}
	return patterns
}()

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	edgeTrimSet  = " \t-–|,:;/"
)

func cleanFragment(s string) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.Trim(s, edgeTrimSet)
}

// KnownBrandMatcher finds the known brand that starts earliest in the
// blob. Brands starting at the same offset go by list order.
type KnownBrandMatcher struct{}

func (KnownBrandMatcher) Name() string { return "known-brand" }

func (KnownBrandMatcher) Match(blob string) (string, string, bool) {
	brand, start, end := "", -1, -1
	for _, p := range brandPatterns {
		loc := p.re.FindStringSubmatchIndex(blob)
		if loc == nil || (start >= 0 && loc[2] >= start) {
			continue
		}
		brand, start, end = p.brand, loc[2], loc[3]
	}
	if start < 0 {
		return "", "", false
	}
	name := cleanFragment(blob[:start] + " " + blob[end:])
	if name == "" {
		name = cleanFragment(blob)
	}
	return brand, name, true
}

// SeparatorMatcher splits "Brand - Name".
type SeparatorMatcher struct{}

func (SeparatorMatcher) Name() string { return "separator" }

func (SeparatorMatcher) Match(blob string) (string, string, bool) {
	left, right, found := strings.Cut(blob, " - ")
	if !found {
		return "", "", false
	}
	brand, name := cleanFragment(left), cleanFragment(right)
	if brand == "" || name == "" {
		return "", "", false
	}
	return brand, name, true
}

// PositionalMatcher treats the first word as the brand.
type PositionalMatcher struct{}

func (PositionalMatcher) Name() string { return "positional" }

func (PositionalMatcher) Match(blob string) (string, string, bool) {
	fields := strings.Fields(blob)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

// SingleTokenMatcher is the last resort for a lone word.
type SingleTokenMatcher struct{}

func (SingleTokenMatcher) Name() string { return "single-token" }

func (SingleTokenMatcher) Match(blob string) (string, string, bool) {
	name := strings.TrimSpace(blob)
	if name == "" {
		return "", "", false
	}
	return UnknownBrand, name, true
}

// SplitBrand runs matchers in order and returns the first match together
// with the name of the strategy that produced it.
func SplitBrand(blob string, matchers ...BrandMatcher) (brand, name, strategy string, ok bool) {
	if len(matchers) == 0 {
		matchers = DefaultBrandMatchers
	}
	blob = strings.TrimSpace(blob)
	for _, m := range matchers {
		if b, n, matched := m.Match(blob); matched {
			return b, n, m.Name(), true
		}
	}
	return "", "", "", false
}
