package parser

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
)

// tagRe only matches "#" at the start of a word, so "C#minor" is not a tag.
var tagRe = regexp.MustCompile(`(?:^|\s)#([\pL\pN][\pL\pN_-]*)`)

// ExtractTags pulls "#tag" tokens out of line. Tags are lower-cased and
// de-duplicated in order of first appearance; rest is the line without them.
func ExtractTags(line string) (tags []string, rest string) {
	seen := make(map[string]bool)
	for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	rest = tagRe.ReplaceAllString(line, " ")
	rest = strings.TrimSpace(whitespaceRe.ReplaceAllString(rest, " "))
	return tags, rest
}

// TagSource records where a candidate's tag fields came from.
type TagSource string

const (
	TagSourceInline  TagSource = "inline"
	TagSourceDefault TagSource = "default"
)

var (
	defaultTagPool     = []string{"warm", "punchy", "bright", "vintage", "modern", "versatile", "studio-staple", "lo-fi", "hi-fi", "classic", "boutique", "workhorse"}
	defaultTonePool    = []string{"warm", "bright", "dark", "smooth", "aggressive", "airy", "tight", "round"}
	defaultQualityPool = []string{"clear", "rich", "detailed", "saturated", "crisp", "full-bodied", "articulate", "gritty"}
)

const (
	defaultTagCount     = 3
	defaultToneCount    = 2
	defaultQualityCount = 2
	inlineToneCount     = 2
)

// DefaultPolicy fills tags, sound tone and sound qualities for items that
// do not carry them. Its random source is injectable so output can be made
// deterministic. It is safe for concurrent use.
type DefaultPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDefaultPolicy returns a policy drawing from rng, or from a fresh
// randomly seeded source when rng is nil.
func NewDefaultPolicy(rng *rand.Rand) *DefaultPolicy {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &DefaultPolicy{rng: rng}
}

// NewSeededPolicy is a convenience for deterministic output.
func NewSeededPolicy(seed uint64) *DefaultPolicy {
	return NewDefaultPolicy(rand.New(rand.NewPCG(seed, seed)))
}

// Apply returns tags, tone and qualities for an item given its inline tags.
func (p *DefaultPolicy) Apply(inline []string) (tags, tone, qualities []string, source TagSource) {
	if len(inline) > 0 {
		tags = append([]string(nil), inline...)
		tone = append([]string(nil), inline[:min(inlineToneCount, len(inline))]...)
		qualities = p.pick(defaultQualityPool, defaultQualityCount)
		return tags, tone, qualities, TagSourceInline
	}
	return p.pick(defaultTagPool, defaultTagCount),
		p.pick(defaultTonePool, defaultToneCount),
		p.pick(defaultQualityPool, defaultQualityCount),
		TagSourceDefault
}

// pick returns n distinct entries of pool.
func (p *DefaultPolicy) pick(pool []string, n int) []string {
	n = min(n, len(pool))
	p.mu.Lock()
	perm := p.rng.Perm(len(pool))
	p.mu.Unlock()
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, pool[i])
	}
	return out
}

// placeholderMarker ends every generated description.
const placeholderMarker = "Details pending."

// PlaceholderDescription builds the stand-in description for an item.
func PlaceholderDescription(brand, name, category, subcategory string) string {
	switch {
	case category == "" || !IsCategory(category):
		return strings.TrimSpace(brand+" "+name) + ". Category pending review. " + placeholderMarker
	case subcategory == "":
		return strings.TrimSpace(brand+" "+name) + " (" + category + "). " + placeholderMarker
	default:
		return strings.TrimSpace(brand+" "+name) + " (" + subcategory + " " + category + "). " + placeholderMarker
	}
}

// IsPlaceholder reports whether desc was produced by PlaceholderDescription
// or is empty.
func IsPlaceholder(desc string) bool {
	desc = strings.TrimSpace(desc)
	return desc == "" || strings.HasSuffix(desc, placeholderMarker)
}
