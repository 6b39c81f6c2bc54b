package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe   = regexp.MustCompile(`[\s-]+`)
)

// Slug lower-cases s, drops characters outside [a-z0-9], and joins words
// with single hyphens.
func Slug(s string) string {
	s = slugInvalidRe.ReplaceAllString(strings.ToLower(s), "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IDGenerator builds gear ids of the form brand-name-<ms base36>-<random>.
type IDGenerator struct {
	Now    func() time.Time
	Suffix func() string
}

// NewIDGenerator returns a generator using the wall clock and uuid entropy.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{Now: time.Now, Suffix: randomSuffix}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// New returns an id for the given brand and name.
func (g *IDGenerator) New(brand, name string) string {
	now, suffix := g.Now, g.Suffix
	if now == nil {
		now = time.Now
	}
	if suffix == nil {
		suffix = randomSuffix
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{Slug(brand), Slug(name)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, strconv.FormatInt(now().UnixMilli(), 36), suffix())
	return strings.Join(parts, "-")
}
