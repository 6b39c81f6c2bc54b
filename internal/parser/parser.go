// Package parser turns pasted free text into gear candidates.
//
// Input is one item per line. A line ending in ':' is a category header that
// sets the category for the lines below it. Item lines are either a plain
// "brand name" blob or a structured "blob | category | description" line,
// optionally carrying #tags anywhere.
package parser

import (
	"fmt"
	"strings"

	"studiogear/internal/model"
)

// Candidate is a parsed gear record that has not been persisted yet.
type Candidate struct {
	Line           int       `json:"line"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand"`
	Category       string    `json:"category"`
	Subcategory    string    `json:"subcategory"`
	Description    string    `json:"description"`
	Tags           []string  `json:"tags"`
	SoundTone      []string  `json:"soundTone"`
	SoundQualities []string  `json:"soundQualities"`
	TagSource      TagSource `json:"tagSource"`
	BrandSource    string    `json:"brandSource"`
	// PlaceholderDescription is true when Description was generated.
	PlaceholderDescription bool `json:"placeholderDescription"`
}

// NeedsReview reports whether the candidate could not be classified.
func (c Candidate) NeedsReview() bool {
	return c.Category == model.ReviewCategory
}

// Gear converts the candidate into a persistable record.
func (c Candidate) Gear() model.Gear {
	return model.Gear{
		ID:             c.ID,
		Name:           c.Name,
		Brand:          c.Brand,
		Category:       c.Category,
		Subcategory:    c.Subcategory,
		Description:    c.Description,
		Tags:           c.Tags,
		SoundTone:      c.SoundTone,
		SoundQualities: c.SoundQualities,
		NeedsReview:    c.NeedsReview(),
	}
}

// LineError describes why a line was flagged or skipped.
type LineError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result is the outcome of one Parse call. Every non-blank input line is
// accounted for exactly once across Candidates, Review and Skipped.
type Result struct {
	Candidates []Candidate `json:"candidates"`
	Review     []Candidate `json:"review"`
	Errors     []LineError `json:"errors"`
	// Skipped counts header lines and lines with nothing to import.
	Skipped int `json:"skipped"`
}

// Parser keeps no state between calls and is safe for concurrent use.
type Parser struct {
	ids      *IDGenerator
	policy   *DefaultPolicy
	matchers []BrandMatcher
}

// Option customises a Parser.
type Option func(*Parser)

// WithIDGenerator overrides id generation.
func WithIDGenerator(g *IDGenerator) Option {
	return func(p *Parser) { p.ids = g }
}

// WithDefaultPolicy overrides tag defaulting.
func WithDefaultPolicy(policy *DefaultPolicy) Option {
	return func(p *Parser) { p.policy = policy }
}

// WithBrandMatchers replaces the brand matcher chain.
func WithBrandMatchers(matchers ...BrandMatcher) Option {
	return func(p *Parser) { p.matchers = matchers }
}

// New creates a Parser with the default matcher chain.
func New(opts ...Option) *Parser {
	p := &Parser{
		ids:      NewIDGenerator(),
		matchers: DefaultBrandMatchers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.policy == nil {
		p.policy = NewDefaultPolicy(nil)
	}
	return p
}

// Parse processes text line by line. It never fails as a whole.
func (p *Parser) Parse(text string) *Result {
	res := &Result{}
	var (
		context       string
		unknownHeader string
	)

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			res.Skipped++
			header := strings.TrimSuffix(line, ":")
			if category, ok := ResolveCategory(header); ok {
				context, unknownHeader = category, ""
			} else {
				context, unknownHeader = "", strings.TrimSpace(header)
			}
			continue
		}

		cand, lineErr := p.parseItem(line, context, unknownHeader)
		if cand == nil {
			res.Skipped++
			res.Errors = append(res.Errors, LineError{Line: lineNo, Reason: lineErr})
			continue
		}
		cand.Line = lineNo
		if lineErr != "" {
			res.Review = append(res.Review, *cand)
			res.Errors = append(res.Errors, LineError{Line: lineNo, Reason: lineErr})
			continue
		}
		res.Candidates = append(res.Candidates, *cand)
	}
	return res
}

// parseItem returns a candidate and, for review candidates or unusable
// lines, the reason.
func (p *Parser) parseItem(line, context, unknownHeader string) (*Candidate, string) {
	tags, rest := ExtractTags(line)

	blob := rest
	var explicitCategory, description string
	structured := strings.Contains(rest, "|")
	if structured {
		segments := strings.Split(rest, "|")
		for i := range segments {
			segments[i] = strings.TrimSpace(segments[i])
		}
		blob = segments[0]
		if len(segments) > 1 {
			explicitCategory = segments[1]
		}
		if len(segments) > 2 {
			description = strings.Join(segments[2:], " | ")
		}
	}

	brand, name, strategy, ok := SplitBrand(blob, p.matchers...)
	if !ok {
		return nil, "missing item name"
	}

	category, reason := context, ""
	switch {
	case explicitCategory != "":
		if resolved, found := ResolveCategory(explicitCategory); found {
			category = resolved
		} else {
			category, reason = model.ReviewCategory, fmt.Sprintf("unknown category %q", explicitCategory)
		}
	case context != "":
	case unknownHeader != "":
		category, reason = model.ReviewCategory, fmt.Sprintf("unknown category %q", unknownHeader)
	default:
		category, reason = model.ReviewCategory, "no category context"
	}

	subcategory := ""
	if category != model.ReviewCategory {
		subcategory = InferSubcategory(category, name+" "+description)
	}

	cand := &Candidate{
		ID:          p.ids.New(brand, name),
		Name:        name,
		Brand:       brand,
		Category:    category,
		Subcategory: subcategory,
		Description: description,
		BrandSource: strategy,
	}
	if cand.Description == "" {
		cand.Description = PlaceholderDescription(brand, name, category, subcategory)
		cand.PlaceholderDescription = true
	}
	cand.Tags, cand.SoundTone, cand.SoundQualities, cand.TagSource = p.policy.Apply(tags)
	return cand, reason
}
