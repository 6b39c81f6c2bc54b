// Package describe writes catalogue descriptions for gear.
package describe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studiogear/internal/model"
	"studiogear/internal/parser"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Describer produces a short description for a gear record.
type Describer interface {
	Describe(ctx context.Context, gear model.Gear) (string, error)
}

// contentGenerator is the part of *genai.GenerativeModel we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiDescriber generates descriptions with a Gemini model.
type GeminiDescriber struct {
	client *genai.Client
	model  contentGenerator
}

// NewGeminiDescriber creates a describer for the named model.
func NewGeminiDescriber(ctx context.Context, apiKey, modelName string) (*GeminiDescriber, error) {
	if apiKey == "" {
		return nil, errors.New("generation api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	m := client.GenerativeModel(modelName)
	m.SetTemperature(0.4)
	m.SetMaxOutputTokens(256)
	return &GeminiDescriber{client: client, model: m}, nil
}

// Prompt is the instruction sent for gear.
func Prompt(gear model.Gear) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a two sentence catalogue description of the %s %s", gear.Brand, gear.Name)
	if gear.Subcategory != "" {
		fmt.Fprintf(&b, ", a %s %s", gear.Subcategory, gear.Category)
	} else if parser.IsCategory(gear.Category) {
		fmt.Fprintf(&b, ", a %s", gear.Category)
	}
	b.WriteString(", for a recording studio gear list.")
	if len(gear.SoundTone) > 0 {
		fmt.Fprintf(&b, " Its tone is described as %s.", strings.Join(gear.SoundTone, ", "))
	}
	b.WriteString(" Plain text only, no marketing superlatives.")
	return b.String()
}

func (d *GeminiDescriber) Describe(ctx context.Context, gear model.Gear) (string, error) {
	resp, err := d.model.GenerateContent(ctx, genai.Text(Prompt(gear)))
	if err != nil {
		return "", fmt.Errorf("description generation failed: %w", err)
	}
	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	desc := strings.TrimSpace(b.String())
	if desc == "" {
		return "", errors.New("description generation returned no text")
	}
	return desc, nil
}

// Close releases the underlying client.
func (d *GeminiDescriber) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

// TemplateDescriber builds descriptions from the record itself.
type TemplateDescriber struct{}

func (TemplateDescriber) Describe(_ context.Context, gear model.Gear) (string, error) {
	name := strings.TrimSpace(strings.TrimPrefix(gear.Brand+" "+gear.Name, parser.UnknownBrand+" "))
	var b strings.Builder
	b.WriteString("The ")
	b.WriteString(name)
	switch {
	case gear.Subcategory != "":
		fmt.Fprintf(&b, " is a %s %s", gear.Subcategory, gear.Category)
	case parser.IsCategory(gear.Category):
		fmt.Fprintf(&b, " is a %s", gear.Category)
	default:
		b.WriteString(" is awaiting classification")
	}
	if len(gear.SoundTone) > 0 {
		fmt.Fprintf(&b, " with a %s tone", strings.Join(gear.SoundTone, " and "))
	}
	b.WriteString(".")
	if len(gear.SoundQualities) > 0 {
		fmt.Fprintf(&b, " Known for being %s.", strings.Join(gear.SoundQualities, ", "))
	}
	return b.String(), nil
}

// Fallback tries Primary and uses Secondary when it fails.
type Fallback struct {
	Primary   Describer
	Secondary Describer
}

func (f Fallback) Describe(ctx context.Context, gear model.Gear) (string, error) {
	if f.Primary != nil {
		desc, err := f.Primary.Describe(ctx, gear)
		if err == nil {
			return desc, nil
		}
		if f.Secondary == nil {
			return "", err
		}
	}
	return f.Secondary.Describe(ctx, gear)
}
