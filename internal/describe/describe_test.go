package describe

import (
	"context"
	"errors"
	"testing"

	"studiogear/internal/model"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, parts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

type MockDescriber struct {
	mock.Mock
}

func (m *MockDescriber) Describe(ctx context.Context, gear model.Gear) (string, error) {
	args := m.Called(ctx, gear)
	return args.String(0), args.Error(1)
}

var sm57 = model.Gear{
	ID: "sm57", Brand: "Shure", Name: "SM57", Category: "microphone", Subcategory: "dynamic",
	SoundTone: []string{"punchy", "mid-forward"}, SoundQualities: []string{"durable"},
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestGeminiDescriber(t *testing.T) {
	t.Run("joins text parts", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("GenerateContent", mock.Anything, []genai.Part{genai.Text(Prompt(sm57))}).
			Return(textResponse(genai.Text(" A dynamic mic. "), genai.Text("Built to last.")), nil)

		d := &GeminiDescriber{model: gen}
		desc, err := d.Describe(context.Background(), sm57)
		require.NoError(t, err)
		assert.Equal(t, "A dynamic mic. Built to last.", desc)
		gen.AssertExpectations(t)
	})

	t.Run("empty response is an error", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("GenerateContent", mock.Anything, mock.Anything).Return(&genai.GenerateContentResponse{}, nil)
		_, err := (&GeminiDescriber{model: gen}).Describe(context.Background(), sm57)
		assert.Error(t, err)
	})

	t.Run("api error is wrapped", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))
		_, err := (&GeminiDescriber{model: gen}).Describe(context.Background(), sm57)
		assert.ErrorContains(t, err, "quota")
	})

	t.Run("requires api key", func(t *testing.T) {
		_, err := NewGeminiDescriber(context.Background(), "", "gemini-1.5-flash")
		assert.Error(t, err)
	})
}

func TestPrompt(t *testing.T) {
	p := Prompt(sm57)
	assert.Contains(t, p, "Shure SM57")
	assert.Contains(t, p, "dynamic microphone")
	assert.Contains(t, p, "punchy, mid-forward")
}

func TestTemplateDescriber(t *testing.T) {
	desc, err := TemplateDescriber{}.Describe(context.Background(), sm57)
	require.NoError(t, err)
	assert.Equal(t, "The Shure SM57 is a dynamic microphone with a punchy and mid-forward tone. Known for being durable.", desc)

	desc, err = TemplateDescriber{}.Describe(context.Background(), model.Gear{Brand: "Unknown", Name: "Widget", Category: model.ReviewCategory})
	require.NoError(t, err)
	assert.Equal(t, "The Widget is awaiting classification.", desc)
}

func TestFallback(t *testing.T) {
	primary := new(MockDescriber)
	primary.On("Describe", mock.Anything, sm57).Return("", errors.New("down"))

	desc, err := Fallback{Primary: primary, Secondary: TemplateDescriber{}}.Describe(context.Background(), sm57)
	require.NoError(t, err)
	assert.Contains(t, desc, "The Shure SM57")

	_, err = Fallback{Primary: primary}.Describe(context.Background(), sm57)
	assert.ErrorContains(t, err, "down")
}
