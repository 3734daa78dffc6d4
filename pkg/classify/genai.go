package classify

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/actionsum/sac/pkg/activity"
)

const (
	DefaultModel = "gemini-2.5-flash"

	maxLabelRunes = 48
)

const basePrompt = `You receive one or more consecutive screenshots of a user's screen.
Reply with a single short activity label in lowercase describing what the user is doing,
for example "coding", "watching video", "reading documentation", "writing email", "idle".
Reply with the label only, no punctuation and no explanation.`

// generator is the subset of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIClassifier asks a Gemini vision model for the activity label.
type GenAIClassifier struct {
	models generator
	model  string
	prompt string
}

// NewGenAI creates a classifier backed by the Gemini API. promptContext is
// appended to the instruction, see LoadPromptContext.
func NewGenAI(ctx context.Context, apiKey, model, promptContext string) (*GenAIClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GenAI client")
	}
	return newGenAI(client.Models, model, promptContext), nil
}

func newGenAI(models generator, model, promptContext string) *GenAIClassifier {
	if model == "" {
		model = DefaultModel
	}
	return &GenAIClassifier{
		models: models,
		model:  model,
		prompt: BuildPrompt(promptContext),
	}
}

// BuildPrompt returns the system instruction with optional context.
func BuildPrompt(promptContext string) string {
	promptContext = strings.TrimSpace(promptContext)
	if promptContext == "" {
		return basePrompt
	}
	return basePrompt + "\n\nContext about the user's work:\n" + promptContext
}

// Classify implements activity.Classifier.
func (c *GenAIClassifier) Classify(ctx context.Context, frames []activity.Frame) (string, error) {
	if len(frames) == 0 {
		return "", errors.New("no frames to classify")
	}

	parts := make([]*genai.Part, 0, len(frames)+1)
	for i, f := range frames {
		if f.Image == nil {
			return "", errors.Errorf("frame %d has no image", i)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, f.Image); err != nil {
			return "", errors.Wrapf(err, "failed to encode frame %d", i)
		}
		parts = append(parts, genai.NewPartFromBytes(buf.Bytes(), "image/png"))
	}
	parts = append(parts, genai.NewPartFromText("What is the user doing?"))

	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(c.prompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0),
			MaxOutputTokens:   32,
			ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
		})
	if err != nil {
		return "", errors.Wrap(err, "GenAI generate failed")
	}
	if resp == nil {
		return "", errors.New("GenAI returned no response")
	}

	label := NormalizeLabel(resp.Text())
	if label == "" {
		return "", errors.New("GenAI returned an empty label")
	}
	return label, nil
}

// NormalizeLabel keeps the first line of a model reply, lowercases it and
// strips quotes and trailing punctuation.
func NormalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "label:")
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	s = strings.Join(strings.Fields(s), " ")

	if runes := []rune(s); len(runes) > maxLabelRunes {
		s = strings.TrimSpace(string(runes[:maxLabelRunes]))
	}
	return s
}
