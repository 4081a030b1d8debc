package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/inkwelldocs/inkwell/internal/core"
	"github.com/inkwelldocs/inkwell/internal/models"
)

const qaSystemPrompt = `You are an extractive question-answering engine.
Answer the question using only the provided context. Respond with a JSON
object {"answer": string, "confidence": number} where confidence is your
certainty in [0, 1]. If the context does not contain the answer, return
an empty answer with confidence 0.`

// GeminiQA answers a question against one context at a time. The preset
// picks the model: "" or "default" uses the fast model, "accurate" the
// higher-accuracy one. An unknown preset falls back to the default, the
// same way an unknown preset picked the base model upstream.
type GeminiQA struct {
	client        *genai.Client
	defaultModel  string
	accurateModel string
}

func NewGeminiQA(ctx context.Context, apiKey, defaultModel, accurateModel string) (*GeminiQA, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if defaultModel == "" {
		defaultModel = "gemini-1.5-flash"
	}
	if accurateModel == "" {
		accurateModel = "gemini-1.5-pro"
	}
	return &GeminiQA{client: cl, defaultModel: defaultModel, accurateModel: accurateModel}, nil
}

func (g *GeminiQA) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiQA) resolveModel(preset string) string {
	if strings.EqualFold(preset, "accurate") {
		return g.accurateModel
	}
	return g.defaultModel
}

func (g *GeminiQA) Answer(ctx context.Context, question, passage string, preset string) (models.QAAnswer, error) {
	m := g.client.GenerativeModel(g.resolveModel(preset))
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(qaSystemPrompt)},
	}
	m.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", passage, question)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return models.QAAnswer{}, fmt.Errorf("gemini answer: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return models.QAAnswer{}, nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	var parsed struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(b.String())), &parsed); err != nil {
		return models.QAAnswer{}, fmt.Errorf("gemini answer: malformed response: %w", err)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return models.QAAnswer{Answer: parsed.Answer, Score: parsed.Confidence}, nil
}

var _ core.QABackend = (*GeminiQA)(nil)
