package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tickerpulse/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIClassifier is the primary domain classifier: a batched chat
// completion that returns a strict JSON array of 3-way distributions.
type OpenAIClassifier struct {
	client chatClient
	model  string
}

// NewOpenAIClassifier returns nil when no API key is configured, which
// routes the whole pipeline onto the deterministic fallback.
func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClassifier{client: &openAIChat{client: client}, model: model}
}

func (c *OpenAIClassifier) ClassifyBatch(ctx context.Context, docs []domain.Document) ([]domain.SentimentResult, error) {
	if c == nil || c.client == nil || len(docs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("id=%s\n", doc.ID))
		sb.WriteString(fmt.Sprintf("text=%s\n\n", strings.TrimSpace(doc.Text)))
	}

	systemPrompt := "You classify the sentiment of short financial text. Return ONLY a JSON array. Each object requires: id (string), prob_pos (0..1), prob_neg (0..1), prob_neu (0..1). The three probabilities must sum to 1. No markdown."
	userPrompt := "Documents:\n" + sb.String()

	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty classifier completion")
	}

	raw := trimCodeFence(completion.Choices[0].Message.Content)

	var parsed []struct {
		ID      string  `json:"id"`
		ProbPos float64 `json:"prob_pos"`
		ProbNeg float64 `json:"prob_neg"`
		ProbNeu float64 `json:"prob_neu"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse classifier json: %w", err)
	}

	known := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		known[doc.ID] = struct{}{}
	}

	out := make([]domain.SentimentResult, 0, len(parsed))
	for _, row := range parsed {
		if _, ok := known[row.ID]; !ok {
			continue
		}
		out = append(out, domain.SentimentResult{
			DocumentID:   row.ID,
			ProbPositive: row.ProbPos,
			ProbNegative: row.ProbNeg,
			ProbNeutral:  row.ProbNeu,
			Score:        row.ProbPos - row.ProbNeg,
			Method:       domain.SentimentPrimary,
		})
	}
	return out, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

type openAIChat struct {
	client openai.Client
}

func (c *openAIChat) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
