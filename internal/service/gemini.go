package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"fastflix/internal/model"
)

const geminiSystemPrompt = `You recommend movies and TV shows. Reply with a JSON object of the form
{"recommendations":[{"title":"...","year":2010,"type":"movie|tv","reason":"one sentence"}]}.
Return at most 10 real, released titles. Write the reason in the requested language.`

// GeminiSuggester asks Gemini for suggestions through its OpenAI-compatible endpoint.
type GeminiSuggester struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewGeminiSuggester(apiKey, baseURL, modelName string, timeout time.Duration) *GeminiSuggester {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &GeminiSuggester{
		client:  openai.NewClientWithConfig(cfg),
		model:   modelName,
		timeout: timeout,
	}
}

func (g *GeminiSuggester) Suggest(ctx context.Context, req *model.SearchRequest) ([]model.Suggestion, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: geminiSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("gemini: %w", model.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("gemini: empty response")
	}

	return parseSuggestions(resp.Choices[0].Message.Content)
}

func buildPrompt(req *model.SearchRequest) string {
	var kinds []string
	if req.IncludeMovies {
		kinds = append(kinds, "movies")
	}
	if req.IncludeTVShows {
		kinds = append(kinds, "TV shows")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend %s for: %s\n", strings.Join(kinds, " and "), req.Query)
	if req.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", req.Language)
	}
	if req.Country != "" {
		fmt.Fprintf(&b, "Viewer country: %s\n", req.Country)
	}
	return b.String()
}

// parseSuggestions tolerates a fenced code block around the JSON.
func parseSuggestions(content string) ([]model.Suggestion, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload struct {
		Recommendations []model.Suggestion `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return nil, fmt.Errorf("gemini: decode suggestions: %w", err)
	}
	return payload.Recommendations, nil
}
