package ai

import (
	"context"
	"fmt"
	"unicode/utf8"

	"google.golang.org/genai"
)

// TokenCounter estimates how many input tokens content will cost.
type TokenCounter interface {
	CountTokens(ctx context.Context, content Content) (int, error)
}

// HeuristicTokenCounter assumes a fixed number of characters per token. It
// is used when no Vertex AI project is configured.
type HeuristicTokenCounter struct {
	CharsPerToken int
}

func (h HeuristicTokenCounter) CountTokens(_ context.Context, content Content) (int, error) {
	per := h.CharsPerToken
	if per <= 0 {
		per = 4
	}
	chars := 0
	for _, p := range content.Parts {
		chars += utf8.RuneCountInString(p.Text)
	}
	return (chars + per - 1) / per, nil
}

// GenAITokenCounter asks Vertex AI to count tokens for the configured model.
type GenAITokenCounter struct {
	client *genai.Client
	model  string
}

func NewGenAITokenCounter(ctx context.Context, project, location, model string) (*GenAITokenCounter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client failed: %w", err)
	}
	return &GenAITokenCounter{client: client, model: model}, nil
}

func (c *GenAITokenCounter) CountTokens(ctx context.Context, content Content) (int, error) {
	parts := make([]*genai.Part, 0, len(content.Parts))
	for _, p := range content.Parts {
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.CountTokens(ctx, c.model, contents, nil)
	if err != nil {
		return 0, fmt.Errorf("count tokens failed: %w", err)
	}
	return int(resp.TotalTokens), nil
}
