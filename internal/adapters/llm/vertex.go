package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/driftnote/driftnote-agent/internal/domain"
)

type VertexClient struct {
	client    *genai.Client
	modelName string
}

// NewVertexClient creates an LLMClient backed by Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, projectID, location, modelName string) (*VertexClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("vertex: projectID and location are required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Complete implements domain.LLMClient using Vertex AI. Failures come back
// wrapped as *domain.ModelError.
func (v *VertexClient) Complete(ctx context.Context, systemPrompt, input string) (string, error) {
	temp := float32(0.7)
	topP := float32(0.9)
	outputTokens := int32(8192)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   outputTokens,
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", &domain.ModelError{Err: fmt.Errorf("vertex generate content: %w", err)}
	}

	text := res.Text()
	if text == "" {
		return "", &domain.ModelError{Err: fmt.Errorf("vertex returned empty text")}
	}

	return text, nil
}
