package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider is the primary narrative provider. It also serves as the
// embedder for market-context retrieval.
type GeminiProvider struct {
	client     *genai.Client
	modelName  string
	embedModel string
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, Errf(CodeConfigurationError, "GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, WrapErr(CodeConfigurationError, err, "failed to create gemini client")
	}

	return &GeminiProvider{
		client:     client,
		modelName:  modelName,
		embedModel: "text-embedding-004",
	}, nil
}

// Name implements NarrativeProvider.
func (g *GeminiProvider) Name() string {
	return g.modelName
}

// Generate implements NarrativeProvider. Temperature 0 and a JSON response
// MIME type keep the output as deterministic as the provider allows.
func (g *GeminiProvider) Generate(ctx context.Context, systemInstruction, userContent string) (string, error) {
	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		MaxOutputTokens:   8192,
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(userContent), config)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", WrapErr(CodeProviderApiError, err,
				fmt.Sprintf("gemini returned status %d: %s", apiErr.Code, truncateDetail(apiErr.Message, 512)))
		}
		return "", WrapErr(CodeProviderApiError, err, "gemini call failed")
	}

	if resp == nil {
		return "", Errf(CodeProviderApiError, "gemini returned a nil response")
	}

	text := resp.Text()
	if text == "" {
		return "", Errf(CodeProviderApiError, "gemini returned no text content")
	}

	return text, nil
}

// EmbedText implements Embedder for market-context retrieval.
func (g *GeminiProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	// Guard against oversized inputs for the embedding model.
	if len(text) > 40000 {
		text = text[:40000]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}
