package services

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// openRouterTokenTTL bounds how long a resolved API credential is reused
// before it is re-read, so rotated keys are picked up without a restart.
const openRouterTokenTTL = 55 * time.Minute

// OpenRouterProvider is the alternate narrative provider, speaking the
// chat-completions dialect over plain HTTP.
type OpenRouterProvider struct {
	http    *resty.Client
	tokens  *TokenCache
	model   string
	baseURL string
}

func NewOpenRouterProvider(apiKey, model, baseURL string) (*OpenRouterProvider, error) {
	if strings.TrimSpace(apiKey) == "" && strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")) == "" {
		return nil, Errf(CodeConfigurationError, "OPENROUTER_API_KEY is not set")
	}

	tokens := NewTokenCache(openRouterTokenTTL, func(ctx context.Context) (string, error) {
		if key := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")); key != "" {
			return key, nil
		}
		if strings.TrimSpace(apiKey) != "" {
			return apiKey, nil
		}
		return "", Errf(CodeConfigurationError, "OPENROUTER_API_KEY is not set")
	})

	return &OpenRouterProvider{
		http:    resty.New().SetTimeout(0), // the orchestrator owns the deadline
		tokens:  tokens,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Name implements NarrativeProvider.
func (p *OpenRouterProvider) Name() string {
	return p.model
}

// Generate implements NarrativeProvider.
func (p *OpenRouterProvider) Generate(ctx context.Context, systemInstruction, userContent string) (string, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"model":       p.model,
			"temperature": 0,
			"messages": []map[string]string{
				{"role": "system", "content": systemInstruction},
				{"role": "user", "content": userContent},
			},
		}).
		Post(p.baseURL + "/chat/completions")
	if err != nil {
		return "", WrapErr(CodeProviderApiError, err, "chat completion request failed")
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		// The cached credential may be stale; drop it before surfacing.
		p.tokens.Invalidate()
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", Errf(CodeProviderApiError, "provider returned status %d: %s",
			resp.StatusCode(), truncateDetail(resp.String(), 512))
	}

	text := gjson.Get(resp.String(), "choices.0.message.content").String()
	if text == "" {
		return "", Errf(CodeProviderApiError, "provider returned an empty completion")
	}

	return text, nil
}
