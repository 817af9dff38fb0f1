// Package component builds eino ChatModels for the supported LLM
// backends. OpenRouter and Gemini are reached through their
// OpenAI-compatible endpoints, so they share the openai component.
package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"reelgen/internal/config"
)

// Default models per provider when the request omits one.
var defaultModels = map[string]string{
	"openai":     "gpt-4o",
	"openrouter": "google/gemini-2.0-flash-exp:free",
	"gemini":     "gemini-2.5-flash",
	"ark":        "doubao-seed-1-6-flash-250615",
}

// OpenAI-compatible base URLs for providers that ride the openai
// component.
const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	geminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai"
	arkBaseURL        = "https://ark.cn-beijing.volces.com/api/v3"
)

// DefaultModel returns the fallback model name for a provider.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// NewChatModel creates a ChatModel for the given provider with a
// caller-supplied API key. opts carries the server-side sampling
// defaults.
func NewChatModel(ctx context.Context, provider, modelName, apiKey string, opts *config.AIOptionsConfig) (model.ChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if modelName == "" {
		modelName = DefaultModel(provider)
	}

	switch provider {
	case "openai", "":
		return newOpenAICompatModel(ctx, modelName, apiKey, "", opts)
	case "openrouter":
		return newOpenAICompatModel(ctx, modelName, apiKey, openRouterBaseURL, opts)
	case "gemini":
		return newOpenAICompatModel(ctx, modelName, apiKey, geminiBaseURL, opts)
	case "ark":
		return newArkChatModel(ctx, modelName, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

func newOpenAICompatModel(ctx context.Context, modelName, apiKey, baseURL string, opts *config.AIOptionsConfig) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: apiKey,
	}
	if baseURL != "" {
		modelCfg.BaseURL = baseURL
	}

	if opts != nil {
		if opts.Temperature > 0 {
			temp := float32(opts.Temperature)
			modelCfg.Temperature = &temp
		}
		if opts.MaxTokens > 0 {
			maxTokens := opts.MaxTokens
			modelCfg.MaxTokens = &maxTokens
		}
		if opts.TopP > 0 {
			topP := float32(opts.TopP)
			modelCfg.TopP = &topP
		}
	}

	return openai.NewChatModel(ctx, modelCfg)
}

func newArkChatModel(ctx context.Context, modelName, apiKey string, opts *config.AIOptionsConfig) (model.ChatModel, error) {
	modelCfg := &arkext.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		BaseURL: arkBaseURL,
	}

	if opts != nil {
		if opts.Temperature > 0 {
			temp := float32(opts.Temperature)
			modelCfg.Temperature = &temp
		}
		if opts.MaxTokens > 0 {
			maxTokens := opts.MaxTokens
			modelCfg.MaxTokens = &maxTokens
		}
		if opts.TopP > 0 {
			topP := float32(opts.TopP)
			modelCfg.TopP = &topP
		}
	}

	return arkext.NewChatModel(ctx, modelCfg)
}
