// Package ai implements the two LLM capabilities the pipeline needs:
// README analysis and scene-script planning. Both ride one eino
// ChatModel created per request from the caller's provider choice and
// API key.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"reelgen/internal/ai/component"
	"reelgen/internal/config"
	"reelgen/internal/model"
	"reelgen/internal/pkg/errs"
)

// ScriptOptions control the scripting stage.
type ScriptOptions struct {
	Style    model.Style
	Duration int // total seconds: 15, 30 or 60
}

// Client wraps one ChatModel with the analyze/plan prompts.
type Client struct {
	chatModel    einomodel.ChatModel
	provider     string
	sceneSeconds int
}

// NewClient creates an LLM client for one request. provider selects the
// backend, apiKey is the caller's key (BYOK), modelName may be empty.
func NewClient(ctx context.Context, provider, modelName, apiKey string, opts *config.AIOptionsConfig, sceneSeconds int) (*Client, error) {
	chatModel, err := component.NewChatModel(ctx, provider, modelName, apiKey, opts)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	if sceneSeconds <= 0 {
		sceneSeconds = 15
	}
	return &Client{chatModel: chatModel, provider: provider, sceneSeconds: sceneSeconds}, nil
}

// Analyze extracts a structured summary from README text.
func (c *Client) Analyze(ctx context.Context, readme string) (*model.ReadmeAnalysis, error) {
	content, err := c.generate(ctx, analyzePrompt, readme)
	if err != nil {
		return nil, errs.Provider(c.provider, "analyze readme", err)
	}

	var analysis model.ReadmeAnalysis
	if err := unmarshalLLMJSON(content, &analysis); err != nil {
		return nil, errs.Provider(c.provider, "parse readme analysis", err)
	}
	if analysis.ProjectName == "" {
		return nil, errs.Providerf(c.provider, "parse readme analysis", "missing project_name")
	}
	return &analysis, nil
}

// PlanScript turns an analysis into an ordered scene script. The scene
// count is fixed at ceil(duration / sceneSeconds); a script that comes
// back with the wrong count or non-contiguous scene numbers is rejected.
func (c *Client) PlanScript(ctx context.Context, analysis *model.ReadmeAnalysis, opts ScriptOptions) (*model.VideoScript, error) {
	numScenes := (opts.Duration + c.sceneSeconds - 1) / c.sceneSeconds

	input, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, errs.Provider(c.provider, "encode analysis", err)
	}

	content, err := c.generate(ctx, scriptPrompt(opts, numScenes, c.sceneSeconds), string(input))
	if err != nil {
		return nil, errs.Provider(c.provider, "generate script", err)
	}

	var script model.VideoScript
	if err := unmarshalLLMJSON(content, &script); err != nil {
		return nil, errs.Provider(c.provider, "parse script", err)
	}
	if err := ValidateScript(&script, numScenes); err != nil {
		return nil, errs.Provider(c.provider, "validate script", err)
	}
	return &script, nil
}

func (c *Client) generate(ctx context.Context, system, user string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	response, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat model generate: %w", err)
	}
	if response.Content == "" {
		return "", fmt.Errorf("empty response from chat model")
	}
	return response.Content, nil
}

// ValidateScript checks a script for the contract the pipeline relies
// on: wantScenes scenes numbered contiguously 1..N with non-empty
// prompts.
func ValidateScript(script *model.VideoScript, wantScenes int) error {
	if len(script.Scenes) != wantScenes {
		return fmt.Errorf("expected %d scenes, got %d", wantScenes, len(script.Scenes))
	}
	for i, sc := range script.Scenes {
		if sc.SceneNumber != i+1 {
			return fmt.Errorf("scene %d has number %d, want %d", i, sc.SceneNumber, i+1)
		}
		if strings.TrimSpace(sc.Prompt) == "" {
			return fmt.Errorf("scene %d has an empty prompt", sc.SceneNumber)
		}
	}
	return nil
}

// unmarshalLLMJSON parses LLM output as JSON, tolerating the markdown
// code fences some models wrap around it despite instructions.
func unmarshalLLMJSON(content string, v any) error {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("invalid JSON from model: %w", err)
	}
	return nil
}
