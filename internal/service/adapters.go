package service

import (
	"context"

	"reelgen/internal/ai"
	"reelgen/internal/config"
	"reelgen/internal/model"
	"reelgen/internal/pkg/ffmpeg"
	"reelgen/internal/pkg/kie"
	"reelgen/internal/pkg/mux"
)

// LLM is the analysis + scripting capability.
type LLM interface {
	Analyze(ctx context.Context, readme string) (*model.ReadmeAnalysis, error)
	PlanScript(ctx context.Context, analysis *model.ReadmeAnalysis, opts ai.ScriptOptions) (*model.VideoScript, error)
}

// SceneRenderer is the asynchronous text-to-video backend. Submit
// returns an external job id; the pipeline polls it to a terminal state.
type SceneRenderer interface {
	Submit(ctx context.Context, prompt string) (string, error)
	Poll(ctx context.Context, jobID string) (*kie.RenderStatus, error)
}

// Merger joins ordered clips into one local file.
type Merger interface {
	Merge(ctx context.Context, videoURLs []string) (string, error)
	Cleanup(path string)
}

// Publisher ingests a video into the hosting provider and waits for it
// to become playable.
type Publisher interface {
	PublishFromURL(ctx context.Context, videoURL string) (*mux.Asset, error)
	PublishFromFile(ctx context.Context, path string) (*mux.Asset, error)
	WaitUntilReady(ctx context.Context, assetID string) error
}

// Adapters bundles the per-request adapter factories. Credentials are
// bring-your-own-key, so the LLM, renderer and publisher are constructed
// per job from the caller's secrets; the merger is shared.
type Adapters struct {
	NewLLM       func(ctx context.Context, provider, modelName, apiKey string) (LLM, error)
	NewRenderer  func(apiKey string, quality model.Quality) SceneRenderer
	NewPublisher func(tokenID, tokenSecret string) Publisher
	Merger       Merger
}

// DefaultAdapters wires the real backends from configuration.
func DefaultAdapters(cfg *config.Config) *Adapters {
	return &Adapters{
		NewLLM: func(ctx context.Context, provider, modelName, apiKey string) (LLM, error) {
			return ai.NewClient(ctx, provider, modelName, apiKey, &cfg.AI.Options, cfg.Pipeline.SceneSeconds)
		},
		NewRenderer: func(apiKey string, quality model.Quality) SceneRenderer {
			return kie.NewClient(apiKey, cfg.Render.BaseURL, quality)
		},
		NewPublisher: func(tokenID, tokenSecret string) Publisher {
			return mux.NewClient(tokenID, tokenSecret,
				mux.WithBaseURL(cfg.Publish.BaseURL),
				mux.WithPolling(cfg.Publish.PollAttempts, cfg.Publish.PollInterval))
		},
		Merger: ffmpeg.NewClient(),
	}
}
