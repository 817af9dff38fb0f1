// Package service drives one video job through its stages: analyze the
// README, plan a scene script, render every scene through the
// text-to-video backend, then merge and publish the result. The pipeline
// is the only writer of a job's mutable state; every transition goes
// through the job store, which fans it out to stream subscribers.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"reelgen/internal/ai"
	"reelgen/internal/config"
	"reelgen/internal/model"
	"reelgen/internal/pkg/errs"
	"reelgen/internal/pkg/kie"
	"reelgen/internal/pkg/mux"
	"reelgen/internal/store"
)

// RunRequest is everything one pipeline run needs. Credentials live only
// here and in the adapters built from them.
type RunRequest struct {
	JobID       string
	Readme      string
	Style       model.Style
	Duration    int
	Quality     model.Quality
	Provider    string
	Model       string
	Credentials model.Credentials
}

// Pipeline orchestrates video jobs against a job store and a set of
// adapter factories.
type Pipeline struct {
	jobs     *store.Jobs
	adapters *Adapters

	submitDelay  time.Duration
	pollInterval time.Duration
	pollAttempts int
}

// NewPipeline creates a pipeline.
func NewPipeline(jobs *store.Jobs, adapters *Adapters, cfg *config.Config) *Pipeline {
	return &Pipeline{
		jobs:         jobs,
		adapters:     adapters,
		submitDelay:  cfg.Render.SubmitDelay,
		pollInterval: cfg.Render.PollInterval,
		pollAttempts: cfg.Render.PollAttempts,
	}
}

// Start launches a run on its own goroutine. The pipeline is the error
// boundary for the whole job: panics and errors both land in the job's
// error status, never in the caller.
func (p *Pipeline) Start(req RunRequest) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("job_id", req.JobID).
					Msg("pipeline panicked")
				p.jobs.SetStatus(req.JobID, model.StatusError, fmt.Sprintf("internal error: %v", r))
			}
		}()

		if err := p.Run(context.Background(), req); err != nil {
			log.Error().Err(err).Str("job_id", req.JobID).Msg("pipeline failed")
			p.jobs.SetStatus(req.JobID, model.StatusError, err.Error())
		}
	}()
}

// Run executes the stages in order and returns the first failure. State
// transitions are written to the job store as each stage completes.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) error {
	// Stage 1: analyze.
	log.Info().Str("job_id", req.JobID).Msg("analyzing readme")
	p.jobs.SetStatus(req.JobID, model.StatusAnalyzing, "")

	llm, err := p.adapters.NewLLM(ctx, req.Provider, req.Model, req.Credentials.LLMAPIKey)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	analysis, err := llm.Analyze(ctx, req.Readme)
	if err != nil {
		return err
	}
	p.jobs.SetAnalysis(req.JobID, analysis)
	log.Info().Str("job_id", req.JobID).Str("project", analysis.ProjectName).Msg("analysis complete")

	// Stage 2: script.
	p.jobs.SetStatus(req.JobID, model.StatusScripting, "")
	script, err := llm.PlanScript(ctx, analysis, ai.ScriptOptions{Style: req.Style, Duration: req.Duration})
	if err != nil {
		return err
	}
	p.jobs.SetScript(req.JobID, script)
	log.Info().Str("job_id", req.JobID).Int("scenes", len(script.Scenes)).Msg("script generated")

	// Stage 3: render scenes.
	p.jobs.SetStatus(req.JobID, model.StatusGenerating, "")
	renderer := p.adapters.NewRenderer(req.Credentials.KieAPIKey, req.Quality)
	if err := p.renderScenes(ctx, req.JobID, renderer, script); err != nil {
		return err
	}

	// Stage 4: merge and publish.
	p.jobs.SetStatus(req.JobID, model.StatusFinalizing, "")
	publisher := p.adapters.NewPublisher(req.Credentials.MuxTokenID, req.Credentials.MuxTokenSecret)
	return p.finalize(ctx, req.JobID, publisher)
}

// renderScenes submits one render job per scene in ascending scene
// order, pausing between submissions to stay under the backend's rate
// limits, then waits for each job in the same order. One failed scene
// fails the whole run immediately.
func (p *Pipeline) renderScenes(ctx context.Context, jobID string, renderer SceneRenderer, script *model.VideoScript) error {
	type submitted struct {
		sceneNumber int
		renderJobID string
	}

	tasks := make([]submitted, 0, len(script.Scenes))
	for i, scene := range script.Scenes {
		log.Info().Str("job_id", jobID).Int("scene", scene.SceneNumber).Msg("submitting render job")
		renderJobID, err := renderer.Submit(ctx, scene.Prompt)
		if err != nil {
			p.jobs.SetSceneStatus(jobID, scene.SceneNumber, model.SceneStatusFailed, "")
			return fmt.Errorf("scene %d: %w", scene.SceneNumber, err)
		}
		p.jobs.SetSceneJobID(jobID, scene.SceneNumber, renderJobID)
		tasks = append(tasks, submitted{sceneNumber: scene.SceneNumber, renderJobID: renderJobID})

		if i < len(script.Scenes)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.submitDelay):
			}
		}
	}

	for _, task := range tasks {
		log.Info().Str("job_id", jobID).Int("scene", task.sceneNumber).
			Str("render_job_id", task.renderJobID).Msg("waiting for scene")

		videoURL, err := p.waitForRender(ctx, renderer, task.renderJobID)
		if err != nil {
			p.jobs.SetSceneStatus(jobID, task.sceneNumber, model.SceneStatusFailed, "")
			return fmt.Errorf("scene %d: %w", task.sceneNumber, err)
		}
		p.jobs.SetSceneStatus(jobID, task.sceneNumber, model.SceneStatusReady, videoURL)
		log.Info().Str("job_id", jobID).Int("scene", task.sceneNumber).Msg("scene ready")
	}
	return nil
}

// waitForRender polls one render job to a terminal state, bounded by the
// configured attempts. A transport error mid-poll is logged and treated
// the same as still-pending; only an explicit failed state or exhausted
// attempts are terminal failures.
func (p *Pipeline) waitForRender(ctx context.Context, renderer SceneRenderer, renderJobID string) (string, error) {
	for attempt := 0; attempt < p.pollAttempts; attempt++ {
		status, err := renderer.Poll(ctx, renderJobID)
		if err != nil {
			log.Warn().Err(err).Str("render_job_id", renderJobID).Msg("poll failed, retrying")
		} else {
			switch status.State {
			case kie.StateSucceeded:
				return status.VideoURL, nil
			case kie.StateFailed:
				msg := status.Error
				if msg == "" {
					msg = "render job failed"
				}
				return "", errs.Providerf("kie", "render", "%s", msg)
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
	return "", errs.Timeout("kie", "render", p.pollAttempts, p.pollInterval)
}

// finalize reads the ready clips back from the store in scene order,
// merges them (skipped for a single scene), publishes the result and
// records it. The merged local file is removed on every path out.
func (p *Pipeline) finalize(ctx context.Context, jobID string, publisher Publisher) error {
	if !p.jobs.AllScenesReady(jobID) {
		return fmt.Errorf("not all scenes are ready")
	}
	videoURLs := p.jobs.SceneVideoURLs(jobID)
	if len(videoURLs) == 0 {
		return fmt.Errorf("no scene videos to publish")
	}

	var (
		asset     *mux.Asset
		err       error
		mergePath string
	)
	defer func() {
		if mergePath != "" {
			p.adapters.Merger.Cleanup(mergePath)
		}
	}()

	if len(videoURLs) > 1 {
		log.Info().Str("job_id", jobID).Int("clips", len(videoURLs)).Msg("merging scene videos")
		mergePath, err = p.adapters.Merger.Merge(ctx, videoURLs)
		if err != nil {
			return err
		}
		asset, err = publisher.PublishFromFile(ctx, mergePath)
	} else {
		asset, err = publisher.PublishFromURL(ctx, videoURLs[0])
	}
	if err != nil {
		return err
	}
	log.Info().Str("job_id", jobID).Str("asset_id", asset.AssetID).Msg("asset created")

	if err := publisher.WaitUntilReady(ctx, asset.AssetID); err != nil {
		return err
	}

	p.jobs.SetResult(jobID, asset.AssetID, asset.PlaybackID, mux.StreamURL(asset.PlaybackID))
	log.Info().Str("job_id", jobID).Str("playback_id", asset.PlaybackID).Msg("video ready")
	return nil
}
