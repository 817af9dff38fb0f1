package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"reelgen/internal/model"
	"reelgen/internal/pkg/github"
	"reelgen/internal/service"
	"reelgen/internal/store"
)

// PipelineStarter launches one detached pipeline run.
type PipelineStarter interface {
	Start(req service.RunRequest)
}

// VideoHandler owns the video-generation API surface.
type VideoHandler struct {
	jobs     *store.Jobs
	pipeline PipelineStarter
	github   *github.Client
}

// NewVideoHandler creates the handler.
func NewVideoHandler(jobs *store.Jobs, pipeline PipelineStarter) *VideoHandler {
	return &VideoHandler{
		jobs:     jobs,
		pipeline: pipeline,
		github:   github.NewClient(),
	}
}

// Create accepts a generation request, starts the pipeline detached and
// returns the job id immediately. It never blocks on the pipeline.
func (h *VideoHandler) Create(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid request",
			Details: err.Error(),
		})
		return
	}

	readme := req.Content
	if req.Source == "url" {
		if !github.IsValidRepoURL(req.Content) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error: "invalid GitHub URL",
			})
			return
		}
		fetched, err := h.github.FetchReadme(c.Request.Context(), req.Content)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error:   "failed to fetch README",
				Details: err.Error(),
			})
			return
		}
		readme = fetched
	}

	if req.Quality == "" {
		req.Quality = model.QualityBase
	}

	v := h.jobs.Create(readme)

	h.pipeline.Start(service.RunRequest{
		JobID:       v.ID,
		Readme:      readme,
		Style:       req.Style,
		Duration:    req.Duration,
		Quality:     req.Quality,
		Provider:    req.Provider,
		Model:       req.Model,
		Credentials: req.Credentials,
	})

	c.JSON(http.StatusAccepted, model.GenerateResponse{
		ID:      v.ID,
		Message: "video generation started",
	})
}

// Get returns the current job snapshot.
func (h *VideoHandler) Get(c *gin.Context) {
	v, ok := h.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "video not found"})
		return
	}
	c.JSON(http.StatusOK, v)
}

// Events streams job snapshots as server-sent events: the current state
// immediately, then one event per change, closing after a terminal
// status or when the client disconnects. The subscription is released on
// both paths.
func (h *VideoHandler) Events(c *gin.Context) {
	jobID := c.Param("id")
	v, ok := h.jobs.Get(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "video not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("message", v)
	c.Writer.Flush()
	if v.Status.Terminal() {
		return
	}

	updates := make(chan *model.Video, 16)
	unsubscribe := h.jobs.Subscribe(jobID, func(snapshot *model.Video) {
		// Never block the store; a slow client drops the oldest
		// pending snapshot, the latest (including the terminal one)
		// always gets through.
		for {
			select {
			case updates <- snapshot:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer unsubscribe()

	// The pipeline may have written the terminal transition between the
	// snapshot above and the subscription; re-read so the stream still
	// closes instead of waiting on a channel nothing will feed.
	cur, ok := h.jobs.Get(jobID)
	if !ok {
		return
	}
	if cur.Status.Terminal() {
		c.SSEvent("message", cur)
		c.Writer.Flush()
		return
	}

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case snapshot := <-updates:
			c.SSEvent("message", snapshot)
			return !snapshot.Status.Terminal()
		}
	})
}

// RenderCallback is the deprecated push notification from the render
// backend. It updates the matching scene opportunistically but never
// drives finalization: under per-request credentials the callback has no
// way to recover the keys the rest of the pipeline needs. Unknown job
// ids are accepted as a no-op.
func (h *VideoHandler) RenderCallback(c *gin.Context) {
	var payload model.RenderCallback
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid callback payload",
			Details: err.Error(),
		})
		return
	}

	jobID, sceneNumber, ok := h.jobs.FindByJobID(payload.TaskID)
	if !ok {
		log.Warn().Str("task_id", payload.TaskID).Msg("callback for unknown render job")
		c.JSON(http.StatusOK, gin.H{"message": "OK"})
		return
	}

	switch payload.Status {
	case "succeed", "succeeded":
		videoURL := ""
		if payload.Output != nil {
			videoURL = payload.Output.VideoURL
		}
		if videoURL != "" {
			h.jobs.SetSceneStatus(jobID, sceneNumber, model.SceneStatusReady, videoURL)
		}
	case "failed":
		h.jobs.SetSceneStatus(jobID, sceneNumber, model.SceneStatusFailed, "")
	}

	log.Info().Str("job_id", jobID).Int("scene", sceneNumber).
		Str("status", payload.Status).Msg("render callback processed")
	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}
