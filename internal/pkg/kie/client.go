// Package kie is a client for the kie.ai text-to-video job API (Sora 2).
// Jobs are asynchronous: submit returns a task id, callers poll until a
// terminal state.
package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reelgen/internal/model"
	"reelgen/internal/pkg/errs"
)

const defaultBaseURL = "https://api.kie.ai/api/v1/jobs"

// qualityModels maps a quality tier to the backend model and its
// optional size parameter.
var qualityModels = map[model.Quality]struct {
	model string
	size  string
}{
	model.QualityBase:  {model: "sora-2-text-to-video"},
	model.QualityPro:   {model: "sora-2-pro-text-to-video", size: "standard"},
	model.QualityProHD: {model: "sora-2-pro-text-to-video", size: "high"},
}

// RenderState is a normalized job state.
type RenderState string

const (
	StatePending    RenderState = "pending"
	StateProcessing RenderState = "processing"
	StateSucceeded  RenderState = "succeeded"
	StateFailed     RenderState = "failed"
)

// RenderStatus is a normalized poll result.
type RenderStatus struct {
	State    RenderState
	VideoURL string // set when succeeded
	Error    string // set when failed
}

// Client calls the kie.ai job API with one caller-supplied key.
type Client struct {
	baseURL string
	apiKey  string
	quality model.Quality
	http    *http.Client
}

// NewClient creates a kie.ai client. baseURL may be empty for the
// public endpoint; quality defaults to base.
func NewClient(apiKey, baseURL string, quality model.Quality) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if quality == "" {
		quality = model.QualityBase
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		quality: quality,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Submit creates a render job for one scene prompt and returns the
// backend task id.
func (c *Client) Submit(ctx context.Context, prompt string) (string, error) {
	cfg := qualityModels[c.quality]

	input := map[string]any{
		"prompt":           prompt,
		"aspect_ratio":     "landscape",
		"n_frames":         "15",
		"remove_watermark": true,
	}
	if cfg.size != "" {
		input["size"] = cfg.size
	}
	payload := map[string]any{
		"model": cfg.model,
		"input": input,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", errs.Provider("kie", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createTask", bytes.NewReader(jsonData))
	if err != nil {
		return "", errs.Provider("kie", "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errs.Provider("kie", "submit task", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", errs.Providerf("kie", "submit task", "status %d: %s", resp.StatusCode, string(body))
	}

	// The API has shipped the task id under more than one shape.
	var apiResp struct {
		TaskID  string `json:"taskId"`
		TaskID2 string `json:"task_id"`
		ID      string `json:"id"`
		Data    struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", errs.Provider("kie", "decode response", err)
	}

	taskID := apiResp.TaskID
	if taskID == "" {
		taskID = apiResp.TaskID2
	}
	if taskID == "" {
		taskID = apiResp.ID
	}
	if taskID == "" {
		taskID = apiResp.Data.TaskID
	}
	if taskID == "" {
		return "", errs.Providerf("kie", "submit task", "no task id in response")
	}

	log.Debug().Str("task_id", taskID).Str("model", cfg.model).Msg("render job submitted")
	return taskID, nil
}

// Poll fetches the current state of a render job and normalizes it.
func (c *Client) Poll(ctx context.Context, taskID string) (*RenderStatus, error) {
	reqURL := fmt.Sprintf("%s/recordInfo?taskId=%s", c.baseURL, url.QueryEscape(taskID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Provider("kie", "create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Provider("kie", "poll task", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errs.Providerf("kie", "poll task", "status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Data json.RawMessage `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Provider("kie", "read response", err)
	}
	data := raw
	if err := json.Unmarshal(raw, &apiResp); err == nil && len(apiResp.Data) > 0 {
		data = apiResp.Data
	}

	var record struct {
		State      string          `json:"state"`
		Status     string          `json:"status"`
		ResultJSON json.RawMessage `json:"resultJson"`
		VideoURL   string          `json:"videoUrl"`
		FailMsg    string          `json:"failMsg"`
		Error      string          `json:"error"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errs.Provider("kie", "decode response", err)
	}

	rawState := record.State
	if rawState == "" {
		rawState = record.Status
	}

	status := &RenderStatus{State: normalizeState(rawState)}
	if status.State == StateSucceeded {
		status.VideoURL = extractVideoURL(record.ResultJSON, record.VideoURL)
		if status.VideoURL == "" {
			// Succeeded without an asset is useless to the pipeline.
			status.State = StateFailed
			status.Error = "job succeeded but returned no video url"
		}
	}
	if status.State == StateFailed && status.Error == "" {
		status.Error = record.FailMsg
		if status.Error == "" {
			status.Error = record.Error
		}
	}
	return status, nil
}

// normalizeState folds the state spellings the API has used into the
// four canonical ones.
func normalizeState(raw string) RenderState {
	switch strings.ToLower(raw) {
	case "success", "succeed", "succeeded", "completed", "complete":
		return StateSucceeded
	case "fail", "failed":
		return StateFailed
	case "processing", "generating", "running":
		return StateProcessing
	default:
		return StatePending
	}
}

// extractVideoURL digs the asset URL out of resultJson, which may be a
// JSON string or an embedded object, with fallback fields.
func extractVideoURL(resultJSON json.RawMessage, fallback string) string {
	if len(resultJSON) > 0 {
		data := resultJSON
		// resultJson is frequently double-encoded.
		var asString string
		if err := json.Unmarshal(resultJSON, &asString); err == nil {
			data = []byte(asString)
		}
		var result struct {
			ResultURLs []string `json:"resultUrls"`
			VideoURL   string   `json:"videoUrl"`
		}
		if err := json.Unmarshal(data, &result); err == nil {
			if len(result.ResultURLs) > 0 {
				return result.ResultURLs[0]
			}
			if result.VideoURL != "" {
				return result.VideoURL
			}
		}
	}
	return fallback
}
