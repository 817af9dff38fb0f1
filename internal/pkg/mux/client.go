// Package mux is a client for the Mux video hosting API: asset creation
// from a URL, direct-upload for local files, and readiness polling.
package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"reelgen/internal/pkg/errs"
)

const defaultBaseURL = "https://api.mux.com"

// Asset is a published, streamable video.
type Asset struct {
	AssetID    string
	PlaybackID string
}

// Client calls the Mux API with one caller-supplied token pair.
type Client struct {
	baseURL      string
	tokenID      string
	tokenSecret  string
	pollInterval time.Duration
	pollAttempts int
	http         *http.Client
}

// Option adjusts a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithPolling overrides the asset-ready poll bounds.
func WithPolling(attempts int, interval time.Duration) Option {
	return func(c *Client) {
		c.pollAttempts = attempts
		c.pollInterval = interval
	}
}

// NewClient creates a Mux client from a token id/secret pair.
func NewClient(tokenID, tokenSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:      defaultBaseURL,
		tokenID:      tokenID,
		tokenSecret:  tokenSecret,
		pollInterval: 3 * time.Second,
		pollAttempts: 60,
		http:         &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type assetData struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlaybackIDs []struct {
		ID string `json:"id"`
	} `json:"playback_ids"`
}

// PublishFromURL ingests a remote video URL as a new asset.
func (c *Client) PublishFromURL(ctx context.Context, videoURL string) (*Asset, error) {
	payload := map[string]any{
		"input":           []map[string]string{{"url": videoURL}},
		"playback_policy": []string{"public"},
		"video_quality":   "basic",
	}

	var resp struct {
		Data assetData `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/video/v1/assets", payload, &resp); err != nil {
		return nil, err
	}
	return assetFromData(&resp.Data)
}

// PublishFromFile uploads a local file through the direct-upload flow:
// create an upload, PUT the bytes, then poll the upload until Mux has
// minted the asset.
func (c *Client) PublishFromFile(ctx context.Context, path string) (*Asset, error) {
	payload := map[string]any{
		"new_asset_settings": map[string]any{
			"playback_policy": []string{"public"},
			"video_quality":   "basic",
		},
		"cors_origin": "*",
	}

	var created struct {
		Data struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/video/v1/uploads", payload, &created); err != nil {
		return nil, err
	}

	if err := c.putFile(ctx, created.Data.URL, path); err != nil {
		return nil, err
	}

	// The upload's asset id appears once ingestion starts.
	assetID, err := c.waitForUploadAsset(ctx, created.Data.ID)
	if err != nil {
		return nil, err
	}

	asset, err := c.getAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return assetFromData(asset)
}

// WaitUntilReady polls an asset until it is playable. A bounded loop:
// exhausting it is a hard failure.
func (c *Client) WaitUntilReady(ctx context.Context, assetID string) error {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		asset, err := c.getAsset(ctx, assetID)
		if err != nil {
			return err
		}
		switch asset.Status {
		case "ready":
			return nil
		case "errored":
			return errs.Providerf("mux", "wait asset ready", "asset %s processing failed", assetID)
		}

		log.Debug().Str("asset_id", assetID).Str("status", asset.Status).Msg("asset not ready yet")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return errs.Timeout("mux", "wait asset ready", c.pollAttempts, c.pollInterval)
}

// StreamURL returns the HLS playback URL for a playback id.
func StreamURL(playbackID string) string {
	return fmt.Sprintf("https://stream.mux.com/%s.m3u8", playbackID)
}

func (c *Client) waitForUploadAsset(ctx context.Context, uploadID string) (string, error) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		var resp struct {
			Data struct {
				Status  string `json:"status"`
				AssetID string `json:"asset_id"`
			} `json:"data"`
		}
		if err := c.doJSON(ctx, http.MethodGet, "/video/v1/uploads/"+uploadID, nil, &resp); err != nil {
			return "", err
		}
		if resp.Data.AssetID != "" {
			return resp.Data.AssetID, nil
		}
		if resp.Data.Status == "errored" {
			return "", errs.Providerf("mux", "wait upload", "upload %s failed", uploadID)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return "", errs.Timeout("mux", "wait upload", c.pollAttempts, c.pollInterval)
}

func (c *Client) getAsset(ctx context.Context, assetID string) (*assetData, error) {
	var resp struct {
		Data assetData `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/video/v1/assets/"+assetID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) putFile(ctx context.Context, uploadURL, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errs.Provider("mux", "open upload file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errs.Provider("mux", "stat upload file", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return errs.Provider("mux", "create upload request", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "video/mp4")

	// Uploads can be large; no client timeout beyond the context.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return errs.Provider("mux", "upload file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errs.Providerf("mux", "upload file", "status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return errs.Provider("mux", "encode request", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errs.Provider("mux", "create request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Provider("mux", method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return errs.Providerf("mux", method+" "+path, "status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errs.Provider("mux", "decode response", err)
		}
	}
	return nil
}

func assetFromData(data *assetData) (*Asset, error) {
	if len(data.PlaybackIDs) == 0 || data.PlaybackIDs[0].ID == "" {
		return nil, errs.Providerf("mux", "create asset", "no playback id on asset %s", data.ID)
	}
	return &Asset{AssetID: data.ID, PlaybackID: data.PlaybackIDs[0].ID}, nil
}
