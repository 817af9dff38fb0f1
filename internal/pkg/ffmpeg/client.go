// Package ffmpeg wraps the ffmpeg/ffprobe binaries for clip merging.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reelgen/internal/pkg/errs"
)

// crossfadeSeconds is the transition length between consecutive clips.
const crossfadeSeconds = 0.5

// Client shells out to ffmpeg and ffprobe. Paths default to $PATH
// lookups and can be overridden with FFMPEG_PATH / FFPROBE_PATH.
type Client struct {
	ffmpegPath  string
	ffprobePath string
	http        *http.Client
}

// NewClient creates an ffmpeg client.
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		http:        &http.Client{Timeout: 5 * time.Minute},
	}
}

// Merge downloads the clips in order and produces one continuous local
// file. A single URL degenerates to a plain download. Multiple clips are
// joined with short cross-fades, falling back to hard concatenation when
// the transition encode fails. The caller releases the result with
// Cleanup; the temp workspace is removed here on every error path.
func (c *Client) Merge(ctx context.Context, videoURLs []string) (string, error) {
	if len(videoURLs) == 0 {
		return "", errs.Providerf("ffmpeg", "merge", "no videos to merge")
	}

	workDir, err := os.MkdirTemp("", "reelgen_merge_*")
	if err != nil {
		return "", errs.Provider("ffmpeg", "create temp dir", err)
	}

	outputPath, err := c.mergeInto(ctx, workDir, videoURLs)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return "", err
	}
	return outputPath, nil
}

// Cleanup removes a merged file and its temp workspace.
func (c *Client) Cleanup(path string) {
	if path == "" {
		return
	}
	dir := filepath.Dir(path)
	if strings.Contains(filepath.Base(dir), "reelgen_merge_") {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove merge workspace")
		}
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove merged file")
	}
}

func (c *Client) mergeInto(ctx context.Context, workDir string, videoURLs []string) (string, error) {
	localFiles := make([]string, 0, len(videoURLs))
	for i, u := range videoURLs {
		path := filepath.Join(workDir, fmt.Sprintf("clip_%02d.mp4", i))
		log.Debug().Int("index", i).Int("total", len(videoURLs)).Msg("downloading clip")
		if err := c.download(ctx, u, path); err != nil {
			return "", err
		}
		localFiles = append(localFiles, path)
	}

	if len(localFiles) == 1 {
		return localFiles[0], nil
	}

	outputPath := filepath.Join(workDir, "output.mp4")

	if err := c.crossfadeConcat(ctx, localFiles, outputPath); err != nil {
		log.Warn().Err(err).Msg("cross-fade merge failed, falling back to hard concat")
		if err := c.hardConcat(ctx, workDir, localFiles, outputPath); err != nil {
			return "", err
		}
	}
	return outputPath, nil
}

// crossfadeConcat chains xfade filters across the clips. Requires a
// re-encode and per-clip durations for the fade offsets.
func (c *Client) crossfadeConcat(ctx context.Context, files []string, outputPath string) error {
	durations := make([]float64, len(files))
	for i, f := range files {
		d, err := c.Duration(ctx, f)
		if err != nil {
			return err
		}
		if d <= crossfadeSeconds {
			return errs.Providerf("ffmpeg", "crossfade", "clip %d too short (%.2fs)", i, d)
		}
		durations[i] = d
	}

	args := []string{"-y"}
	for _, f := range files {
		args = append(args, "-i", f)
	}

	// [0][1]xfade=...[v01]; [v01][2]xfade=...[v02]; ...
	var filter strings.Builder
	prev := "[0:v]"
	offset := 0.0
	for i := 1; i < len(files); i++ {
		offset += durations[i-1] - crossfadeSeconds
		out := fmt.Sprintf("[v%02d]", i)
		fmt.Fprintf(&filter, "%s[%d:v]xfade=transition=fade:duration=%.2f:offset=%.2f%s;",
			prev, i, crossfadeSeconds, offset, out)
		prev = out
	}
	// Audio gets the same treatment with acrossfade.
	prevA := "[0:a]"
	for i := 1; i < len(files); i++ {
		out := fmt.Sprintf("[a%02d]", i)
		fmt.Fprintf(&filter, "%s[%d:a]acrossfade=d=%.2f%s;", prevA, i, crossfadeSeconds, out)
		prevA = out
	}
	filterGraph := strings.TrimSuffix(filter.String(), ";")

	args = append(args,
		"-filter_complex", filterGraph,
		"-map", prev,
		"-map", prevA,
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errs.Providerf("ffmpeg", "crossfade", "%v: %s", err, tail(string(output)))
	}
	return nil
}

// hardConcat uses the concat demuxer with stream copy: fast, no
// transitions, tolerant of anything the clips share a codec for.
func (c *Client) hardConcat(ctx context.Context, workDir string, files []string, outputPath string) error {
	var list strings.Builder
	for _, f := range files {
		// concat demuxer quoting: single quotes, escaped inside.
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(f, "'", `'\''`))
	}

	listPath := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return errs.Provider("ffmpeg", "write concat list", err)
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errs.Providerf("ffmpeg", "concat", "%v: %s", err, tail(string(output)))
	}
	return nil
}

// Duration returns a media file's duration in seconds via ffprobe.
func (c *Client) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, errs.Provider("ffmpeg", "ffprobe", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, errs.Provider("ffmpeg", "parse ffprobe output", err)
	}

	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, errs.Providerf("ffmpeg", "parse ffprobe output", "bad duration %q", probe.Format.Duration)
	}
	return d, nil
}

func (c *Client) download(ctx context.Context, videoURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return errs.Provider("ffmpeg", "create download request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Provider("ffmpeg", "download clip", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.Providerf("ffmpeg", "download clip", "status %d", resp.StatusCode)
	}

	file, err := os.Create(path)
	if err != nil {
		return errs.Provider("ffmpeg", "create clip file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return errs.Provider("ffmpeg", "write clip file", err)
	}
	return nil
}

// tail keeps the last part of ffmpeg's output; the useful error is at
// the end.
func tail(s string) string {
	const max = 400
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
