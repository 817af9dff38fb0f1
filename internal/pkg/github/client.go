// Package github fetches README content for a repository URL.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelgen/internal/pkg/errs"
)

var readmeNames = []string{"README.md", "readme.md", "README.MD", "Readme.md", "README", "readme"}

// Client fetches raw README files, preferring raw.githubusercontent.com
// and falling back to the GitHub API.
type Client struct {
	http *http.Client
}

// NewClient creates a GitHub client.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// IsValidRepoURL reports whether raw looks like a github.com/owner/repo
// URL.
func IsValidRepoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Hostname() != "github.com" {
		return false
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	return len(parts) >= 2
}

// ParseRepoURL extracts owner and repo from a github.com URL.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() != "github.com" {
		return "", "", fmt.Errorf("invalid GitHub URL, expected https://github.com/owner/repo")
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid GitHub URL, expected https://github.com/owner/repo")
	}
	repo = strings.TrimSuffix(parts[1], ".git")
	return parts[0], repo, nil
}

// FetchReadme downloads the README of the repository at repoURL. It
// tries the usual filename variants on the main and master branches,
// then the GitHub API.
func (c *Client) FetchReadme(ctx context.Context, repoURL string) (string, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return "", err
	}

	for _, name := range readmeNames {
		for _, branch := range []string{"main", "master"} {
			rawURL := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, branch, name)
			if body, ok := c.fetch(ctx, rawURL, nil); ok {
				return body, nil
			}
		}
	}

	// API fallback resolves the default branch and filename for us.
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/readme", owner, repo)
	headers := map[string]string{
		"Accept":     "application/vnd.github.raw+json",
		"User-Agent": "reelgen",
	}
	if body, ok := c.fetch(ctx, apiURL, headers); ok {
		return body, nil
	}

	return "", errs.Providerf("github", "fetch readme", "could not find README for %s/%s", owner, repo)
}

func (c *Client) fetch(ctx context.Context, u string, headers map[string]string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(body), true
}
