package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ruteri/weighted-membership-registry/interfaces"
)

const defaultGitHubAPI = "https://api.github.com"

// ErrReadOnlyBackend is returned by Store on backends that cannot be written.
var ErrReadOnlyBackend = errors.New("storage backend is read-only")

// GitHubBackend reads snapshots mirrored into a GitHub repository through
// the contents API. Files are expected at <dir>/snapshots/<content id>.
// Fetched content is verified against its ID.
type GitHubBackend struct {
	owner       string
	repo        string
	dir         string
	ref         string
	token       string
	apiBase     string
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// GitHubContent is the subset of a contents API response the backend uses.
type GitHubContent struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

// NewGitHubBackend creates a read-only backend for owner/repo. An empty
// apiBase selects the public GitHub API.
func NewGitHubBackend(owner, repo, dir, ref, token, apiBase string, log *slog.Logger) *GitHubBackend {
	if apiBase == "" {
		apiBase = defaultGitHubAPI
	}
	dir = strings.Trim(dir, "/")

	uri := fmt.Sprintf("github://%s/%s", owner, repo)
	if dir != "" {
		uri += "/" + dir
	}
	if ref != "" {
		uri += "?ref=" + url.QueryEscape(ref)
	}

	return &GitHubBackend{
		owner:       owner,
		repo:        repo,
		dir:         dir,
		ref:         ref,
		token:       token,
		apiBase:     strings.TrimSuffix(apiBase, "/"),
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: uri,
	}
}

// Fetch downloads the file for id and verifies its hash.
func (b *GitHubBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	filePath := path.Join(b.dir, typeDir(contentType), id.String())

	content, err := b.fetchContent(ctx, filePath)
	if err != nil {
		return nil, err
	}

	if content.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding: %s", content.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	if actual := interfaces.ComputeID(data); actual != id {
		b.log.Warn("Content hash mismatch",
			slog.String("expected", id.String()),
			slog.String("actual", actual.String()))
		return nil, fmt.Errorf("content hash mismatch for %s", id)
	}

	b.log.Debug("Fetched content from GitHub",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store always fails with ErrReadOnlyBackend.
func (b *GitHubBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	return interfaces.ComputeID(data), ErrReadOnlyBackend
}

// Available checks that the repository can be read.
func (b *GitHubBackend) Available(ctx context.Context) bool {
	req, err := b.newRequest(ctx, fmt.Sprintf("%s/repos/%s/%s", b.apiBase, b.owner, b.repo))
	if err != nil {
		b.log.Debug("Failed to create request", "err", err)
		return false
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Debug("GitHub backend unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Debug("GitHub backend unavailable", slog.String("status", resp.Status))
		return false
	}

	return true
}

func (b *GitHubBackend) Name() string {
	return fmt.Sprintf("github-%s-%s", b.owner, b.repo)
}

func (b *GitHubBackend) LocationURI() string {
	return b.locationURI
}

func (b *GitHubBackend) fetchContent(ctx context.Context, filePath string) (*GitHubContent, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.apiBase, b.owner, b.repo, filePath)
	if b.ref != "" {
		reqURL += "?ref=" + url.QueryEscape(b.ref)
	}

	req, err := b.newRequest(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrContentNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	var content GitHubContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	if content.Type != "file" {
		return nil, fmt.Errorf("unexpected content type %q at %s", content.Type, filePath)
	}

	return &content, nil
}

func (b *GitHubBackend) newRequest(ctx context.Context, reqURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return req, nil
}
