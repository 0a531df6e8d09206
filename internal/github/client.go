// Package github pushes generated files to GitHub repositories through the REST API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/idem-lexis/lexis-api/internal/logging"
)

const defaultAPIURL = "https://api.github.com"

var (
	// ErrNotConfigured is returned when no GitHub token is set.
	ErrNotConfigured = errors.New("github integration is not configured")
	// ErrForeignOwner is returned when a caller names an owner other than the one pushes go to.
	ErrForeignOwner = errors.New("github owner is not allowed")
)

// APIError is a non-success reply from GitHub.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Repository is the subset of the GitHub repository resource used here.
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// PushResult describes the last commit written by PushFiles.
type PushResult struct {
	Branch    string   `json:"branch"`
	CommitSHA string   `json:"commitSha"`
	CommitURL string   `json:"commitUrl"`
	Files     []string `json:"files"`
}

// Client talks to the GitHub REST API with a personal access token.
type Client struct {
	http         *http.Client
	baseURL      string
	defaultOwner string
}

// NewClient returns a token authenticated client. An empty baseURL targets github.com.
func NewClient(ctx context.Context, token, baseURL, defaultOwner string) *Client {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	httpClient.Timeout = 30 * time.Second
	return &Client{
		http:         httpClient,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultOwner: defaultOwner,
	}
}

// Owner returns the account pushes go to: the configured default owner,
// or the token's user when none is set. Callers never choose it.
func (c *Client) Owner(ctx context.Context) (string, error) {
	if c.defaultOwner != "" {
		return c.defaultOwner, nil
	}
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) (string, error) {
	var user struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return "", err
	}
	return user.Login, nil
}

// EnsureRepository returns owner/name, creating it when GitHub answers 404.
// Repositories are created with an initial commit so the default branch exists.
func (c *Client) EnsureRepository(ctx context.Context, owner, name string, private bool) (*Repository, error) {
	var repo Repository
	err := c.do(ctx, http.MethodGet, "/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(name), nil, &repo)
	if err == nil {
		return &repo, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	login, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	path := "/user/repos"
	if !strings.EqualFold(login, owner) {
		path = "/orgs/" + url.PathEscape(owner) + "/repos"
	}
	body := map[string]any{
		"name":      name,
		"private":   private,
		"auto_init": true,
	}
	if err := c.do(ctx, http.MethodPost, path, body, &repo); err != nil {
		return nil, fmt.Errorf("create repository %s/%s: %w", owner, name, err)
	}
	logging.New(ctx).Info("github.ensure_repository", "repository created",
		zap.String("repository", repo.FullName), zap.Bool("private", private))
	return &repo, nil
}

type gitRef struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

// ensureBranch creates branch from the head of the default branch when it
// does not exist yet. An empty repository is left alone; the first content
// write creates its default branch.
func (c *Client) ensureBranch(ctx context.Context, owner, repo, branch string) error {
	base := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
	var ref gitRef
	err := c.do(ctx, http.MethodGet, base+"/git/ref/heads/"+escapePath(branch), nil, &ref)
	if err == nil || !IsNotFound(err) {
		return err
	}

	var r Repository
	if err := c.do(ctx, http.MethodGet, base, nil, &r); err != nil {
		return err
	}
	if r.DefaultBranch == "" || r.DefaultBranch == branch {
		return nil
	}
	var head gitRef
	if err := c.do(ctx, http.MethodGet, base+"/git/ref/heads/"+escapePath(r.DefaultBranch), nil, &head); err != nil {
		return fmt.Errorf("read head of %s: %w", r.DefaultBranch, err)
	}
	body := map[string]any{"ref": "refs/heads/" + branch, "sha": head.Object.SHA}
	if err := c.do(ctx, http.MethodPost, base+"/git/refs", body, nil); err != nil {
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	logging.New(ctx).Info("github.ensure_branch", "branch created",
		zap.String("repository", owner+"/"+repo), zap.String("branch", branch), zap.String("from", r.DefaultBranch))
	return nil
}

type contentResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

// PushFiles creates or updates each file on branch, one commit per file,
// in path order. Existing files are updated through their current sha.
// A missing branch is created from the default branch first.
func (c *Client) PushFiles(ctx context.Context, owner, repo, branch, message string, files map[string]string) (*PushResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("github: nothing to push")
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if branch != "" {
		if err := c.ensureBranch(ctx, owner, repo, branch); err != nil {
			return nil, err
		}
	}

	res := &PushResult{Branch: branch}
	for _, p := range paths {
		endpoint := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/contents/" + escapePath(p)

		var existing contentResponse
		q := endpoint
		if branch != "" {
			q += "?ref=" + url.QueryEscape(branch)
		}
		err := c.do(ctx, http.MethodGet, q, nil, &existing)
		if err != nil && !IsNotFound(err) {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		body := map[string]any{
			"message": fmt.Sprintf("%s: %s", message, p),
			"content": base64.StdEncoding.EncodeToString([]byte(files[p])),
		}
		if branch != "" {
			body["branch"] = branch
		}
		if existing.SHA != "" {
			body["sha"] = existing.SHA
		}

		var written contentResponse
		if err := c.do(ctx, http.MethodPut, endpoint, body, &written); err != nil {
			return nil, fmt.Errorf("write %s: %w", p, err)
		}
		res.CommitSHA = written.Commit.SHA
		res.CommitURL = written.Commit.HTMLURL
		res.Files = append(res.Files, p)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("github: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
