package github

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/idem-lexis/lexis-api/internal/artifact"
	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/logging"
)

var repoName = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)

// Pusher is the GitHub surface used by handlers and deployments.
type Pusher interface {
	Owner(ctx context.Context) (string, error)
	EnsureRepository(ctx context.Context, owner, name string, private bool) (*Repository, error)
	PushFiles(ctx context.Context, owner, repo, branch, message string, files map[string]string) (*PushResult, error)
}

// Handler serves POST /github/push. A nil pusher answers 503.
type Handler struct {
	pusher   Pusher
	projects artifact.Projects
}

func NewHandler(pusher Pusher, projects artifact.Projects) *Handler {
	return &Handler{pusher: pusher, projects: projects}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/push", h.push)
}

type pushRequest struct {
	ProjectID string            `json:"projectId"`
	RepoName  string            `json:"repoName"`
	Owner     string            `json:"owner"`
	Branch    string            `json:"branch"`
	Message   string            `json:"message"`
	Private   bool              `json:"private"`
	Files     map[string]string `json:"files"`
}

func (h *Handler) push(c *gin.Context) {
	if h.pusher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": ErrNotConfigured.Error()})
		return
	}

	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}
	if !repoName.MatchString(req.RepoName) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid repoName"})
		return
	}
	if len(req.Files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "files required"})
		return
	}
	for p := range req.Files {
		if p == "" || strings.Contains(p, "..") || strings.HasPrefix(p, "/") {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid file path " + p})
			return
		}
	}

	ctx := c.Request.Context()
	if _, err := h.projects.Get(ctx, auth.UserFirebaseUID(c), req.ProjectID); err != nil {
		artifact.WriteError(c, "github.push", err)
		return
	}

	owner, err := h.pusher.Owner(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.Owner != "" && !strings.EqualFold(req.Owner, owner) {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": ErrForeignOwner.Error()})
		return
	}
	repo, err := h.pusher.EnsureRepository(ctx, owner, req.RepoName, req.Private)
	if err != nil {
		h.fail(c, err)
		return
	}
	branch := req.Branch
	if branch == "" {
		branch = repo.DefaultBranch
	}
	message := req.Message
	if message == "" {
		message = "Add generated files"
	}
	res, err := h.pusher.PushFiles(ctx, owner, req.RepoName, branch, message, req.Files)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "repository": repo, "push": res})
}

func (h *Handler) fail(c *gin.Context, err error) {
	logging.New(c.Request.Context()).Error("github.push", err)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": apiErr.Error(), "githubStatus": apiErr.Status})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "github push failed"})
}
