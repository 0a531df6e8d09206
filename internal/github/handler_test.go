package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idem-lexis/lexis-api/internal/artifact/artifacttest"
	"github.com/idem-lexis/lexis-api/internal/auth/middleware"
)

type fakePusher struct {
	ensureErr error
	ensured   string
	pushed    map[string]string
	branch    string
	message   string
}

func (f *fakePusher) Owner(context.Context) (string, error) {
	return "lexis-bot", nil
}

func (f *fakePusher) EnsureRepository(_ context.Context, owner, name string, private bool) (*Repository, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	f.ensured = owner + "/" + name
	return &Repository{Name: name, FullName: owner + "/" + name, DefaultBranch: "main", Private: private}, nil
}

func (f *fakePusher) PushFiles(_ context.Context, _, _, branch, message string, files map[string]string) (*PushResult, error) {
	f.pushed, f.branch, f.message = files, branch, message
	return &PushResult{Branch: branch, CommitSHA: "abc"}, nil
}

func TestPushHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	projects := artifacttest.Projects()
	p := artifacttest.CreateProject(t, projects, "alice")

	newRouter := func(pusher Pusher) *gin.Engine {
		r := gin.New()
		NewHandler(pusher, projects).Register(r.Group("/github", middleware.DevAuthMiddleware()))
		return r
	}
	call := func(r *gin.Engine, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/github/push", strings.NewReader(body))
		req.Header.Set(middleware.DevUserHeader, "alice")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("not configured", func(t *testing.T) {
		w := call(newRouter(nil), `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		r := newRouter(&fakePusher{})
		tests := []struct {
			name string
			body string
		}{
			{name: "bad json", body: `{`},
			{name: "bad repo name", body: `{"projectId":"` + p.ID + `","repoName":"a b","files":{"x":"y"}}`},
			{name: "no files", body: `{"projectId":"` + p.ID + `","repoName":"site"}`},
			{name: "path traversal", body: `{"projectId":"` + p.ID + `","repoName":"site","files":{"../x":"y"}}`},
			{name: "absolute path", body: `{"projectId":"` + p.ID + `","repoName":"site","files":{"/x":"y"}}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, http.StatusBadRequest, call(r, tt.body).Code)
			})
		}
	})

	t.Run("foreign project", func(t *testing.T) {
		w := call(newRouter(&fakePusher{}), `{"projectId":"lexis-00000-0000","repoName":"site","files":{"a.txt":"b"}}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("pushes with defaults", func(t *testing.T) {
		pusher := &fakePusher{}
		w := call(newRouter(pusher), `{"projectId":"`+p.ID+`","repoName":"site","files":{"index.html":"<html></html>"}}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "main", pusher.branch)
		assert.Equal(t, "Add generated files", pusher.message)
		assert.Equal(t, "<html></html>", pusher.pushed["index.html"])
		assert.Equal(t, "lexis-bot/site", pusher.ensured)
		assert.Contains(t, w.Body.String(), `"commitSha":"abc"`)
	})

	t.Run("owner must be the push account", func(t *testing.T) {
		pusher := &fakePusher{}
		w := call(newRouter(pusher), `{"projectId":"`+p.ID+`","repoName":"site","owner":"someone-else","files":{"a.txt":"b"}}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, pusher.ensured)
		assert.Nil(t, pusher.pushed)

		w = call(newRouter(pusher), `{"projectId":"`+p.ID+`","repoName":"site","owner":"Lexis-Bot","files":{"a.txt":"b"}}`)
		assert.Equal(t, http.StatusOK, w.Code, "naming the push account itself is allowed")
	})

	t.Run("github error", func(t *testing.T) {
		pusher := &fakePusher{ensureErr: &APIError{Status: http.StatusForbidden, Message: "no"}}
		w := call(newRouter(pusher), `{"projectId":"`+p.ID+`","repoName":"site","files":{"a.txt":"b"}}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), `"githubStatus":403`)
	})
}
