package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idem-lexis/lexis-api/internal/auth/middleware"
	"github.com/idem-lexis/lexis-api/internal/projects/domain"
	"github.com/idem-lexis/lexis-api/internal/projects/service"
	"github.com/idem-lexis/lexis-api/internal/storage"
	"github.com/idem-lexis/lexis-api/internal/storage/memory"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	repo := storage.NewRepository[domain.Project](memory.New(), storage.ModelProjects)
	r := gin.New()
	New(service.NewProjectService(repo)).Register(r.Group("/api/v1/projects", middleware.DevAuthMiddleware()))
	return r
}

func request(r *gin.Engine, uid, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.DevUserHeader, uid)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProjectRoutes(t *testing.T) {
	r := newRouter()

	w := request(r, "alice", http.MethodPost, "/api/v1/projects", `{"name":"Lexis","description":"An idea engine","constraints":["gdpr"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Project domain.Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Project.ID
	assert.True(t, strings.HasPrefix(id, "lexis-"))
	assert.Equal(t, "alice", created.Project.UserID)

	w = request(r, "alice", http.MethodGet, "/api/v1/projects", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = request(r, "bob", http.MethodGet, "/api/v1/projects/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code, "foreign projects look missing")

	w = request(r, "bob", http.MethodGet, "/api/v1/projects", "")
	assert.NotContains(t, w.Body.String(), id)

	w = request(r, "alice", http.MethodPut, "/api/v1/projects/"+id, `{"scope":"global"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scope":"global"`)
	assert.Contains(t, w.Body.String(), `"name":"Lexis"`)

	w = request(r, "alice", http.MethodPut, "/api/v1/projects/"+id, `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, "bob", http.MethodDelete, "/api/v1/projects/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, "alice", http.MethodDelete, "/api/v1/projects/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, "alice", http.MethodGet, "/api/v1/projects/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProject_Validation(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"name":`},
		{name: "missing name", body: `{"description":"x"}`},
		{name: "missing description", body: `{"name":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, "alice", http.MethodPost, "/api/v1/projects", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"ok":false`)
		})
	}
}
