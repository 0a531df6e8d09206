package quota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authctx "github.com/idem-lexis/lexis-api/internal/auth"
)

func newStore(t *testing.T, daily, weekly int) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewStore(client, daily, weekly)
	s.now = func() time.Time { return time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC) }
	return s, mr
}

func TestStore_CountsAndLimits(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 2, 5)

	u, err := s.Check(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.Remaining())

	require.NoError(t, s.Increment(ctx, "uid-1"))
	require.NoError(t, s.Increment(ctx, "uid-1"))

	u, err = s.Check(ctx, "uid-1")
	assert.ErrorIs(t, err, ErrExceeded)
	assert.Equal(t, int64(2), u.DailyUsed)
	assert.Equal(t, int64(2), u.WeeklyUsed)

	assert.True(t, mr.Exists("quota:daily:uid-1:2026-10-14"))
	assert.True(t, mr.Exists("quota:weekly:uid-1:2026-W42"))
	assert.Greater(t, mr.TTL("quota:daily:uid-1:2026-10-14"), time.Duration(0))

	other, err := s.Check(ctx, "uid-2")
	require.NoError(t, err)
	assert.Zero(t, other.DailyUsed)
}

func TestStore_WeeklyWindowOutlastsDailyReset(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 10, 2)

	require.NoError(t, s.Increment(ctx, "uid-1"))
	require.NoError(t, s.Increment(ctx, "uid-1"))

	n, err := s.ResetDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, err := s.Check(ctx, "uid-1")
	assert.ErrorIs(t, err, ErrExceeded)
	assert.Zero(t, u.DailyUsed)
	assert.Equal(t, int64(2), u.WeeklyUsed)
}

func TestStore_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 1, 5)

	r, u, err := s.Reserve(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.DailyUsed)

	_, u, err = s.Reserve(ctx, "uid-1")
	assert.ErrorIs(t, err, ErrExceeded)
	assert.Equal(t, int64(1), u.DailyUsed)
	assert.Equal(t, "1", mustGet(t, mr, "quota:daily:uid-1:2026-10-14"), "rejected reservation is refunded")

	require.NoError(t, s.Release(ctx, r))
	got, err := s.Usage(ctx, "uid-1")
	require.NoError(t, err)
	assert.Zero(t, got.DailyUsed)
	assert.Zero(t, got.WeeklyUsed)

	// a refund after the daily reset leaves the counter at zero
	r, _, err = s.Reserve(ctx, "uid-1")
	require.NoError(t, err)
	_, err = s.ResetDaily(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, r))
	got, err = s.Usage(ctx, "uid-1")
	require.NoError(t, err)
	assert.Zero(t, got.DailyUsed)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestUsage_Unlimited(t *testing.T) {
	u := Usage{DailyUsed: 100}
	assert.Equal(t, int64(-1), u.Remaining())
	assert.False(t, u.Exhausted())
}

func newRouter(s *Store, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-User-Id"); uid != "" {
			c.Set(authctx.CtxFirebaseUID, uid)
		}
		c.Next()
	})
	r.POST("/generate", Middleware(s), func(c *gin.Context) {
		c.JSON(status, gin.H{"ok": status < 400})
	})
	NewHandler(s).Register(r.Group("/users"))
	return r
}

func call(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-User-Id", "uid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()

	t.Run("counts successful generations and then rejects", func(t *testing.T) {
		s, _ := newStore(t, 1, 0)
		r := newRouter(s, http.StatusCreated)

		assert.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/generate").Code)
		w := call(r, http.MethodPost, "/generate")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "quota_exceeded")

		u, err := s.Usage(ctx, "uid-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.DailyUsed)
	})

	t.Run("failed generations are free", func(t *testing.T) {
		s, _ := newStore(t, 1, 0)
		r := newRouter(s, http.StatusBadGateway)

		assert.Equal(t, http.StatusBadGateway, call(r, http.MethodPost, "/generate").Code)
		assert.Equal(t, http.StatusBadGateway, call(r, http.MethodPost, "/generate").Code)

		u, err := s.Usage(ctx, "uid-1")
		require.NoError(t, err)
		assert.Zero(t, u.DailyUsed)
	})

	t.Run("concurrent generations cannot overrun the limit", func(t *testing.T) {
		s, _ := newStore(t, 1, 0)
		unblock := make(chan struct{})

		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.Use(func(c *gin.Context) { c.Set(authctx.CtxFirebaseUID, "uid-1") })
		r.POST("/generate", Middleware(s), func(c *gin.Context) {
			<-unblock
			c.JSON(http.StatusCreated, gin.H{"ok": true})
		})

		const n = 5
		codes := make(chan int, n)
		for range n {
			go func() {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))
				codes <- w.Code
			}()
		}

		var got []int
		for range n - 1 {
			got = append(got, <-codes)
		}
		close(unblock)
		got = append(got, <-codes)
		sort.Ints(got)

		assert.Equal(t, []int{http.StatusCreated, 429, 429, 429, 429}, got)
		u, err := s.Usage(ctx, "uid-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.DailyUsed)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		s, _ := newStore(t, 1, 0)
		r := newRouter(s, http.StatusOK)
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandler_GetQuota(t *testing.T) {
	s, _ := newStore(t, 3, 0)
	require.NoError(t, s.Increment(context.Background(), "uid-1"))

	w := call(newRouter(s, http.StatusOK), http.MethodGet, "/users/quota")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dailyUsed":1`)
	assert.Contains(t, w.Body.String(), `"remaining":2`)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(authctx.CtxFirebaseUID, "uid-1") })
	NewHandler(nil).Register(r.Group("/users"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/quota", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":false`)
}
