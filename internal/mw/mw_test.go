package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, user string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestUser(t *testing.T) {
	r := gin.New()
	r.GET("/me", User("X-User-ID"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserKey))
	})

	w := serve(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", "  u1 ")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRateLimiter_PerUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", User("X-User-ID"), RateLimiter(rate.Limit(0.001), 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", "u1").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", "u1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/x", "u1").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", "u2").Code, "users have separate budgets")
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/faculties", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/broken", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream"})
	})

	first := serve(r, http.MethodGet, "/faculties", "")
	second := serve(r, http.MethodGet, "/faculties", "")
	assert.Equal(t, "MISS", first.Header().Get(CacheStatusHeader))
	assert.Equal(t, "HIT", second.Header().Get(CacheStatusHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	serve(r, http.MethodGet, "/broken", "")
	serve(r, http.MethodGet, "/broken", "")
	assert.Equal(t, 3, calls, "errors are not cached")
}
