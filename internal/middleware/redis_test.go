package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/helpers"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func cacheKeys(mr *miniredis.Miniredis, prefix string) []string {
	var keys []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, prefix+":") {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestResponseCacheAndInvalidation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "test:cache"}

	reads := 0
	r := gin.New()
	r.GET("/api/places", ResponseCache(cfg, rdb), func(c *gin.Context) {
		reads++
		c.JSON(http.StatusOK, gin.H{"reads": reads})
	})
	r.POST("/api/places", InvalidateCache(cfg, rdb), func(c *gin.Context) {
		if c.Query("fail") != "" {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input.")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": 1})
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/places?area=Playa+Blanca", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET: expected 200, got %d", w.Code)
		}
		return w
	}
	post := func(target string, want int) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))
		if w.Code != want {
			t.Fatalf("POST %s: expected %d, got %d", target, want, w.Code)
		}
	}

	first := get()
	if got := first.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("Expected first read to miss, got %q", got)
	}
	second := get()
	if got := second.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("Expected second read to hit, got %q", got)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("Expected cached body %q, got %q", first.Body.String(), second.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Expected cached content type, got %q", ct)
	}
	if reads != 1 {
		t.Errorf("Expected the handler to run once, ran %d times", reads)
	}
	if keys := cacheKeys(mr, cfg.Prefix); len(keys) != 1 {
		t.Fatalf("Expected one cache entry, got %v", keys)
	}
	if ttl := mr.TTL(cacheKeys(mr, cfg.Prefix)[0]); ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected the entry to expire within the configured TTL, got %v", ttl)
	}

	post("/api/places?fail=1", http.StatusBadRequest)
	if keys := cacheKeys(mr, cfg.Prefix); len(keys) != 1 {
		t.Errorf("Expected a failed mutation to keep the cache, got %v", keys)
	}
	if got := get().Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("Expected a hit after a failed mutation, got %q", got)
	}

	mr.Set("unrelated", "keep")
	post("/api/places", http.StatusCreated)
	if keys := cacheKeys(mr, cfg.Prefix); len(keys) != 0 {
		t.Errorf("Expected a successful mutation to clear the cache, got %v", keys)
	}
	if !mr.Exists("unrelated") {
		t.Error("Expected keys outside the cache prefix to survive")
	}
	if got := get().Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("Expected a miss after invalidation, got %q", got)
	}
	if reads != 2 {
		t.Errorf("Expected the handler to run again after invalidation, ran %d times", reads)
	}
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "test:cache"}

	r := gin.New()
	r.GET("/api/places", ResponseCache(cfg, rdb), func(c *gin.Context) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Unknown area.")
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/places?area=Atlantis", nil))
		if w.Code != http.StatusBadRequest || w.Header().Get("X-Cache") != "MISS" {
			t.Errorf("Request %d: expected uncached 400, got %d %q", i, w.Code, w.Header().Get("X-Cache"))
		}
	}
	if keys := cacheKeys(mr, cfg.Prefix); len(keys) != 0 {
		t.Errorf("Expected error responses not to be cached, got %v", keys)
	}
}

func TestRateLimitTokenBucket(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 2, RefillInterval: time.Hour, TTL: 5 * time.Hour, Prefix: "test:rl"}

	r := gin.New()
	r.POST("/api/auth/login", RateLimit(cfg, rdb), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	login := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i, wantRemaining := range []string{"1", "0"} {
		w := login("198.51.100.7")
		if w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("Request %d: expected %s remaining, got %q", i, wantRemaining, got)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("Request %d: expected limit 2, got %q", i, got)
		}
	}

	w := login("198.51.100.7")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 once the bucket is empty, got %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("Expected 0 remaining, got %q", got)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry <= 0 || retry > 3600 {
		t.Errorf("Expected Retry-After within the refill interval, got %q", w.Header().Get("Retry-After"))
	}
	if !strings.Contains(w.Body.String(), "Too Many Requests") {
		t.Errorf("Expected the standard error body, got %s", w.Body.String())
	}

	if w := login("198.51.100.8"); w.Code != http.StatusOK {
		t.Errorf("Expected another client to have its own bucket, got %d", w.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillInterval: time.Hour, TTL: 5 * time.Hour, Prefix: "test:rl"}

	r := gin.New()
	r.POST("/api/auth/login", RateLimit(cfg, rdb), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	mr.Close()
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected requests through while Redis is down, got %d", i, w.Code)
		}
	}
}
