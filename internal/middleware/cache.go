package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/logging"
)

const maxCachedBodyBytes = 1 << 20

// cachedResponse is what is stored in Redis for a GET response.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter copies the body while it is written to the client.
type captureWriter struct {
	gin.ResponseWriter
	buf      bytes.Buffer
	overflow bool
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.capture(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *captureWriter) capture(b []byte) {
	if w.overflow {
		return
	}
	if w.buf.Len()+len(b) > maxCachedBodyBytes {
		w.overflow = true
		w.buf.Reset()
		return
	}
	w.buf.Write(b)
}

// CacheKey hashes the route pattern and the sorted query string under the
// configured prefix, so parameter order does not split the cache.
func CacheKey(prefix string, c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	query := c.Request.URL.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(route)
	for _, k := range keys {
		vals := query[k]
		sort.Strings(vals)
		for _, v := range vals {
			sb.WriteString("|")
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(v)
		}
	}
	// Path parameters are part of the concrete URL, not the pattern.
	sb.WriteString("|path=")
	sb.WriteString(c.Request.URL.Path)

	sum := sha1.Sum([]byte(sb.String()))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// ResponseCache serves GET requests from Redis and stores 200 responses for
// cfg.TTL. It is a pass-through when caching is disabled or rdb is nil.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := CacheKey(cfg.Prefix, c)

		if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.Header("X-Cache", "HIT")
				c.Data(cached.Status, cached.ContentType, cached.Body)
				c.Abort()
				return
			}
		} else if err != redis.Nil {
			logging.FromContext(c).Warn().Err(err).Msg("Cache lookup failed")
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Header("X-Cache", "MISS")

		c.Next()

		if cw.Status() != http.StatusOK || cw.overflow {
			return
		}
		payload, err := json.Marshal(cachedResponse{
			Status:      cw.Status(),
			ContentType: cw.Header().Get("Content-Type"),
			Body:        cw.buf.Bytes(),
		})
		if err != nil {
			return
		}
		// The request context may already be cancelled once the client has
		// its response.
		if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
			logging.FromContext(c).Warn().Err(err).Msg("Cache store failed")
		}
	}
}

// InvalidateCache drops every cached response after a successful mutation.
func InvalidateCache(cfg config.CacheConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if err := purgePrefix(context.WithoutCancel(c.Request.Context()), rdb, cfg.Prefix); err != nil {
			logging.FromContext(c).Warn().Err(err).Msg("Cache invalidation failed")
		}
	}
}

func purgePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	iter := rdb.Scan(ctx, 0, prefix+":*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return rdb.Del(ctx, batch...).Err()
	}
	return nil
}
