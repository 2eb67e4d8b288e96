// Package respcache caches successful GET responses per merchant.
// Cache failures never block a request; a broken cache behaves like an
// empty one.
package respcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wholesalehub/platform/pkg/auth"
)

const keyPrefix = "respcache"

// Store is the cache backend. RedisStore is the production
// implementation; MemoryStore backs tests and single-node deployments.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes all keys starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// cachedResponse is the payload stored per cache key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Cache serves and stores HTTP responses through a Store.
type Cache struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

// New creates a response cache. TTL must be positive.
func New(store Store, ttl time.Duration, log *slog.Logger) *Cache {
	if store == nil {
		panic("respcache: store is required")
	}
	if ttl <= 0 {
		panic("respcache: ttl must be positive")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{store: store, ttl: ttl, log: log}
}

// Middleware serves cached responses for authenticated GET requests and
// stores fresh 200 responses on miss. Other methods and anonymous
// requests pass through untouched.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		merchantID, ok := auth.MerchantIDFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := c.key(merchantID.String(), r)
		if cached, found := c.lookup(r.Context(), key); found {
			if cached.ContentType != "" {
				w.Header().Set("Content-Type", cached.ContentType)
			}
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(cached.Status)
			_, _ = w.Write(cached.Body)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status == http.StatusOK {
			c.storeResponse(r.Context(), key, cachedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
		}
	})
}

// Invalidate drops all cached responses for a merchant. Write paths call
// this so reads after a mutation see fresh data.
func (c *Cache) Invalidate(ctx context.Context, merchantID string) {
	prefix := fmt.Sprintf("%s:%s:", keyPrefix, merchantID)
	if err := c.store.DeletePrefix(ctx, prefix); err != nil {
		c.log.WarnContext(ctx, "cache invalidation failed", "error", err)
	}
}

func (c *Cache) key(merchantID string, r *http.Request) string {
	return fmt.Sprintf("%s:%s:%s?%s", keyPrefix, merchantID, r.URL.Path, r.URL.RawQuery)
}

func (c *Cache) lookup(ctx context.Context, key string) (*cachedResponse, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil || raw == nil {
		if err != nil {
			c.log.WarnContext(ctx, "cache lookup failed", "error", err)
		}
		return nil, false
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

func (c *Cache) storeResponse(ctx context.Context, key string, resp cachedResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.WarnContext(ctx, "cache store failed", "error", err)
	}
}

// recorder captures the response while passing it through to the client.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
