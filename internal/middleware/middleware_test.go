package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hello-actuator/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return m, rdb
}

func do(e *echo.Echo, method, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func rateCfg(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	e.GET("/hello", func(c echo.Context) error { return c.String(http.StatusOK, "hi") }, NewTokenBucket(rateCfg(2), rdb))

	first := do(e, http.MethodGet, "/hello", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/hello", "").Code)

	blocked := do(e, http.MethodGet, "/hello", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	retry, err := strconv.Atoi(blocked.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.Contains(t, blocked.Body.String(), "too_many_requests")

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/hello", "198.51.100.7:4000").Code)
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	m, rdb := newRedis(t)
	e := echo.New()
	e.GET("/hello", func(c echo.Context) error { return c.String(http.StatusOK, "hi") }, NewTokenBucket(rateCfg(1), rdb))
	m.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/hello", "").Code)
	}
}

func TestTokenBucket_DisabledOrNilClient(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := rateCfg(1)
	cfg.Enabled = false

	for name, mw := range map[string]echo.MiddlewareFunc{
		"disabled":   NewTokenBucket(cfg, rdb),
		"nil client": NewTokenBucket(rateCfg(1), nil),
	} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			e.GET("/hello", func(c echo.Context) error { return c.String(http.StatusOK, "hi") }, mw)
			for i := 0; i < 3; i++ {
				rec := do(e, http.MethodGet, "/hello", "")
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
			}
		})
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/hello")

	tests := map[string]string{
		"ip":       "rl:ip:203.0.113.9",
		"route":    "rl:route:GET /hello",
		"ip_route": "rl:ip:203.0.113.9:route:GET /hello",
		"":         "rl:ip:203.0.113.9:route:GET /hello",
	}
	for strategy, want := range tests {
		cfg := rateCfg(1)
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, buildRateKey(cfg, c), "strategy %q", strategy)
	}
}

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1024,
	}
}

func TestRedisCache_MissThenHit(t *testing.T) {
	m, rdb := newRedis(t)
	var calls atomic.Int32
	e := echo.New()
	e.GET("/hello", func(c echo.Context) error {
		calls.Add(1)
		return c.String(http.StatusOK, "Привет 🎉")
	}, NewRedisCache(cacheCfg(), rdb))

	miss := do(e, http.MethodGet, "/hello", "")
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	assert.Len(t, m.Keys(), 1)

	hit := do(e, http.MethodGet, "/hello", "")
	assert.Equal(t, http.StatusOK, hit.Code)
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, miss.Body.Bytes(), hit.Body.Bytes())
	assert.Equal(t, echo.MIMETextPlainCharsetUTF8, hit.Header().Get(echo.HeaderContentType))
	assert.Equal(t, int32(1), calls.Load())

	// A different query string is a different key.
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/hello?x=1", "").Header().Get("X-Cache"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisCache_HitKeepsCurrentRequestHeaders(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	e.Use(echomw.RequestID())
	e.GET("/hello", func(c echo.Context) error {
		c.Response().Header().Set("X-Greeting-Lang", "ru")
		return c.String(http.StatusOK, "Привет 🎉")
	}, NewTokenBucket(rateCfg(10), rdb), NewRedisCache(cacheCfg(), rdb))

	seen := map[string]bool{}
	for i, want := range []struct {
		cache     string
		remaining string
	}{
		{"MISS", "9"},
		{"HIT", "8"},
		{"HIT", "7"},
	} {
		rec := do(e, http.MethodGet, "/hello", "")
		h := rec.Header()

		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, []string{want.cache}, h.Values("X-Cache"), "request %d", i)
		assert.Equal(t, []string{want.remaining}, h.Values("X-RateLimit-Remaining"), "request %d", i)
		assert.Equal(t, []string{"10"}, h.Values("X-RateLimit-Limit"), "request %d", i)
		assert.Equal(t, []string{"ru"}, h.Values("X-Greeting-Lang"), "request %d", i)
		assert.Equal(t, []string{echo.MIMETextPlainCharsetUTF8}, h.Values(echo.HeaderContentType), "request %d", i)

		ids := h.Values(echo.HeaderXRequestID)
		require.Len(t, ids, 1, "request %d", i)
		assert.False(t, seen[ids[0]], "request id reused on request %d", i)
		seen[ids[0]] = true
	}
}

func TestPerRequestHeader(t *testing.T) {
	for _, k := range []string{"X-Request-Id", "x-request-id", "X-RateLimit-Remaining", "X-RateLimit-Limit", "X-RateLimit-Key", "Retry-After", "X-Cache", "Content-Length"} {
		assert.True(t, perRequestHeader(k), k)
	}
	for _, k := range []string{"Content-Type", "Cache-Control", "X-Greeting-Lang"} {
		assert.False(t, perRequestHeader(k), k)
	}
}

func TestRedisCache_SkipsNonOKAndOversized(t *testing.T) {
	m, rdb := newRedis(t)
	e := echo.New()
	mw := NewRedisCache(cacheCfg(), rdb)
	e.GET("/teapot", func(c echo.Context) error { return c.String(http.StatusTeapot, "no") }, mw)
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, strings.Repeat("x", 2048)) }, mw)

	assert.Equal(t, http.StatusTeapot, do(e, http.MethodGet, "/teapot", "").Code)
	big := do(e, http.MethodGet, "/big", "")
	assert.Len(t, big.Body.String(), 2048)

	assert.Empty(t, m.Keys())
}

func TestRedisCache_IgnoresUncachedMethods(t *testing.T) {
	m, rdb := newRedis(t)
	e := echo.New()
	e.POST("/echo", func(c echo.Context) error { return c.String(http.StatusOK, "posted") }, NewRedisCache(cacheCfg(), rdb))

	rec := do(e, http.MethodPost, "/echo", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, m.Keys())
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"text/plain"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte("body"))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, []byte("body"), body)

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
	_, _, _, ok = decodePayload(append([]byte{0, 0, 0, 200, 0, 0, 1, 0}, 'x'))
	assert.False(t, ok)
}
