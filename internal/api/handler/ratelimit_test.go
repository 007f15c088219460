package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pramaanvault/certvault/internal/api/handler"
)

func limitedRouter(t *testing.T, rps, burst int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.Use(handler.RateLimiter(ctx, rps, burst))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func pingFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_allowsBurstThenThrottles(t *testing.T) {
	router := limitedRouter(t, 1, 3)

	for i := 0; i < 3; i++ {
		if w := pingFrom(router, "10.0.0.1:5000"); w.Code != http.StatusOK {
			t.Fatalf("request %d within burst got %d, want 200", i+1, w.Code)
		}
	}

	w := pingFrom(router, "10.0.0.1:5000")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("request past burst got %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("throttled response is missing Retry-After")
	}
}

func TestRateLimiter_bucketsArePerClient(t *testing.T) {
	router := limitedRouter(t, 1, 1)

	if w := pingFrom(router, "10.0.0.1:5000"); w.Code != http.StatusOK {
		t.Fatalf("first client's request got %d, want 200", w.Code)
	}
	if w := pingFrom(router, "10.0.0.1:5000"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first client's second request got %d, want 429", w.Code)
	}

	// A different address must not share the exhausted bucket.
	if w := pingFrom(router, "10.0.0.2:5000"); w.Code != http.StatusOK {
		t.Errorf("second client's request got %d, want 200", w.Code)
	}
}
