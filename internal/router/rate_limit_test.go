package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cabinstay/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func TestNewRateLimitRule(t *testing.T) {
	rule := NewRateLimitRule("cs:rate:reservation", config.RateLimitConfig{WindowSeconds: 600, MaxAttempts: 10, BlockSeconds: 900})
	if rule.Prefix != "cs:rate:reservation" || rule.WindowSeconds != 600 || rule.MaxRequests != 10 || rule.BlockSeconds != 900 {
		t.Fatalf("unexpected rule: %+v", rule)
	}
}

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"username":" Admin "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("username")(c)
	if key != "admin|1.2.3.4" {
		t.Fatalf("key want admin|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Admin") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitMiddlewareAbortsWhenRedisUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	reached := false
	r := gin.New()
	r.Use(RateLimitMiddleware(client, RateLimitRule{Prefix: "cs:rate:test", WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		reached = true
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status want 500 got %d", w.Code)
	}
	if reached {
		t.Fatalf("handler should not run after limiter failure")
	}
	if resp := decodeError(t, w.Body.Bytes()); resp.Success || resp.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestRateLimitRuleHelpers(t *testing.T) {
	rule := RateLimitRule{Prefix: "cs:rate:login", WindowSeconds: 300, MaxRequests: 5}
	if got := rule.key("admin|1.2.3.4"); got != "cs:rate:login:admin|1.2.3.4" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := (RateLimitRule{}).key("1.2.3.4"); got != "1.2.3.4" {
		t.Fatalf("key without prefix should be the subject, got %s", got)
	}
	if rule.messageKey() != "error.rate_limited" {
		t.Fatalf("default message key want error.rate_limited got %s", rule.messageKey())
	}
	rule.MessageKey = "error.login_too_many"
	if rule.messageKey() != "error.login_too_many" {
		t.Fatalf("custom message key ignored")
	}

	cases := []struct {
		ttl  int64
		rule RateLimitRule
		want int
	}{
		{ttl: 42, rule: rule, want: 42},
		{ttl: -1, rule: rule, want: 300},
		{ttl: 0, rule: RateLimitRule{}, want: 1},
	}
	for _, tc := range cases {
		if got := tc.rule.retryAfter(tc.ttl); got != tc.want {
			t.Fatalf("retryAfter(%d) want %d got %d", tc.ttl, tc.want, got)
		}
	}
	if (RateLimitRule{WindowSeconds: 60}).active() {
		t.Fatalf("rule without max requests should be inactive")
	}
}
