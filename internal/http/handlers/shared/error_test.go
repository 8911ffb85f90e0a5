package shared

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cabinstay/internal/http/response"
	"github.com/cabinstay/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := logger.L
	logger.L = zap.New(core)
	t.Cleanup(func() { logger.L = prev })
	return logs
}

func TestMapErrorContextErrors(t *testing.T) {
	for _, cause := range []error{context.DeadlineExceeded, context.Canceled} {
		code, key := MapError(fmt.Errorf("list categories: %w", cause))
		if code != response.CodeGatewayTimeout || key != "error.timeout" {
			t.Fatalf("unexpected mapping for %v: %d %s", cause, code, key)
		}
	}
}

func TestRespondServiceErrorLogLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name  string
		err   error
		level zapcore.Level
	}{
		{"canceled", fmt.Errorf("list categories: %w", context.Canceled), zapcore.InfoLevel},
		{"deadline", fmt.Errorf("list categories: %w", context.DeadlineExceeded), zapcore.ErrorLevel},
		{"internal", fmt.Errorf("disk gone"), zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		logs := observeLogs(t)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		RespondServiceError(c, tc.err)

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("%s: expected one log entry, got %d", tc.name, len(entries))
		}
		if entries[0].Level != tc.level {
			t.Fatalf("%s: expected level %v, got %v", tc.name, tc.level, entries[0].Level)
		}
	}
}
