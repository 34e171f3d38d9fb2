package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(status int) (*gin.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(RequestLogger(zap.New(core)))
	router.GET("/items/:id", func(c *gin.Context) {
		c.JSON(status, gin.H{"request_id": RequestID(c)})
	})
	return router, logs
}

func TestRequestLogger_LogsCompletion(t *testing.T) {
	router, logs := newLoggedRouter(http.StatusOK)

	req := httptest.NewRequest("GET", "/items/SBER?x=1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	entries := logs.FilterMessage("http request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("expected info level, got %s", entry.Level)
	}

	fields := entry.ContextMap()
	if fields["path"] != "/items/SBER" || fields["route"] != "/items/:id" {
		t.Errorf("unexpected path/route %v / %v", fields["path"], fields["route"])
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("expected status 200, got %v", fields["status"])
	}

	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("expected a generated request id header")
	}
	if fields["request_id"] != id {
		t.Errorf("expected logged id %s, got %v", id, fields["request_id"])
	}
}

func TestRequestLogger_ReusesClientID(t *testing.T) {
	router, _ := newLoggedRouter(http.StatusOK)

	req := httptest.NewRequest("GET", "/items/SBER", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected client request id to be echoed, got %q", got)
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		router, logs := newLoggedRouter(tt.status)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/items/X", nil))

		entries := logs.All()
		if len(entries) != 1 || entries[0].Level != tt.want {
			t.Errorf("status %d: expected one %s entry, got %v", tt.status, tt.want, entries)
		}
	}
}
