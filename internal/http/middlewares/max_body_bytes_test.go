package middlewares_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/speechgate/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func bodyLimitRouter(limit int64, reached *bool) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.MaxBodyBytes(limit))
	r.POST("/generate-speech", func(c *gin.Context) {
		*reached = true
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestMaxBodyBytes_RejectsDeclaredOversizedBody(t *testing.T) {
	var reached bool
	r := bodyLimitRouter(16, &reached)

	req := httptest.NewRequest(http.MethodPost, "/generate-speech", strings.NewReader(`{"input":"far too long for the limit"}`))
	req.Header.Set("X-Request-Id", "req-413")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got status %d, want 413", w.Code)
	}
	if reached {
		t.Fatalf("handler must not run for a declared oversized body")
	}

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
			Details   struct {
				Limit int64 `json:"limit"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "payload_too_large" || body.Error.Details.Limit != 16 {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
	if body.Error.RequestID != "req-413" {
		t.Fatalf("requestId = %q, want req-413", body.Error.RequestID)
	}
}

func TestMaxBodyBytes_CutsOffChunkedBody(t *testing.T) {
	var reached bool
	r := bodyLimitRouter(16, &reached)

	// a MultiReader hides the length, as a chunked upload would
	req := httptest.NewRequest(http.MethodPost, "/generate-speech", io.MultiReader(strings.NewReader(strings.Repeat("a", 64))))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if !reached {
		t.Fatalf("chunked body should reach the handler")
	}
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got status %d, want 413", w.Code)
	}
}

func TestMaxBodyBytes_AllowsBodyWithinLimit(t *testing.T) {
	var reached bool
	r := bodyLimitRouter(64, &reached)

	req := httptest.NewRequest(http.MethodPost, "/generate-speech", strings.NewReader(`{"input":"hi"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent || !reached {
		t.Fatalf("got status %d reached=%v, want 204 and handler run", w.Code, reached)
	}
}
