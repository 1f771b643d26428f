package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":" Ops@CafeCoffeeDay.in "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "ops@cafecoffeeday.in|1.2.3.4" {
		t.Fatalf("key want ops@cafecoffeeday.in|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Ops@CafeCoffeeDay.in") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareFallsBackToLocalLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limitedKeys := make([]string, 0)
	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{
		Prefix:        "test:rate",
		WindowSeconds: 60,
		MaxRequests:   2,
		OnLimited: func(_ *gin.Context, key string) {
			limitedKeys = append(limitedKeys, key)
		},
	}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if code := decodeStatusCode(t, w); code != 0 {
			t.Fatalf("request %d should pass, got status_code %d", i+1, code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if code := decodeStatusCode(t, w); code != 429 {
		t.Fatalf("third request status_code want 429 got %d", code)
	}
	if len(limitedKeys) != 1 || !strings.HasPrefix(limitedKeys[0], "test:rate:") {
		t.Fatalf("OnLimited should fire once with prefixed key, got %v", limitedKeys)
	}
}

func TestRateLimitMiddlewareDisabledRule(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("disabled rule should never block, got %s", w.Body.String())
		}
	}
}

func TestLocalLimiterSeparatesKeys(t *testing.T) {
	limiter := newLocalLimiter(RateLimitRule{WindowSeconds: 60, MaxRequests: 1})
	if ok, _ := limiter.allow("a"); !ok {
		t.Fatalf("first request for a should pass")
	}
	ok, wait := limiter.allow("a")
	if ok || wait < 1 {
		t.Fatalf("second request for a should be limited with wait, got ok=%v wait=%d", ok, wait)
	}
	if ok, _ := limiter.allow("b"); !ok {
		t.Fatalf("key b should have its own bucket")
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(10), want: 10, ok: true},
		{name: "int", input: int(11), want: 11, ok: true},
		{name: "uint8", input: uint8(12), want: 12, ok: true},
		{name: "float64", input: float64(13.9), want: 13, ok: true},
		{name: "string", input: "bad", want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInt64(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok want %v got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("value want %d got %d", tc.want, got)
			}
		})
	}
}
