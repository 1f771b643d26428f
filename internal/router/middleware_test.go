package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluboy-rewards/internal/authz"
	"github.com/bluboy-rewards/internal/constants"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeSessions struct {
	tokens map[string]*identity.Identity
	err    error
}

func (f fakeSessions) Resolve(_ context.Context, token string) (*identity.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens[token], nil
}

type fakeScopes struct {
	err error
}

func (f fakeScopes) Resolve(id *identity.Identity) (service.AccessScope, error) {
	if f.err != nil {
		return service.AccessScope{}, f.err
	}
	return service.AccessScope{Role: id.Role, Email: id.Email, MerchantIDs: []uint{7}}, nil
}

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp.StatusCode
}

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": handlershared.CurrentRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if strings.TrimSpace(w2.Header().Get(requestIDHeader)) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func newSessionRouter(sessions SessionResolver, scopes ScopeResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionAuthMiddleware(sessions, scopes, constants.AuthSessionCookie))
	r.GET("/admin/ping", func(c *gin.Context) {
		id, _ := handlershared.CurrentIdentity(c)
		scope, _ := handlershared.CurrentScope(c)
		c.JSON(http.StatusOK, gin.H{
			"status_code": 0,
			"email":       id.Email,
			"merchants":   len(scope.MerchantIDs),
			"token":       handlershared.CurrentToken(c),
		})
	})
	return r
}

func TestSessionAuthMiddlewareRejectsMissingToken(t *testing.T) {
	r := newSessionRouter(fakeSessions{}, fakeScopes{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestSessionAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	r := newSessionRouter(fakeSessions{}, fakeScopes{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestSessionAuthMiddlewareAcceptsBearerAndCookie(t *testing.T) {
	id := &identity.Identity{Email: "ops@cafecoffeeday.in", Role: constants.RoleMerchantAdmin}
	r := newSessionRouter(fakeSessions{tokens: map[string]*identity.Identity{"tok-1": id}}, fakeScopes{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"email":"ops@cafecoffeeday.in"`) || !strings.Contains(w.Body.String(), `"merchants":1`) {
		t.Fatalf("bearer token should resolve identity and scope, got %s", w.Body.String())
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req2.AddCookie(&http.Cookie{Name: constants.AuthSessionCookie, Value: "tok-1"})
	r.ServeHTTP(w2, req2)
	if !strings.Contains(w2.Body.String(), `"token":"tok-1"`) {
		t.Fatalf("cookie token should resolve, got %s", w2.Body.String())
	}
}

func TestSessionAuthMiddlewareUnknownTokenAndScopeFailure(t *testing.T) {
	id := &identity.Identity{Email: "ops@cafecoffeeday.in", Role: constants.RoleMerchantAdmin}
	r := newSessionRouter(fakeSessions{tokens: map[string]*identity.Identity{"tok-1": id}}, fakeScopes{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer other")
	r.ServeHTTP(w, req)
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("unknown token status_code want 401 got %d", code)
	}

	r = newSessionRouter(fakeSessions{err: errors.New("boom")}, fakeScopes{})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	r.ServeHTTP(w, req)
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("resolve error status_code want 401 got %d", code)
	}

	r = newSessionRouter(fakeSessions{tokens: map[string]*identity.Identity{"tok-1": id}}, fakeScopes{err: service.ErrInvalidRole})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	r.ServeHTTP(w, req)
	if code := decodeStatusCode(t, w); code != 403 {
		t.Fatalf("scope failure status_code want 403 got %d", code)
	}
}

func setupRouterAuthz(t *testing.T) *authz.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func TestRoleRBACMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := setupRouterAuthz(t)

	newRouter := func(role string) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(handlershared.IdentityContextKey, &identity.Identity{Email: "x@bluboy.in", Role: role})
			c.Next()
		})
		group := r.Group("/api/v1/admin", RoleRBACMiddleware(svc))
		ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) }
		group.GET("/rewards/:id", ok)
		group.POST("/claims/verify", ok)
		group.POST("/tenants", ok)
		return r
	}

	cases := []struct {
		role   string
		method string
		path   string
		want   int
	}{
		{constants.RoleMerchantAdmin, http.MethodGet, "/api/v1/admin/rewards/42", 0},
		{constants.RoleMerchantAdmin, http.MethodPost, "/api/v1/admin/claims/verify", 0},
		{constants.RoleMerchantAdmin, http.MethodPost, "/api/v1/admin/tenants", 403},
		{constants.RoleTenantMarketingAdmin, http.MethodPost, "/api/v1/admin/claims/verify", 403},
		{constants.RoleSuperAdmin, http.MethodPost, "/api/v1/admin/tenants", 0},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		newRouter(tc.role).ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if code := decodeStatusCode(t, w); code != tc.want {
			t.Fatalf("%s %s %s want %d got %d", tc.role, tc.method, tc.path, tc.want, code)
		}
	}
}

func TestRoleRBACMiddlewareWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RoleRBACMiddleware(setupRouterAuthz(t)))
	r.GET("/api/v1/admin/navigation", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/navigation", nil))
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestDeriveAdminPermissionModule(t *testing.T) {
	cases := map[string]string{
		"/admin/rewards/:id":        "rewards",
		"/admin/analytics/rewards":  "analytics",
		"/admin/dashboard/overview": "analytics",
		"/admin/login-logs":         "users",
		"/health":                   "health",
	}
	for object, want := range cases {
		if got := deriveAdminPermissionModule(object); got != want {
			t.Fatalf("%s want %s got %s", object, want, got)
		}
	}
}
