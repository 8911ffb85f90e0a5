package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/constants"
	publichandlers "github.com/cabinstay/internal/http/handlers/public"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/provider"
	"github.com/cabinstay/internal/schema"

	"github.com/gin-gonic/gin"
)

type gatewayFixture struct {
	engine    *gin.Engine
	container *provider.Container
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := models.OpenDB(models.DBOptions{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:router_gateway_%d?mode=memory&cache=shared", time.Now().UnixNano()),
		Pool:   models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	t.Cleanup(func() { _ = models.CloseDB(db) })
	if _, err := schema.NewManager(db, nil).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema failed: %v", err)
	}

	cfg := &config.Config{
		JWT:     config.JWTConfig{SecretKey: "gateway-secret", ExpireHours: 1, Issuer: "cabinstay"},
		Upload:  config.UploadConfig{Dir: t.TempDir()},
		Booking: config.BookingConfig{MaxNights: 14},
	}
	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return &gatewayFixture{engine: SetupRouter(cfg, container), container: container}
}

func (f *gatewayFixture) tokenFor(t *testing.T, username string, isSuper bool, roles ...string) string {
	t.Helper()
	ctx := context.Background()
	admin, err := f.container.AuthService.CreateAdmin(ctx, username, "password-123", isSuper)
	if err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	if len(roles) > 0 {
		if err := f.container.AuthzService.SetAdminRoles(admin.ID, roles); err != nil {
			t.Fatalf("set roles failed: %v", err)
		}
	}
	token, _, err := f.container.AuthService.GenerateJWT(admin)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	return token
}

func (f *gatewayFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *gatewayFixture) auditCount(t *testing.T) int64 {
	t.Helper()
	count, err := f.container.AuditService.Count(context.Background())
	if err != nil {
		t.Fatalf("count audit logs failed: %v", err)
	}
	return count
}

func (f *gatewayFixture) categoryCount(t *testing.T) int {
	t.Helper()
	categories, err := f.container.CategoryService.List(context.Background())
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	return len(categories)
}

func TestGatewayRejectsUnauthenticatedMutations(t *testing.T) {
	f := newGatewayFixture(t)

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/admin/categories", `{"name":"Steam Cabins"}`},
		{http.MethodPut, "/api/v1/admin/categories/1", `{"name":"Steam Cabins"}`},
		{http.MethodDelete, "/api/v1/admin/products/1", ""},
		{http.MethodPut, "/api/v1/admin/reservations/1/status", `{"status":"confirmed"}`},
		{http.MethodPut, "/api/v1/admin/analytics/daily/2024-06-01", `{"visitors":1}`},
		{http.MethodPost, "/api/v1/admin/admins", `{"username":"x","password":"password-123"}`},
	}
	for _, token := range []string{"", "forged.token.value"} {
		for _, route := range routes {
			w := f.do(route.method, route.path, token, route.body)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s token=%q want 401 got %d", route.method, route.path, token, w.Code)
			}
			resp := decodeError(t, w.Body.Bytes())
			if resp.Success || resp.Status != http.StatusUnauthorized {
				t.Fatalf("unexpected error body: %+v", resp)
			}
		}
	}

	if got := f.auditCount(t); got != 0 {
		t.Fatalf("rejected requests must not be audited, got %d", got)
	}
	if got := f.categoryCount(t); got != 0 {
		t.Fatalf("rejected requests must not write, categories=%d", got)
	}
}

func TestGatewayEnforcesRoles(t *testing.T) {
	f := newGatewayFixture(t)
	auditor := f.tokenFor(t, "auditor", false, constants.RoleReadonlyAuditor)
	editor := f.tokenFor(t, "editor", false, constants.RoleCatalogEditor)

	if w := f.do(http.MethodGet, "/api/v1/admin/categories", auditor, ""); w.Code != http.StatusOK {
		t.Fatalf("auditor read want 200 got %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/api/v1/admin/categories", auditor, `{"name":"Steam Cabins"}`); w.Code != http.StatusForbidden {
		t.Fatalf("auditor write want 403 got %d", w.Code)
	}
	if got := f.auditCount(t); got != 0 {
		t.Fatalf("forbidden request must not be audited, got %d", got)
	}

	w := f.do(http.MethodPost, "/api/v1/admin/categories", editor, `{"name":"Steam Cabins"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("editor create want 201 got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Success bool `json:"success"`
		Data    struct {
			ID   uint   `json:"id"`
			Slug string `json:"slug"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if !created.Success || created.Data.Slug != "steam-cabins" {
		t.Fatalf("unexpected create response: %s", w.Body.String())
	}

	if w := f.do(http.MethodPost, "/api/v1/admin/categories", editor, `{"name":"Steam Cabins"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate slug want 409 got %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/api/v1/admin/room-types", editor, `{"name":"Cabin","nightly_rate":"90","capacity":2}`); w.Code != http.StatusForbidden {
		t.Fatalf("editor booking write want 403 got %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/api/v1/admin/admins", editor, `{"username":"other","password":"password-123"}`); w.Code != http.StatusForbidden {
		t.Fatalf("non-super admin creation want 403 got %d", w.Code)
	}

	if got := f.auditCount(t); got != 2 {
		t.Fatalf("dispatched mutations should be audited (create + conflict), got %d", got)
	}
}

func TestGatewayBookingFlow(t *testing.T) {
	f := newGatewayFixture(t)
	manager := f.tokenFor(t, "manager", false, constants.RoleBookingManager)

	w := f.do(http.MethodPost, "/api/v1/admin/room-types", manager, `{"name":"Lake Cabin","nightly_rate":"120.00","capacity":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create room type want 201 got %d: %s", w.Code, w.Body.String())
	}
	w = f.do(http.MethodPost, "/api/v1/admin/rooms", manager, `{"room_type_id":1,"number":"A-1","floor":1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create room want 201 got %d: %s", w.Code, w.Body.String())
	}

	reserve := `{"room_id":1,"start_date":"2030-06-01","end_date":"2030-06-03","guests":2,"contact_name":"Guest","contact_email":"guest@example.com"}`
	for i := 0; i < 2; i++ {
		if w := f.do(http.MethodPost, "/api/v1/public/reservations", "", reserve); w.Code != http.StatusCreated {
			t.Fatalf("public reservation want 201 got %d: %s", w.Code, w.Body.String())
		}
	}

	if w := f.do(http.MethodPut, "/api/v1/admin/reservations/1/status", manager, `{"status":"confirmed"}`); w.Code != http.StatusOK {
		t.Fatalf("confirm want 200 got %d: %s", w.Code, w.Body.String())
	}
	w = f.do(http.MethodPut, "/api/v1/admin/reservations/2/status", manager, `{"status":"confirmed"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("overlapping confirm want 409 got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(http.MethodGet, "/api/v1/admin/reservations?status=confirmed", manager, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list reservations want 200 got %d", w.Code)
	}
	var page struct {
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if page.Pagination.Total != 1 {
		t.Fatalf("expected one confirmed reservation, got %d", page.Pagination.Total)
	}

	if w := f.do(http.MethodDelete, "/api/v1/admin/room-types/1", manager, ""); w.Code != http.StatusConflict {
		t.Fatalf("delete room type in use want 409 got %d", w.Code)
	}
	if w := f.do(http.MethodDelete, "/api/v1/admin/room-types/1?force=yes", manager, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("unparsable force want 400 got %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodDelete, "/api/v1/admin/room-types/1?force=true", manager, ""); w.Code != http.StatusOK {
		t.Fatalf("forced delete want 200 got %d: %s", w.Code, w.Body.String())
	}
}

func TestGatewayExpiredDeadlineReturnsGatewayTimeout(t *testing.T) {
	f := newGatewayFixture(t)
	engine := gin.New()
	engine.Use(RequestIDMiddleware(), TimeoutMiddleware(time.Nanosecond))
	engine.GET("/categories", func(c *gin.Context) {
		<-c.Request.Context().Done()
		c.Next()
	}, publichandlers.New(f.container).GetCategories)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expired deadline want 504 got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeError(t, w.Body.Bytes())
	if resp.Success || resp.Status != http.StatusGatewayTimeout {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestGatewayAnalyticsAndSuperAdmin(t *testing.T) {
	f := newGatewayFixture(t)
	super := f.tokenFor(t, "root", true)

	for i := 0; i < 2; i++ {
		w := f.do(http.MethodPut, "/api/v1/admin/analytics/daily/2024-06-01", super, `{"visitors":50,"page_views":150,"unique_visitors":40}`)
		if w.Code != http.StatusOK {
			t.Fatalf("upsert daily stat want 200 got %d: %s", w.Code, w.Body.String())
		}
	}
	w := f.do(http.MethodGet, "/api/v1/admin/analytics/daily?from=2024-06-01&to=2024-06-01", super, "")
	var stats struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if len(stats.Data) != 1 {
		t.Fatalf("expected one row for the date, got %d: %s", len(stats.Data), w.Body.String())
	}
	if w := f.do(http.MethodPut, "/api/v1/admin/analytics/daily/2024-13-01", super, `{"visitors":1}`); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid date want 400 got %d", w.Code)
	}

	if w := f.do(http.MethodPost, "/api/v1/public/page-views", "", `{"page_url":"/cabins","session_id":"s1"}`); w.Code != http.StatusCreated {
		t.Fatalf("record page view want 201 got %d: %s", w.Code, w.Body.String())
	}
	today := time.Now().UTC().Format(constants.DateLayout)
	if w := f.do(http.MethodPost, "/api/v1/admin/analytics/rollup?date="+today, super, ""); w.Code != http.StatusOK {
		t.Fatalf("inline rollup want 200 got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(http.MethodPost, "/api/v1/admin/admins", super, `{"username":"editor2","password":"password-123","roles":["catalog_editor"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("super admin create want 201 got %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodPost, "/api/v1/admin/admins", super, `{"username":"ghost","password":"password-123","roles":["no_such_role"]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown role want 400 got %d", w.Code)
	}

	w = f.do(http.MethodGet, "/api/v1/admin/audit-logs", super, "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit logs want 200 got %d", w.Code)
	}
	if got := f.auditCount(t); got != 6 {
		t.Fatalf("expected 6 audited mutations, got %d", got)
	}
}

func TestAdminLogin(t *testing.T) {
	f := newGatewayFixture(t)
	if _, err := f.container.AuthService.CreateAdmin(context.Background(), "owner", "password-123", true); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}

	if w := f.do(http.MethodPost, "/api/v1/admin/login", "", `{"username":"owner","password":"wrong-pass"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password want 401 got %d", w.Code)
	}
	w := f.do(http.MethodPost, "/api/v1/admin/login", "", `{"username":"owner","password":"password-123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login want 200 got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if w := f.do(http.MethodGet, "/api/v1/admin/categories", resp.Data.Token, ""); w.Code != http.StatusOK {
		t.Fatalf("issued token should authenticate, got %d", w.Code)
	}
}
