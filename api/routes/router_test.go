package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posledger/internal/payables"
	"github.com/angelmondragon/posledger/internal/registers"
	pkgAuth "github.com/angelmondragon/posledger/pkg/auth"
	"github.com/angelmondragon/posledger/pkg/auth/session"
	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/logger"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubSessionManager struct{}

func (stubSessionManager) HasSession(context.Context, string) (bool, error) { return true, nil }

type memoryRedis struct {
	data map[string]string
}

func newMemoryRedis() *memoryRedis { return &memoryRedis{data: map[string]string{}} }

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string { return "test:" + scope + ":" + id }

func (m *memoryRedis) Ping(context.Context) error { return nil }

func (m *memoryRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

// stubRegisters answers the read and recalculate calls; anything else panics.
type stubRegisters struct {
	registers.Service
	opened int
}

func (s *stubRegisters) Current(context.Context) (*models.Register, error) {
	return &models.Register{ID: uuid.New(), IsOpen: true}, nil
}

func (s *stubRegisters) RecalculateTotals(_ context.Context, id uuid.UUID) (*models.Register, error) {
	return &models.Register{ID: id}, nil
}

func (s *stubRegisters) Open(_ context.Context, input registers.OpenInput) (*models.Register, error) {
	s.opened++
	return &models.Register{ID: uuid.New(), IsOpen: true, OpenedBy: input.OpenedBy}, nil
}

// stubPayables answers the seller list; anything else panics.
type stubPayables struct {
	payables.Service
	filter  *payables.SellerFilter
	created *payables.SellerInput
}

func (s *stubPayables) CreateSeller(_ context.Context, input payables.SellerInput) (*models.Seller, error) {
	s.created = &input
	return &models.Seller{ID: uuid.New(), Name: input.Name}, nil
}

func (s *stubPayables) ListSellers(_ context.Context, filter payables.SellerFilter) ([]payables.SellerOverview, error) {
	s.filter = &filter
	return []payables.SellerOverview{{
		Seller:       models.Seller{ID: uuid.New(), Name: "Dairy Co"},
		TotalPayable: decimal.RequireFromString("40.25"),
		PendingCount: 1,
	}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0", RequestTimeout: 5 * time.Second},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config, deps Dependencies) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if deps.Sessions == nil {
		deps.Sessions = stubSessionManager{}
	}
	return NewRouter(cfg, logg, deps)
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Posledger-Env"))
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{DB: stubPinger{err: context.DeadlineExceeded}})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "postgres")

	router = newTestRouter(testConfig(), Dependencies{DB: stubPinger{}, Redis: newMemoryRedis()})
	resp = serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("posledger_orders_completed_total 1\n"))
	})
	router := newTestRouter(testConfig(), Dependencies{Metrics: metrics})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "posledger_orders_completed_total")
}

func TestProtectedRoutesRequireJWT(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{Registers: &stubRegisters{}})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/registers/current", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestStaffCanReadCurrentRegister(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{Registers: &stubRegisters{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/registers/current", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := serve(router, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRecalculateRequiresManager(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{Registers: &stubRegisters{}})
	path := "/api/v1/registers/" + uuid.NewString() + "/recalculate"

	staffReq := httptest.NewRequest(http.MethodPost, path, nil)
	staffReq.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	assert.Equal(t, http.StatusForbidden, serve(router, staffReq).Code)

	for _, role := range []enums.UserRole{enums.UserRoleManager, enums.UserRoleAdmin} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, role))
		assert.Equal(t, http.StatusOK, serve(router, req).Code, "role %s", role)
	}
}

func TestSellerRoutesRequireManager(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)
}

func TestSellerListForManagers(t *testing.T) {
	cfg := testConfig()
	sellers := &stubPayables{}
	router := newTestRouter(cfg, Dependencies{Payables: sellers})

	staffReq := httptest.NewRequest(http.MethodGet, "/api/v1/sellers", nil)
	staffReq.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	assert.Equal(t, http.StatusForbidden, serve(router, staffReq).Code)
	assert.Nil(t, sellers.filter)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers?q=dairy&limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleManager))
	resp := serve(router, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"total_payable":"40.25"`)
	assert.Contains(t, resp.Body.String(), `"pending_count":1`)
	require.NotNil(t, sellers.filter)
	assert.Equal(t, payables.SellerFilter{Search: "dairy", Limit: 10}, *sellers.filter)

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/sellers?limit=0", nil)
	bad.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleManager))
	assert.Equal(t, http.StatusBadRequest, serve(router, bad).Code)
}

func TestManagerCanRegisterSeller(t *testing.T) {
	cfg := testConfig()
	sellers := &stubPayables{}
	router := newTestRouter(cfg, Dependencies{Payables: sellers})

	staffReq := httptest.NewRequest(http.MethodPost, "/api/v1/sellers", strings.NewReader(`{"name":"Dairy Co"}`))
	staffReq.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	assert.Equal(t, http.StatusForbidden, serve(router, staffReq).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sellers", strings.NewReader(`{"name":" Dairy Co ","email":"orders@dairy.example"}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleManager))
	resp := serve(router, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotNil(t, sellers.created)
	assert.Equal(t, "Dairy Co", sellers.created.Name)
	assert.Equal(t, "orders@dairy.example", sellers.created.Email)

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/sellers", strings.NewReader(`{"email":"x@y.example"}`))
	missing.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleManager))
	assert.Equal(t, http.StatusBadRequest, serve(router, missing).Code)
}

func TestMoneyRoutesRequireIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	regs := &stubRegisters{}
	router := newTestRouter(cfg, Dependencies{Registers: regs, Redis: newMemoryRedis()})
	token := buildToken(t, cfg, enums.UserRoleStaff)

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/registers/open", strings.NewReader(`{"opening_balance":"100"}`))
	missing.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusBadRequest, serve(router, missing).Code)
	assert.Equal(t, 0, regs.opened)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/registers/open", strings.NewReader(`{"opening_balance":"100"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "open-1")
		assert.Equal(t, http.StatusCreated, serve(router, req).Code)
	}
	assert.Equal(t, 1, regs.opened, "replayed request must not reach the service")
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Name:   "Ravi",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}
