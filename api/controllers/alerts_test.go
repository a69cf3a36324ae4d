package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posledger/internal/notifications"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
)

type testAlertsService struct {
	markReadFn    func(ctx context.Context, alertID uuid.UUID) error
	markAllReadFn func(ctx context.Context) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testAlertsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testAlertsService) MarkRead(ctx context.Context, alertID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, alertID)
	}
	return nil
}

func (s *testAlertsService) MarkAllRead(ctx context.Context) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx)
	}
	return 0, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.RouteContext(req.Context())
	if routeCtx == nil {
		routeCtx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	}
	routeCtx.URLParams.Add(key, value)
	return req
}

func TestMarkAlertReadSuccess(t *testing.T) {
	alertID := uuid.New()
	var got uuid.UUID
	svc := &testAlertsService{markReadFn: func(_ context.Context, id uuid.UUID) error {
		got = id
		return nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+alertID.String()+"/read", nil)
	req = addRouteParam(req, "alertId", alertID.String())
	resp := httptest.NewRecorder()
	MarkAlertRead(svc, quietLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, alertID, got)
	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data["read"])
}

func TestMarkAlertReadInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/invalid/read", nil)
	req = addRouteParam(req, "alertId", "invalid")
	resp := httptest.NewRecorder()
	MarkAlertRead(&testAlertsService{}, quietLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkAlertReadMissing(t *testing.T) {
	svc := &testAlertsService{markReadFn: func(context.Context, uuid.UUID) error {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
	}}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = addRouteParam(req, "alertId", uuid.NewString())
	resp := httptest.NewRecorder()
	MarkAlertRead(svc, quietLogger())(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMarkAllAlertsRead(t *testing.T) {
	svc := &testAlertsService{markAllReadFn: func(context.Context) (int64, error) { return 5, nil }}

	resp := httptest.NewRecorder()
	MarkAllAlertsRead(svc, quietLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/read-all", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data map[string]float64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, float64(5), envelope.Data["updated"])
}

func TestListAlertsParsesQuery(t *testing.T) {
	var got notifications.ListParams
	svc := &testAlertsService{listFn: func(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
		got = params
		return &notifications.ListResult{Unread: 2}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?limit=10&cursor=abc&unreadOnly=true", nil)
	resp := httptest.NewRecorder()
	ListAlerts(svc, quietLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, notifications.ListParams{Limit: 10, Cursor: "abc", UnreadOnly: true}, got)
}

func TestListAlertsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?limit=-1", nil)
	resp := httptest.NewRecorder()
	ListAlerts(&testAlertsService{}, quietLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
