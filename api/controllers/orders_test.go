package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posledger/api/middleware"
	"github.com/angelmondragon/posledger/internal/orders"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
)

type stubOrders struct {
	orders.Service
	created *orders.CreateOrderInput
	paid    *orders.CompletePaymentInput
	removed *orders.RemoveItemInput
	payErr  error
}

func (s *stubOrders) CreateOrder(_ context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
	s.created = &input
	return &orders.CreateOrderResult{Order: &models.Order{ID: uuid.New(), OrderNumber: "ZRP20260302ABCDEF"}}, nil
}

func (s *stubOrders) CompletePayment(_ context.Context, input orders.CompletePaymentInput) (*orders.CompletePaymentResult, error) {
	s.paid = &input
	if s.payErr != nil {
		return nil, s.payErr
	}
	return &orders.CompletePaymentResult{Order: &models.Order{ID: input.OrderID}, PointsEarned: 24}, nil
}

func (s *stubOrders) RemoveItem(_ context.Context, input orders.RemoveItemInput) (*models.Order, error) {
	s.removed = &input
	return &models.Order{ID: input.OrderID}, nil
}

func withStaff(req *http.Request, id uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), id.String())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestOrderCreatePassesActorAndLines(t *testing.T) {
	svc := &stubOrders{}
	staffID := uuid.New()
	itemID := uuid.New()
	body := `{"order_type":"dine_in","discount":"10.50","notes":"  no onions  ","items":[{"menu_item_id":"` + itemID.String() + `","quantity":2}]}`

	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), staffID, enums.UserRoleStaff)
	resp := httptest.NewRecorder()
	OrderCreate(svc, quietLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotNil(t, svc.created)
	assert.Equal(t, staffID, svc.created.Actor.UserID)
	assert.Equal(t, enums.UserRoleStaff, svc.created.Actor.Role)
	assert.True(t, decimal.RequireFromString("10.50").Equal(svc.created.Discount))
	require.NotNil(t, svc.created.Notes)
	assert.Equal(t, "no onions", *svc.created.Notes)
	require.Len(t, svc.created.Items, 1)
	assert.Equal(t, orders.ItemInput{MenuItemID: itemID, Quantity: 2}, svc.created.Items[0])
}

func TestOrderCreateValidatesBody(t *testing.T) {
	cases := map[string]string{
		"no items":      `{"order_type":"dine_in","items":[]}`,
		"zero quantity": `{"order_type":"dine_in","items":[{"menu_item_id":"` + uuid.NewString() + `","quantity":0}]}`,
		"unknown field": `{"order_type":"dine_in","table":4,"items":[{"menu_item_id":"` + uuid.NewString() + `","quantity":1}]}`,
	}
	for name, body := range cases {
		svc := &stubOrders{}
		req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.UserRoleStaff)
		resp := httptest.NewRecorder()
		OrderCreate(svc, quietLogger())(resp, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code, name)
		assert.Nil(t, svc.created, name)
	}
}

func TestOrderCreateRequiresStaffContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	OrderCreate(&stubOrders{}, quietLogger())(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestOrderCompletePaymentMapsPreconditionFailure(t *testing.T) {
	svc := &stubOrders{payErr: pkgerrors.Precondition(pkgerrors.ReasonNoOpenRegister, "no open register")}
	orderID := uuid.New()
	req := withStaff(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_method":"cash"}`)), uuid.New(), enums.UserRoleStaff)
	req = addRouteParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	OrderCompletePayment(svc, quietLogger())(resp, req)

	assert.Equal(t, http.StatusPreconditionFailed, resp.Code)
	assert.Contains(t, resp.Body.String(), string(pkgerrors.ReasonNoOpenRegister))
	require.NotNil(t, svc.paid)
	assert.Equal(t, orderID, svc.paid.OrderID)
	assert.Equal(t, enums.PaymentMethodCash, svc.paid.Method)
}

func TestOrderRemoveItemBodyIsOptional(t *testing.T) {
	svc := &stubOrders{}
	orderID, itemID := uuid.New(), uuid.New()

	req := withStaff(httptest.NewRequest(http.MethodDelete, "/", nil), uuid.New(), enums.UserRoleStaff)
	req = addRouteParam(req, "orderId", orderID.String())
	req = addRouteParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	OrderRemoveItem(svc, quietLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Nil(t, svc.removed.Quantity)

	req = withStaff(httptest.NewRequest(http.MethodDelete, "/", strings.NewReader(`{"quantity":1}`)), uuid.New(), enums.UserRoleStaff)
	req = addRouteParam(req, "orderId", orderID.String())
	req = addRouteParam(req, "itemId", itemID.String())
	resp = httptest.NewRecorder()
	OrderRemoveItem(svc, quietLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.removed.Quantity)
	assert.Equal(t, 1, *svc.removed.Quantity)
}

func TestOrderListRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=shipped", nil)
	resp := httptest.NewRecorder()
	OrderList(&stubOrders{}, quietLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
