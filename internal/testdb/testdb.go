// Package testdb opens an isolated in-memory SQLite database carrying the
// ledger schema for package tests.
package testdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT UNIQUE,
  name TEXT NOT NULL,
  phone TEXT,
  password_hash TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  credit_balance NUMERIC NOT NULL DEFAULT 0,
  total_spent NUMERIC NOT NULL DEFAULT 0,
  loyalty_points INTEGER NOT NULL DEFAULT 0,
  total_points_earned INTEGER NOT NULL DEFAULT 0,
  total_points_redeemed INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (loyalty_points >= 0)
);`, `
CREATE TABLE IF NOT EXISTS sellers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  contact TEXT,
  email TEXT,
  notes TEXT,
  credit_balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS menu_items (
  id TEXT PRIMARY KEY,
  category TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  purchase_price NUMERIC NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 10,
  availability TEXT NOT NULL DEFAULT 'available',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK (stock_quantity >= 0)
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT,
  staff_id TEXT NOT NULL,
  order_type TEXT NOT NULL DEFAULT 'dine_in',
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal NUMERIC NOT NULL DEFAULT 0,
  discount NUMERIC NOT NULL DEFAULT 0,
  delivery_fee NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL DEFAULT 0,
  payment_method TEXT,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  paid_amount NUMERIC NOT NULL DEFAULT 0,
  loyalty_points_used INTEGER NOT NULL DEFAULT 0,
  loyalty_points_earned INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  completed_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  menu_item_id TEXT NOT NULL,
  item_name TEXT NOT NULL,
  item_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  subtotal NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS registers (
  id TEXT PRIMARY KEY,
  opened_by TEXT NOT NULL,
  opened_at DATETIME NOT NULL,
  opening_balance NUMERIC NOT NULL DEFAULT 0,
  closed_by TEXT,
  closed_at DATETIME,
  closing_balance NUMERIC,
  cash_total NUMERIC NOT NULL DEFAULT 0,
  credit_total NUMERIC NOT NULL DEFAULT 0,
  qr_total NUMERIC NOT NULL DEFAULT 0,
  is_open INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_registers_single_open ON registers (is_open) WHERE is_open = 1;`, `
CREATE TABLE IF NOT EXISTS credit_transactions (
  id TEXT PRIMARY KEY,
  owner_kind TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  order_id TEXT,
  payable_id TEXT,
  amount NUMERIC NOT NULL,
  action TEXT NOT NULL,
  balance_after NUMERIC NOT NULL,
  note TEXT,
  staff_id TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS loyalty_transactions (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  type TEXT NOT NULL,
  points INTEGER NOT NULL,
  order_id TEXT,
  description TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payables (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  remaining_amount NUMERIC NOT NULL CHECK (remaining_amount >= 0),
  status TEXT NOT NULL DEFAULT 'pending',
  description TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payable_payments (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  payable_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  payment_mode TEXT NOT NULL,
  remark TEXT,
  staff_id TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`, `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  event_id TEXT UNIQUE,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a fresh database with the full ledger schema. Every call gets
// its own named in-memory database so tests never share rows.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// Client wraps Open in the db.Client used by services.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromConn(conn), conn
}

// SeedMenuItem inserts a menu item with the given price and stock.
func SeedMenuItem(t *testing.T, conn *gorm.DB, name string, price string, stock int) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		ID:                uuid.New(),
		Name:              name,
		Category:          "mains",
		Price:             decimal.RequireFromString(price),
		PurchasePrice:     decimal.Zero,
		StockQuantity:     stock,
		LowStockThreshold: 10,
		Availability:      enums.AvailabilityAvailable,
		IsActive:          true,
	}
	if stock == 0 {
		item.Availability = enums.AvailabilityOutOfStock
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

// SeedUser inserts a user with the given role.
func SeedUser(t *testing.T, conn *gorm.DB, name string, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		ID:            uuid.New(),
		Name:          name,
		Role:          role,
		CreditBalance: decimal.Zero,
		TotalSpent:    decimal.Zero,
		IsActive:      true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// SeedSeller inserts a seller with a zero balance.
func SeedSeller(t *testing.T, conn *gorm.DB, name string) *models.Seller {
	t.Helper()
	seller := &models.Seller{ID: uuid.New(), Name: name, CreditBalance: decimal.Zero}
	require.NoError(t, conn.Create(seller).Error)
	return seller
}

// SeedOpenRegister inserts an open register opened at the given instant.
func SeedOpenRegister(t *testing.T, conn *gorm.DB, openedBy uuid.UUID, openedAt time.Time) *models.Register {
	t.Helper()
	reg := &models.Register{
		ID:             uuid.New(),
		OpenedBy:       openedBy,
		OpenedAt:       openedAt.UTC(),
		OpeningBalance: decimal.Zero,
		CashTotal:      decimal.Zero,
		CreditTotal:    decimal.Zero,
		QRTotal:        decimal.Zero,
		IsOpen:         true,
	}
	require.NoError(t, conn.Create(reg).Error)
	return reg
}

// SeedCompletedOrder inserts a paid order settled at completedAt.
func SeedCompletedOrder(t *testing.T, conn *gorm.DB, customerID *uuid.UUID, method enums.PaymentMethod, total string, completedAt time.Time) *models.Order {
	t.Helper()
	amount := decimal.RequireFromString(total)
	at := completedAt.UTC()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ZRP" + at.Format("20060102") + strings.ToUpper(uuid.NewString()[:6]),
		CustomerID:    customerID,
		StaffID:       uuid.New(),
		OrderType:     enums.OrderTypeDineIn,
		Status:        enums.OrderStatusCompleted,
		Subtotal:      amount,
		Discount:      decimal.Zero,
		DeliveryFee:   decimal.Zero,
		Total:         amount,
		PaymentMethod: &method,
		PaymentStatus: enums.PaymentStatusCompleted,
		PaidAmount:    amount,
		CreatedAt:     at,
		CompletedAt:   &at,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}
