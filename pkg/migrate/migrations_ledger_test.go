package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/posledger/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file found for %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContainsAll(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMenuItemsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_menu_items.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS menu_items",
		"CHECK (stock_quantity >= 0)",
		"low_stock_threshold integer NOT NULL DEFAULT 10",
		"DROP TABLE IF EXISTS menu_items",
	})
}

func TestRegistersMigrationAllowsSingleOpenSession(t *testing.T) {
	content := readMigration(t, "*_create_registers.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS registers",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_registers_single_open ON registers (is_open) WHERE is_open",
		"DROP TABLE IF EXISTS registers",
	})
}

func TestOrdersMigrationIndexes(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")
	assertContainsAll(t, content, []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"CREATE INDEX IF NOT EXISTS idx_orders_customer_status ON orders (customer_id, status)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity >= 1)",
	})
}

func TestPayablesMigrationKeepsRemainingInRange(t *testing.T) {
	content := readMigration(t, "*_create_payables.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS payables",
		"CHECK (remaining_amount >= 0 AND remaining_amount <= amount)",
		"CREATE TABLE IF NOT EXISTS payable_payments",
	})
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestNotificationsMigrationDedupesEvents(t *testing.T) {
	content := readMigration(t, "*_create_notifications.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS notifications",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_event ON notifications (event_id) WHERE event_id IS NOT NULL",
		"DROP TYPE IF EXISTS notification_type",
	})
}
