package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE CASCADE",
		"CHECK (weight_kg >= 0)",
		"pouches_override",
		"boxes_override",
		"CREATE TABLE IF NOT EXISTS crates",
		"sequence",
		"CREATE TABLE IF NOT EXISTS boxes",
		"customer_id UUID",
		"FOREIGN KEY (shelf_id) REFERENCES shelves(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestContainersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_containers.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS shelves",
		"CREATE TABLE IF NOT EXISTS pallets",
		"location TEXT NOT NULL DEFAULT ''",
		"CHECK (capacity > 0)",
		"CHECK (holding >= 0)",
		"FOREIGN KEY (shelf_id) REFERENCES shelves(id) ON DELETE SET NULL",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMessagingMigrationSeedsDefaultTemplate(t *testing.T) {
	content := readMigration(t, "*_create_messaging.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS sms_statuses",
		"CREATE TABLE IF NOT EXISTS sms_templates",
		"'default'",
		"ON CONFLICT (location_key) DO NOTHING",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
