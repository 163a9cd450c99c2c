package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// validSubscriptionTiers must match the default tier set in
// internal/config. Update when the default SUBSCRIPTION_TIERS changes.
var validSubscriptionTiers = map[string]bool{
	"starter":  true,
	"pro":      true,
	"business": true,
}

// migrationsDir returns the absolute path to migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_SubscriptionDefault checks that any DEFAULT value on the
// subscription column is a member of the default tier set, so a fresh
// schema can't create rows the service would reject as out-of-enum.
func TestMigrations_SubscriptionDefault(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}

	defaultPattern := regexp.MustCompile(`subscription\s+VARCHAR\(\d+\)\s+NOT NULL DEFAULT\s+'([^']+)'`)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		for _, match := range defaultPattern.FindAllStringSubmatch(string(data), -1) {
			if !validSubscriptionTiers[match[1]] {
				t.Errorf("%s: subscription default %q is not a valid tier",
					filepath.Base(f), match[1])
			}
		}
	}
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}
