package testing

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/recipebook/recipebook/db"
)

// PostgresDSNEnv names the variable that enables PostgreSQL-backed tests.
const PostgresDSNEnv = "RECIPEBOOK_TEST_POSTGRES_DSN"

// CreateTestDB creates a migrated SQLite database in a temporary directory.
// A file is used rather than :memory: so concurrent connections share state.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "recipebook.db")
	testDB, err := db.OpenWithMigrations(path, nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// CreatePostgresTestDB opens and migrates the database named by
// RECIPEBOOK_TEST_POSTGRES_DSN, skipping the test when it is unset.
// Tables are truncated on cleanup.
func CreatePostgresTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}

	testDB, err := db.OpenPostgres(dsn, nil)
	if err != nil {
		t.Fatalf("Failed to open postgres test database: %v", err)
	}
	if err := db.Migrate(testDB, db.Postgres, nil); err != nil {
		testDB.Close()
		t.Fatalf("Failed to migrate postgres test database: %v", err)
	}

	t.Cleanup(func() {
		testDB.Exec("TRUNCATE recipe_ingredients, recipes, ingredients RESTART IDENTITY CASCADE")
		testDB.Close()
	})

	return testDB
}
