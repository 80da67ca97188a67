package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gigpost/gigpost/internal/db"
	"github.com/gigpost/gigpost/internal/models"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A second pooled connection would see a fresh in-memory database
	database.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := database.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

// createTestUser inserts a user and returns its ID
func createTestUser(t *testing.T, database *sql.DB) string {
	t.Helper()

	users := NewUserRepository(database)
	user := &models.User{
		Email:        "owner@test.com",
		PasswordHash: "x",
		Name:         "Owner",
	}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user.ID
}
