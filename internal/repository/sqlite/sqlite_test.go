package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/taskboard/internal/model"
)

// newTestDB opens a fresh in-memory database with the full schema applied.
// t.Cleanup closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$04$notarealhashbutgoodenough",
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestProject inserts a project owned by userID.
func createTestProject(t *testing.T, db *DB, userID int64) *model.Project {
	t.Helper()
	proj := &model.Project{
		Name:       "Test Project",
		Status:     model.ProjectActive,
		Visibility: model.VisibilityPrivate,
		CreatedBy:  userID,
	}
	if err := db.Projects().Create(context.Background(), proj); err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return proj
}
