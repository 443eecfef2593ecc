package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("Create() did not set user.ID")
	}
	if user.Privileges != model.PrivilegeUser {
		t.Errorf("default privileges = %q, want %q", user.Privileges, model.PrivilegeUser)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "ada@example.com")

	dup := &model.User{Name: "Imposter", Email: "ada@example.com", PasswordHash: "hash"}
	err := db.Users().Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate error = %v, want conflict", err)
	}
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "ada@example.com")

	got, err := db.Users().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("Email = %q", got.Email)
	}

	if _, err := db.Users().GetByID(context.Background(), 9999); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want not found", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "ada@example.com")

	got, err := db.Users().GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %d, want %d", got.ID, created.ID)
	}

	if _, err := db.Users().GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail(missing) error = %v, want not found", err)
	}
}

func TestUserUpdatePrivileges(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ada@example.com")

	if err := db.Users().UpdatePrivileges(context.Background(), user.ID, model.PrivilegeAdmin); err != nil {
		t.Fatalf("UpdatePrivileges() error = %v", err)
	}

	got, _ := db.Users().GetByID(context.Background(), user.ID)
	if !got.IsAdmin() {
		t.Error("user should be admin after update")
	}
}

func TestUserDelete(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ada@example.com")

	if err := db.Users().Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Users().GetByID(context.Background(), user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want not found", err)
	}
	if err := db.Users().Delete(context.Background(), user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() = %v, want not found", err)
	}
}

func TestUserDelete_ReferencedCreatorIsConflict(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "owner@example.com")
	createTestProject(t, db, user.ID)

	// projects.created_by is NOT NULL, so the foreign key rejects the delete.
	// That must come back typed, not as a raw driver error.
	err := db.Users().Delete(context.Background(), user.ID)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Delete(referenced user) = %v, want conflict", err)
	}

	// The account is untouched.
	if _, err := db.Users().GetByID(context.Background(), user.ID); err != nil {
		t.Errorf("user should survive the rejected delete, got %v", err)
	}
}

func TestUserDelete_CascadesGrants(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	proj := createTestProject(t, db, owner.ID)

	grant := &model.ResourceAccess{
		UserID: member.ID, ResourceType: model.ResourceProject, ResourceID: proj.ID, Role: model.RoleViewer,
	}
	if err := db.Access().Grant(context.Background(), grant); err != nil {
		t.Fatalf("setup grant: %v", err)
	}

	if err := db.Users().Delete(context.Background(), member.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.Access().Find(context.Background(), member.ID, model.ResourceProject, proj.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("grant should cascade away with the user, got %v", err)
	}
}
