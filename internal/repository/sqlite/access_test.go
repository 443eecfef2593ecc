package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
)

func TestGrant_DuplicateTripleRejected(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	proj := createTestProject(t, db, owner.ID)

	first := &model.ResourceAccess{
		UserID: member.ID, ResourceType: model.ResourceProject, ResourceID: proj.ID, Role: model.RoleViewer,
	}
	if err := db.Access().Grant(context.Background(), first); err != nil {
		t.Fatalf("first Grant() error = %v", err)
	}

	// Same (user, type, id) triple with a different role — still rejected.
	// The unique index is what keeps concurrent accepts from double-granting.
	second := &model.ResourceAccess{
		UserID: member.ID, ResourceType: model.ResourceProject, ResourceID: proj.ID, Role: model.RoleOwner,
	}
	err := db.Access().Grant(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Grant() error = %v, want conflict", err)
	}

	// The original grant is untouched.
	got, err := db.Access().Find(context.Background(), member.ID, model.ResourceProject, proj.ID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Role != model.RoleViewer {
		t.Errorf("role = %s, want viewer (losing grant must not overwrite)", got.Role)
	}
}

func TestFind_NoGrant(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	proj := createTestProject(t, db, owner.ID)

	// The creator has no grant row — ownership is derived at the service
	// layer, never stored here.
	_, err := db.Access().Find(context.Background(), owner.ID, model.ResourceProject, proj.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Find() for creator = %v, want not found", err)
	}
}

func TestListByResource(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	proj := createTestProject(t, db, owner.ID)

	for _, u := range []*model.User{a, b} {
		if err := db.Access().Grant(context.Background(), &model.ResourceAccess{
			UserID: u.ID, ResourceType: model.ResourceProject, ResourceID: proj.ID, Role: model.RoleEditor,
		}); err != nil {
			t.Fatalf("setup grant: %v", err)
		}
	}

	grants, err := db.Access().ListByResource(context.Background(), model.ResourceProject, proj.ID)
	if err != nil {
		t.Fatalf("ListByResource() error = %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("got %d grants, want 2", len(grants))
	}
}

func TestRevoke(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	proj := createTestProject(t, db, owner.ID)

	if err := db.Access().Grant(context.Background(), &model.ResourceAccess{
		UserID: member.ID, ResourceType: model.ResourceProject, ResourceID: proj.ID, Role: model.RoleViewer,
	}); err != nil {
		t.Fatalf("setup grant: %v", err)
	}

	if err := db.Access().Revoke(context.Background(), member.ID, model.ResourceProject, proj.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if err := db.Access().Revoke(context.Background(), member.ID, model.ResourceProject, proj.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Revoke() = %v, want not found", err)
	}
}
