package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
)

// countWhere counts rows directly. Some cascade targets (assignees, votes)
// have no repository lookup of their own, so the assertions go to the tables.
func countWhere(t *testing.T, db *DB, table, column, value string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE `+column+` = ?`, value).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

func TestProjectGetByID_Missing(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "owner@example.com")
	proj := createTestProject(t, db, user.ID)

	got, err := db.Projects().GetByID(context.Background(), proj.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != proj.Name {
		t.Errorf("Name = %q, want %q", got.Name, proj.Name)
	}

	if err := db.Projects().Delete(context.Background(), proj.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Projects().GetByID(context.Background(), proj.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want not found", err)
	}
	if err := db.Projects().Delete(context.Background(), proj.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() = %v, want not found", err)
	}
}

func TestProjectUpdate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "owner@example.com")
	proj := createTestProject(t, db, user.ID)

	proj.Name = "Renamed"
	proj.Visibility = model.VisibilityPublic
	if err := db.Projects().Update(context.Background(), proj); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := db.Projects().GetByID(context.Background(), proj.ID)
	if got.Name != "Renamed" || got.Visibility != model.VisibilityPublic {
		t.Errorf("after update: name=%q visibility=%q", got.Name, got.Visibility)
	}
}

func TestProjectListForUser_IncludesShared(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	own := createTestProject(t, db, owner.ID)
	shared := createTestProject(t, db, owner.ID)

	grant := &model.ResourceAccess{
		UserID: member.ID, ResourceType: model.ResourceProject, ResourceID: shared.ID, Role: model.RoleViewer,
	}
	if err := db.Access().Grant(context.Background(), grant); err != nil {
		t.Fatalf("setup grant: %v", err)
	}

	got, err := db.Projects().ListForUser(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("member sees %d projects, want 1", len(got))
	}
	if got[0].ID != shared.ID {
		t.Errorf("member sees %s, want the shared project %s", got[0].ID, shared.ID)
	}

	if got, _ := db.Projects().ListForUser(context.Background(), owner.ID); len(got) != 2 {
		t.Errorf("owner sees %d projects, want 2 (own=%s)", len(got), own.ID)
	}
}

// Deleting a project must take everything under it: tasks and their
// assignees, ideas and their votes via the foreign keys, grants and
// invitations via the explicit sweep.
func TestProjectDelete_SweepsEverything(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	proj := createTestProject(t, db, owner.ID)

	task := createTestTask(t, db, proj, owner.ID, "wire the thing")
	if err := db.Tasks().AddAssignee(context.Background(), task.ID, member.ID); err != nil {
		t.Fatalf("setup assignee: %v", err)
	}
	idea := createTestIdea(t, db, proj, owner.ID, "do less")
	if err := db.Ideas().Vote(context.Background(), idea.ID, member.ID, 1); err != nil {
		t.Fatalf("setup vote: %v", err)
	}
	grant := &model.ResourceAccess{
		UserID: member.ID, ResourceType: model.ResourceProject, ResourceID: proj.ID, Role: model.RoleEditor,
	}
	if err := db.Access().Grant(context.Background(), grant); err != nil {
		t.Fatalf("setup grant: %v", err)
	}
	inv := createTestInvitation(t, db, owner.ID, "invitee@example.com", proj)

	// A second project must survive the delete untouched.
	other := createTestProject(t, db, owner.ID)
	otherTask := createTestTask(t, db, other, owner.ID, "unrelated")

	if err := db.Projects().Delete(context.Background(), proj.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.Tasks().GetByID(context.Background(), task.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("task after delete = %v, want not found", err)
	}
	if _, err := db.Ideas().GetByID(context.Background(), idea.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("idea after delete = %v, want not found", err)
	}
	if _, err := db.Access().Find(context.Background(), member.ID, model.ResourceProject, proj.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("grant after delete = %v, want not found", err)
	}
	if _, err := db.Invitations().GetByID(context.Background(), inv.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("invitation after delete = %v, want not found", err)
	}
	if n := countWhere(t, db, "task_assignees", "task_id", task.ID.String()); n != 0 {
		t.Errorf("%d assignee rows survived the delete", n)
	}
	if n := countWhere(t, db, "idea_votes", "idea_id", idea.ID.String()); n != 0 {
		t.Errorf("%d vote rows survived the delete", n)
	}

	if _, err := db.Projects().GetByID(context.Background(), other.ID); err != nil {
		t.Errorf("unrelated project caught in the delete: %v", err)
	}
	if _, err := db.Tasks().GetByID(context.Background(), otherTask.ID); err != nil {
		t.Errorf("unrelated task caught in the delete: %v", err)
	}
}
