package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
)

func createTestTask(t *testing.T, db *DB, proj *model.Project, userID int64, title string) *model.Task {
	t.Helper()
	task := &model.Task{ProjectID: proj.ID, Title: title, CreatedBy: userID}
	if err := db.Tasks().Create(context.Background(), task); err != nil {
		t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

func TestTaskCreate_SequentialNumbers(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "user@example.com")
	proj := createTestProject(t, db, user.ID)

	for want := 1; want <= 3; want++ {
		task := createTestTask(t, db, proj, user.ID, "task")
		if task.Number != want {
			t.Errorf("task number = %d, want %d", task.Number, want)
		}
	}

	// Numbers are scoped per project: a second project starts at 1 again.
	other := createTestProject(t, db, user.ID)
	task := createTestTask(t, db, other, user.ID, "first elsewhere")
	if task.Number != 1 {
		t.Errorf("number in new project = %d, want 1", task.Number)
	}
}

func TestTaskAssignees(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "user@example.com")
	helper := createTestUser(t, db, "helper@example.com")
	proj := createTestProject(t, db, user.ID)
	task := createTestTask(t, db, proj, user.ID, "shared work")

	ctx := context.Background()

	if err := db.Tasks().AddAssignee(ctx, task.ID, helper.ID); err != nil {
		t.Fatalf("AddAssignee() error = %v", err)
	}
	// Assigning the same user twice is a conflict, not a no-op.
	if err := db.Tasks().AddAssignee(ctx, task.ID, helper.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate AddAssignee() = %v, want conflict", err)
	}

	got, err := db.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(got.Assignees) != 1 || got.Assignees[0] != helper.ID {
		t.Errorf("assignees = %v, want [%d]", got.Assignees, helper.ID)
	}

	if err := db.Tasks().RemoveAssignee(ctx, task.ID, helper.ID); err != nil {
		t.Fatalf("RemoveAssignee() error = %v", err)
	}
	if err := db.Tasks().RemoveAssignee(ctx, task.ID, helper.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second RemoveAssignee() = %v, want not found", err)
	}
}

func TestTaskListByProject(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "user@example.com")
	proj := createTestProject(t, db, user.ID)

	first := createTestTask(t, db, proj, user.ID, "first")
	createTestTask(t, db, proj, user.ID, "second")
	if err := db.Tasks().AddAssignee(context.Background(), first.ID, user.ID); err != nil {
		t.Fatalf("setup assignee: %v", err)
	}

	tasks, err := db.Tasks().ListByProject(context.Background(), proj.ID)
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Number != 1 || tasks[1].Number != 2 {
		t.Errorf("tasks not in number order: %d, %d", tasks[0].Number, tasks[1].Number)
	}
	if len(tasks[0].Assignees) != 1 {
		t.Errorf("first task assignees = %v, want one entry", tasks[0].Assignees)
	}
}

func TestProjectDelete_CascadesTasks(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "user@example.com")
	proj := createTestProject(t, db, user.ID)
	task := createTestTask(t, db, proj, user.ID, "doomed")

	if err := db.Projects().Delete(context.Background(), proj.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Tasks().GetByID(context.Background(), task.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("task should cascade away with the project, got %v", err)
	}
}
