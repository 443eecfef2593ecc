package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

var _ repository.ProjectRepository = (*ProjectDB)(nil)

// ProjectDB implements repository.ProjectRepository.
type ProjectDB struct {
	db *DB
}

const projectColumns = `id, name, description, status, visibility, created_by, created_at`

// Create inserts a new project.
func (p *ProjectDB) Create(ctx context.Context, proj *model.Project) error {
	if proj.ID == uuid.Nil {
		proj.ID = uuid.New()
	}
	if proj.Status == "" {
		proj.Status = model.ProjectActive
	}
	if proj.Visibility == "" {
		proj.Visibility = model.VisibilityPrivate
	}
	proj.CreatedAt = time.Now().UTC()

	_, err := p.db.conn.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, status, visibility, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		proj.ID.String(),
		proj.Name,
		proj.Description,
		proj.Status,
		proj.Visibility,
		proj.CreatedBy,
		proj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID.
func (p *ProjectDB) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var proj model.Project
	err := p.db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id.String(),
	).Scan(
		&proj.ID,
		&proj.Name,
		&proj.Description,
		&proj.Status,
		&proj.Visibility,
		&proj.CreatedBy,
		&proj.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("project", id.String())
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}
	return &proj, nil
}

// ListForUser returns the projects visible to a user: the ones they created
// plus the ones shared with them through a grant. One query, no N+1.
func (p *ProjectDB) ListForUser(ctx context.Context, userID int64) ([]model.Project, error) {
	rows, err := p.db.conn.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE created_by = ?
		    OR id IN (SELECT resource_id FROM resource_access
		              WHERE user_id = ? AND resource_type = ?)
		 ORDER BY created_at DESC`,
		userID, userID, model.ResourceProject)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var proj model.Project
		if err := rows.Scan(
			&proj.ID,
			&proj.Name,
			&proj.Description,
			&proj.Status,
			&proj.Visibility,
			&proj.CreatedBy,
			&proj.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning project row: %w", err)
		}
		projects = append(projects, proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}
	return projects, nil
}

// Update rewrites the mutable project fields.
func (p *ProjectDB) Update(ctx context.Context, proj *model.Project) error {
	res, err := p.db.conn.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, status = ?, visibility = ? WHERE id = ?`,
		proj.Name, proj.Description, proj.Status, proj.Visibility, proj.ID.String())
	if err != nil {
		return fmt.Errorf("sqlite: updating project %s: %w", proj.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("project", proj.ID.String())
	}
	return nil
}

// Delete removes a project and everything hanging off it.
//
// Tasks, ideas and their votes go via ON DELETE CASCADE. Grants and
// invitations reference the project polymorphically (resource_type +
// resource_id, no foreign key), so they are swept explicitly in the same
// transaction — a deleted project must leave no grant behind that a future
// resource could collide with.
func (p *ProjectDB) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := p.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("project", id.String())
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resource_access WHERE resource_type = ? AND resource_id = ?`,
		model.ResourceProject, id.String()); err != nil {
		return fmt.Errorf("sqlite: sweeping grants for project %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM invitations WHERE resource_type = ? AND resource_id = ?`,
		model.ResourceProject, id.String()); err != nil {
		return fmt.Errorf("sqlite: sweeping invitations for project %s: %w", id, err)
	}

	return tx.Commit()
}
