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

var _ repository.IdeaRepository = (*IdeaDB)(nil)

// IdeaDB implements repository.IdeaRepository.
type IdeaDB struct {
	db *DB
}

// Create inserts an idea, assigning the project-scoped sequential number the
// same way TaskDB.Create does: MAX+1 in a subselect, unique constraint as
// the backstop, bounded retry on a lost race.
func (i *IdeaDB) Create(ctx context.Context, idea *model.Idea) error {
	if idea.ID == uuid.Nil {
		idea.ID = uuid.New()
	}
	if idea.Status == "" {
		idea.Status = "pending"
	}
	if idea.Priority == "" {
		idea.Priority = "medium"
	}
	if idea.Implementability == "" {
		idea.Implementability = "medium"
	}
	if idea.Impact == "" {
		idea.Impact = "medium"
	}
	idea.CreatedAt = time.Now().UTC()

	var lastErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		_, err := i.db.conn.ExecContext(ctx,
			`INSERT INTO ideas (id, project_id, number, title, description, category, status, priority, implementability, impact, votes, created_by, created_at)
			 SELECT ?, ?, COALESCE(MAX(number), 0) + 1, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?
			 FROM ideas WHERE project_id = ?`,
			idea.ID.String(),
			idea.ProjectID.String(),
			idea.Title,
			idea.Description,
			idea.Category,
			idea.Status,
			idea.Priority,
			idea.Implementability,
			idea.Impact,
			idea.CreatedBy,
			idea.CreatedAt,
			idea.ProjectID.String(),
		)
		if err == nil {
			return i.db.conn.QueryRowContext(ctx,
				`SELECT number FROM ideas WHERE id = ?`, idea.ID.String(),
			).Scan(&idea.Number)
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("sqlite: inserting idea: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("sqlite: assigning idea number after %d attempts: %w", maxNumberRetries, lastErr)
}

const ideaColumns = `id, project_id, number, title, description, category, status, priority, implementability, impact, votes, created_by, created_at`

func scanIdea(scan func(dest ...any) error) (*model.Idea, error) {
	var idea model.Idea
	err := scan(
		&idea.ID,
		&idea.ProjectID,
		&idea.Number,
		&idea.Title,
		&idea.Description,
		&idea.Category,
		&idea.Status,
		&idea.Priority,
		&idea.Implementability,
		&idea.Impact,
		&idea.Votes,
		&idea.CreatedBy,
		&idea.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &idea, nil
}

// GetByID retrieves one idea.
func (i *IdeaDB) GetByID(ctx context.Context, id uuid.UUID) (*model.Idea, error) {
	row := i.db.conn.QueryRowContext(ctx,
		`SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id.String())

	idea, err := scanIdea(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("idea", id.String())
		}
		return nil, fmt.Errorf("sqlite: getting idea %s: %w", id, err)
	}
	return idea, nil
}

// ListByProject returns a project's ideas, most voted first, then by number.
func (i *IdeaDB) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Idea, error) {
	rows, err := i.db.conn.QueryContext(ctx,
		`SELECT `+ideaColumns+` FROM ideas WHERE project_id = ? ORDER BY votes DESC, number`,
		projectID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing ideas: %w", err)
	}
	defer rows.Close()

	var ideas []model.Idea
	for rows.Next() {
		idea, err := scanIdea(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning idea row: %w", err)
		}
		ideas = append(ideas, *idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating ideas: %w", err)
	}
	return ideas, nil
}

// Update rewrites the mutable idea fields. Votes are only touched by
// Vote/Unvote; number and project are immutable.
func (i *IdeaDB) Update(ctx context.Context, idea *model.Idea) error {
	res, err := i.db.conn.ExecContext(ctx,
		`UPDATE ideas SET title = ?, description = ?, category = ?, status = ?, priority = ?, implementability = ?, impact = ? WHERE id = ?`,
		idea.Title, idea.Description, idea.Category, idea.Status,
		idea.Priority, idea.Implementability, idea.Impact, idea.ID.String())
	if err != nil {
		return fmt.Errorf("sqlite: updating idea %s: %w", idea.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("idea", idea.ID.String())
	}
	return nil
}

// Delete removes an idea; its votes cascade.
func (i *IdeaDB) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := i.db.conn.ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: deleting idea %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("idea", id.String())
	}
	return nil
}

// Vote records a user's ±1 vote and bumps the idea's counter in the same
// transaction. The UNIQUE (idea_id, user_id) constraint turns a second vote
// by the same user into a conflict — the counter is only ever adjusted when
// the vote row actually landed.
func (i *IdeaDB) Vote(ctx context.Context, ideaID uuid.UUID, userID int64, value int) error {
	if value != 1 && value != -1 {
		return apperror.ValidationFailed("value", "vote value must be 1 or -1")
	}

	tx, err := i.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning vote transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO idea_votes (id, idea_id, user_id, value, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), ideaID.String(), userID, value, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("vote", ideaID.String())
		}
		return fmt.Errorf("sqlite: inserting vote: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE ideas SET votes = votes + ? WHERE id = ?`, value, ideaID.String())
	if err != nil {
		return fmt.Errorf("sqlite: updating vote counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("idea", ideaID.String())
	}

	return tx.Commit()
}

// Unvote removes the user's vote and reverses its effect on the counter.
func (i *IdeaDB) Unvote(ctx context.Context, ideaID uuid.UUID, userID int64) error {
	tx, err := i.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning unvote transaction: %w", err)
	}
	defer tx.Rollback()

	var value int
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM idea_votes WHERE idea_id = ? AND user_id = ?`,
		ideaID.String(), userID,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("vote", ideaID.String())
		}
		return fmt.Errorf("sqlite: reading vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM idea_votes WHERE idea_id = ? AND user_id = ?`,
		ideaID.String(), userID); err != nil {
		return fmt.Errorf("sqlite: deleting vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ideas SET votes = votes - ? WHERE id = ?`, value, ideaID.String()); err != nil {
		return fmt.Errorf("sqlite: updating vote counter: %w", err)
	}

	return tx.Commit()
}
