package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

var _ repository.AccessRepository = (*AccessDB)(nil)

// AccessDB implements repository.AccessRepository.
//
// The UNIQUE (user_id, resource_type, resource_id) index is the whole
// concurrency story for grants: whichever of two racing inserts commits
// second is rejected by SQLite and reported as a conflict, so access can
// never be double-granted.
type AccessDB struct {
	db *DB
}

// Grant inserts an explicit role grant. A concurrent (or earlier) grant on
// the same triple comes back as apperror.ErrConflict via ConflictingGrant.
func (a *AccessDB) Grant(ctx context.Context, g *model.ResourceAccess) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}

	_, err := a.db.conn.ExecContext(ctx,
		`INSERT INTO resource_access (id, user_id, resource_type, resource_id, role)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID.String(),
		g.UserID,
		g.ResourceType,
		g.ResourceID.String(),
		string(g.Role),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictingGrant()
		}
		return fmt.Errorf("sqlite: inserting grant: %w", err)
	}
	return nil
}

// Find returns the grant for (user, type, id), or apperror.ErrNotFound.
// Creator-as-owner is NOT consulted here — the service derives it.
func (a *AccessDB) Find(ctx context.Context, userID int64, resourceType string, resourceID uuid.UUID) (*model.ResourceAccess, error) {
	var g model.ResourceAccess
	var role string
	err := a.db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, resource_type, resource_id, role
		 FROM resource_access
		 WHERE user_id = ? AND resource_type = ? AND resource_id = ?`,
		userID, resourceType, resourceID.String(),
	).Scan(&g.ID, &g.UserID, &g.ResourceType, &g.ResourceID, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("grant", resourceID.String())
		}
		return nil, fmt.Errorf("sqlite: finding grant: %w", err)
	}
	g.Role = model.Role(role)
	return &g, nil
}

// ListByResource returns every explicit grant on one resource.
func (a *AccessDB) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]model.ResourceAccess, error) {
	rows, err := a.db.conn.QueryContext(ctx,
		`SELECT id, user_id, resource_type, resource_id, role
		 FROM resource_access
		 WHERE resource_type = ? AND resource_id = ?
		 ORDER BY user_id`,
		resourceType, resourceID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing grants: %w", err)
	}
	defer rows.Close()

	var grants []model.ResourceAccess
	for rows.Next() {
		var g model.ResourceAccess
		var role string
		if err := rows.Scan(&g.ID, &g.UserID, &g.ResourceType, &g.ResourceID, &role); err != nil {
			return nil, fmt.Errorf("sqlite: scanning grant row: %w", err)
		}
		g.Role = model.Role(role)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating grants: %w", err)
	}
	return grants, nil
}

// Revoke deletes a grant. Deleting a grant that does not exist is reported
// as not found so revocation endpoints can 404 meaningfully.
func (a *AccessDB) Revoke(ctx context.Context, userID int64, resourceType string, resourceID uuid.UUID) error {
	res, err := a.db.conn.ExecContext(ctx,
		`DELETE FROM resource_access
		 WHERE user_id = ? AND resource_type = ? AND resource_id = ?`,
		userID, resourceType, resourceID.String())
	if err != nil {
		return fmt.Errorf("sqlite: revoking grant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("grant", resourceID.String())
	}
	return nil
}
