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

var _ repository.InvitationRepository = (*InvitationDB)(nil)

// InvitationDB implements repository.InvitationRepository.
type InvitationDB struct {
	db *DB
}

const invitationColumns = `id, sender_id, receiver_id, receiver_email, resource_type, resource_id, role, status, created_at`

// Create inserts a new invitation in its initial status (pending unless the
// caller set one explicitly).
func (i *InvitationDB) Create(ctx context.Context, inv *model.Invitation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = model.InvitationPending
	}
	inv.CreatedAt = time.Now().UTC()

	_, err := i.db.conn.ExecContext(ctx,
		`INSERT INTO invitations (id, sender_id, receiver_id, receiver_email, resource_type, resource_id, role, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID.String(),
		inv.SenderID,
		inv.ReceiverID,
		inv.ReceiverEmail,
		inv.ResourceType,
		inv.ResourceID.String(),
		string(inv.Role),
		string(inv.Status),
		inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting invitation: %w", err)
	}
	return nil
}

func scanInvitation(scan func(dest ...any) error) (*model.Invitation, error) {
	var inv model.Invitation
	var role, status string
	err := scan(
		&inv.ID,
		&inv.SenderID,
		&inv.ReceiverID,
		&inv.ReceiverEmail,
		&inv.ResourceType,
		&inv.ResourceID,
		&role,
		&status,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Role = model.Role(role)
	inv.Status = model.InvitationStatus(status)
	return &inv, nil
}

// GetByID retrieves one invitation.
func (i *InvitationDB) GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	row := i.db.conn.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id.String())

	inv, err := scanInvitation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("invitation", id.String())
		}
		return nil, fmt.Errorf("sqlite: getting invitation %s: %w", id, err)
	}
	return inv, nil
}

func (i *InvitationDB) list(ctx context.Context, query string, args ...any) ([]model.Invitation, error) {
	rows, err := i.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing invitations: %w", err)
	}
	defer rows.Close()

	var invs []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning invitation row: %w", err)
		}
		invs = append(invs, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating invitations: %w", err)
	}
	return invs, nil
}

// ListSent returns invitations the user sent, newest first.
func (i *InvitationDB) ListSent(ctx context.Context, senderID int64) ([]model.Invitation, error) {
	return i.list(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE sender_id = ? ORDER BY created_at DESC`,
		senderID)
}

// ListReceived returns invitations addressed to the user, either directly by
// ID or by their email (sent before the account existed), newest first.
func (i *InvitationDB) ListReceived(ctx context.Context, userID int64, email string) ([]model.Invitation, error) {
	return i.list(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE receiver_id = ? OR (receiver_id IS NULL AND receiver_email = ?)
		 ORDER BY created_at DESC`,
		userID, email)
}

// Transition flips an invitation from one status to another.
//
// The WHERE clause pins the expected source status, so of two concurrent
// accept attempts exactly one UPDATE matches a row; the other affects zero
// rows and reports apperror.ErrInvalidState. No lock, no read-modify-write —
// the database serializes the race.
func (i *InvitationDB) Transition(ctx context.Context, id uuid.UUID, from, to model.InvitationStatus) error {
	res, err := i.db.conn.ExecContext(ctx,
		`UPDATE invitations SET status = ? WHERE id = ? AND status = ?`,
		string(to), id.String(), string(from))
	if err != nil {
		return fmt.Errorf("sqlite: transitioning invitation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.InvalidState(fmt.Sprintf("invitation is not %s", from))
	}
	return nil
}

// AttachReceiver binds pending invitations sent to an email address to the
// account that just registered with it.
func (i *InvitationDB) AttachReceiver(ctx context.Context, email string, userID int64) error {
	if email == "" {
		return nil
	}
	_, err := i.db.conn.ExecContext(ctx,
		`UPDATE invitations SET receiver_id = ?
		 WHERE receiver_id IS NULL AND receiver_email = ? AND status = ?`,
		userID, email, string(model.InvitationPending))
	if err != nil {
		return fmt.Errorf("sqlite: attaching receiver to invitations: %w", err)
	}
	return nil
}
