package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

var _ repository.DocumentRepository = (*DocumentDB)(nil)

// DocumentDB implements repository.DocumentRepository.
//
// Register columns hold JSON text verbatim: the payloads go in as
// json.RawMessage and come back out byte-for-byte. The server never decodes
// register contents.
type DocumentDB struct {
	db *DB
}

// emptyJSON is what a register holds before the client first writes to it.
const emptyJSON = "[]"

func rawOrDefault(m json.RawMessage) string {
	if len(m) == 0 {
		return emptyJSON
	}
	return string(m)
}

// Create inserts a new document dossier.
func (d *DocumentDB) Create(ctx context.Context, doc *model.DocumentFile) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.CreatedAt = time.Now().UTC()

	_, err := d.db.conn.ExecContext(ctx,
		`INSERT INTO document_files (id, user_id, code, company, name,
			classification_chart, retention_schedule, entry_register, exit_register,
			loan_register, transfer_list, topographic_register, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(),
		doc.UserID,
		doc.Code,
		doc.Company,
		doc.Name,
		rawOrDefault(doc.ClassificationChart),
		rawOrDefault(doc.RetentionSchedule),
		rawOrDefault(doc.EntryRegister),
		rawOrDefault(doc.ExitRegister),
		rawOrDefault(doc.LoanRegister),
		rawOrDefault(doc.TransferList),
		rawOrDefault(doc.TopographicRegister),
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting document file: %w", err)
	}
	return nil
}

const documentColumns = `id, user_id, code, company, name,
	classification_chart, retention_schedule, entry_register, exit_register,
	loan_register, transfer_list, topographic_register, created_at`

func scanDocument(scan func(dest ...any) error) (*model.DocumentFile, error) {
	var doc model.DocumentFile
	var cc, rs, entry, exit, loan, transfer, topo string
	err := scan(
		&doc.ID,
		&doc.UserID,
		&doc.Code,
		&doc.Company,
		&doc.Name,
		&cc, &rs, &entry, &exit, &loan, &transfer, &topo,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.ClassificationChart = json.RawMessage(cc)
	doc.RetentionSchedule = json.RawMessage(rs)
	doc.EntryRegister = json.RawMessage(entry)
	doc.ExitRegister = json.RawMessage(exit)
	doc.LoanRegister = json.RawMessage(loan)
	doc.TransferList = json.RawMessage(transfer)
	doc.TopographicRegister = json.RawMessage(topo)
	return &doc, nil
}

// GetByID retrieves one dossier with all registers.
func (d *DocumentDB) GetByID(ctx context.Context, id uuid.UUID) (*model.DocumentFile, error) {
	row := d.db.conn.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM document_files WHERE id = ?`, id.String())

	doc, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("document", id.String())
		}
		return nil, fmt.Errorf("sqlite: getting document %s: %w", id, err)
	}
	return doc, nil
}

// ListForUser returns the user's dossiers, newest first.
func (d *DocumentDB) ListForUser(ctx context.Context, userID int64) ([]model.DocumentFile, error) {
	rows, err := d.db.conn.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM document_files WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing documents: %w", err)
	}
	defer rows.Close()

	var docs []model.DocumentFile
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating documents: %w", err)
	}
	return docs, nil
}

// Update rewrites a dossier's metadata. Registers change only through
// UpdateRegister.
func (d *DocumentDB) Update(ctx context.Context, doc *model.DocumentFile) error {
	res, err := d.db.conn.ExecContext(ctx,
		`UPDATE document_files SET code = ?, company = ?, name = ? WHERE id = ?`,
		doc.Code, doc.Company, doc.Name, doc.ID.String())
	if err != nil {
		return fmt.Errorf("sqlite: updating document %s: %w", doc.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("document", doc.ID.String())
	}
	return nil
}

// Delete removes a dossier; its organization chart cascades.
func (d *DocumentDB) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := d.db.conn.ExecContext(ctx, `DELETE FROM document_files WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: deleting document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("document", id.String())
	}
	return nil
}

// UpdateRegister replaces one named register wholesale.
//
// The register name selects the column. Names come from a fixed allow-list
// (model.RegisterNames) — the name is matched against it before being
// spliced into the statement, so this is not open to injection despite the
// Sprintf.
func (d *DocumentDB) UpdateRegister(ctx context.Context, id uuid.UUID, name string, data json.RawMessage) error {
	if !slices.Contains(model.RegisterNames, name) {
		return apperror.ValidationFailed("register", "unknown register name")
	}

	res, err := d.db.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE document_files SET %s = ? WHERE id = ?`, name),
		rawOrDefault(data), id.String())
	if err != nil {
		return fmt.Errorf("sqlite: updating register %s of document %s: %w", name, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("document", id.String())
	}
	return nil
}

// GetOrganizationChart returns the chart attached to a dossier, or not found
// if none was ever saved.
func (d *DocumentDB) GetOrganizationChart(ctx context.Context, fileID uuid.UUID) (*model.OrganizationChart, error) {
	var data string
	err := d.db.conn.QueryRowContext(ctx,
		`SELECT data FROM organization_charts WHERE file_id = ?`, fileID.String(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("organization chart", fileID.String())
		}
		return nil, fmt.Errorf("sqlite: getting organization chart %s: %w", fileID, err)
	}
	return &model.OrganizationChart{FileID: fileID, Data: json.RawMessage(data)}, nil
}

// SaveOrganizationChart creates or replaces the chart for a dossier.
func (d *DocumentDB) SaveOrganizationChart(ctx context.Context, chart *model.OrganizationChart) error {
	data := "{}"
	if len(chart.Data) > 0 {
		data = string(chart.Data)
	}
	_, err := d.db.conn.ExecContext(ctx,
		`INSERT INTO organization_charts (file_id, data) VALUES (?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET data = excluded.data`,
		chart.FileID.String(), data)
	if err != nil {
		return fmt.Errorf("sqlite: saving organization chart %s: %w", chart.FileID, err)
	}
	return nil
}
