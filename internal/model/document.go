package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentFile is a document-management dossier: a small amount of metadata
// plus seven structured JSON registers.
//
// WHY json.RawMessage?
// The register contents are maintained entirely by the client — the server
// stores and returns them verbatim and never inspects individual entries.
// json.RawMessage keeps the bytes opaque: no decode on write, no re-encode
// on read, and no server-side schema to drift out of date.
type DocumentFile struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"userId"`
	Code      string    `json:"code"`
	Company   string    `json:"company"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	ClassificationChart json.RawMessage `json:"classificationChart"`
	RetentionSchedule   json.RawMessage `json:"retentionSchedule"`
	EntryRegister       json.RawMessage `json:"entryRegister"`
	ExitRegister        json.RawMessage `json:"exitRegister"`
	LoanRegister        json.RawMessage `json:"loanRegister"`
	TransferList        json.RawMessage `json:"transferList"`
	TopographicRegister json.RawMessage `json:"topographicRegister"`
}

// RegisterNames are the addressable registers of a DocumentFile, as used in
// PUT /api/documents/{id}/registers/{name}.
var RegisterNames = []string{
	"classification_chart",
	"retention_schedule",
	"entry_register",
	"exit_register",
	"loan_register",
	"transfer_list",
	"topographic_register",
}

// OrganizationChart is a single opaque JSON blob attached to a document file.
type OrganizationChart struct {
	FileID uuid.UUID       `json:"fileId"`
	Data   json.RawMessage `json:"data"`
}
