package documentmap

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/sedge/pkg/database"
	"github.com/Ramsey-B/sedge/pkg/models"
)

const documentMapTable = "edi_document_maps"

var documentMapStruct = database.NewStruct(new(DocumentMapRow))

type DocumentMapRow struct {
	ID           sql.NullString                        `db:"id"`
	TenantID     sql.NullString                        `db:"tenant_id"`
	Name         sql.NullString                        `db:"name"`
	DocumentType sql.NullString                        `db:"document_type"`
	Direction    sql.NullString                        `db:"direction"`
	PartnerID    sql.NullString                        `db:"partner_id"`
	Rules        database.JSONB[[]models.MappingRule]  `db:"rules"`
	IsDefault    sql.NullBool                          `db:"is_default"`
	IsActive     sql.NullBool                          `db:"is_active"`
	CreatedAt    sql.NullTime                          `db:"created_at"`
	UpdatedAt    sql.NullTime                          `db:"updated_at"`
}

func FromDocumentMap(m models.EdiDocumentMap) *DocumentMapRow {
	return &DocumentMapRow{
		ID:           sql.NullString{String: m.ID, Valid: m.ID != ""},
		TenantID:     sql.NullString{String: m.TenantID, Valid: m.TenantID != ""},
		Name:         sql.NullString{String: m.Name, Valid: m.Name != ""},
		DocumentType: sql.NullString{String: string(m.DocumentType), Valid: m.DocumentType != ""},
		Direction:    sql.NullString{String: string(m.Direction), Valid: m.Direction != ""},
		PartnerID:    sql.NullString{String: m.PartnerID, Valid: m.PartnerID != ""},
		Rules:        database.JSONB[[]models.MappingRule]{Data: m.Rules},
		IsDefault:    sql.NullBool{Bool: m.IsDefault, Valid: true},
		IsActive:     sql.NullBool{Bool: m.IsActive, Valid: true},
		CreatedAt:    sql.NullTime{Time: m.CreatedAt, Valid: m.CreatedAt != time.Time{}},
		UpdatedAt:    sql.NullTime{Time: m.UpdatedAt, Valid: m.UpdatedAt != time.Time{}},
	}
}

func ToDocumentMap(row *DocumentMapRow) models.EdiDocumentMap {
	return models.EdiDocumentMap{
		ID:           row.ID.String,
		TenantID:     row.TenantID.String,
		Name:         row.Name.String,
		DocumentType: models.DocumentType(row.DocumentType.String),
		Direction:    models.Direction(row.Direction.String),
		PartnerID:    row.PartnerID.String,
		Rules:        row.Rules.Data,
		IsDefault:    row.IsDefault.Bool,
		IsActive:     row.IsActive.Bool,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}
