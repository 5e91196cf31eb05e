package transaction

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/sedge/pkg/database"
	"github.com/Ramsey-B/sedge/pkg/models"
)

const (
	transactionTable = "edi_transactions"
	counterTable     = "edi_transaction_counters"
)

var transactionStruct = database.NewStruct(new(TransactionRow))

type TransactionRow struct {
	ID                sql.NullString                `db:"id"`
	TenantID          sql.NullString                `db:"tenant_id"`
	TransactionNumber sql.NullString                `db:"transaction_number"`
	PartnerID         sql.NullString                `db:"partner_id"`
	DocumentType      sql.NullString                `db:"document_type"`
	Direction         sql.NullString                `db:"direction"`
	Format            sql.NullString                `db:"format"`
	Status            sql.NullString                `db:"status"`
	RawContent        sql.NullString                `db:"raw_content"`
	ParsedContent     database.JSONB[[]models.Row]  `db:"parsed_content"`
	SalesOrderID      sql.NullString                `db:"sales_order_id"`
	PurchaseOrderID   sql.NullString                `db:"purchase_order_id"`
	SourceRecordID    sql.NullString                `db:"source_record_id"`
	ErrorMessage      sql.NullString                `db:"error_message"`
	AS2MessageID      sql.NullString                `db:"as2_message_id"`
	ControlNumber     sql.NullInt64                 `db:"control_number"`
	AcknowledgmentID  sql.NullString                `db:"acknowledgment_id"`
	CreatedBy         sql.NullString                `db:"created_by"`
	CreatedAt         sql.NullTime                  `db:"created_at"`
	UpdatedAt         sql.NullTime                  `db:"updated_at"`
}

func FromTransaction(t models.EdiTransaction) *TransactionRow {
	return &TransactionRow{
		ID:                sql.NullString{String: t.ID, Valid: t.ID != ""},
		TenantID:          sql.NullString{String: t.TenantID, Valid: t.TenantID != ""},
		TransactionNumber: sql.NullString{String: t.TransactionNumber, Valid: t.TransactionNumber != ""},
		PartnerID:         sql.NullString{String: t.PartnerID, Valid: t.PartnerID != ""},
		DocumentType:      sql.NullString{String: string(t.DocumentType), Valid: t.DocumentType != ""},
		Direction:         sql.NullString{String: string(t.Direction), Valid: t.Direction != ""},
		Format:            sql.NullString{String: string(t.Format), Valid: t.Format != ""},
		Status:            sql.NullString{String: string(t.Status), Valid: t.Status != ""},
		RawContent:        sql.NullString{String: t.RawContent, Valid: t.RawContent != ""},
		ParsedContent:     database.JSONB[[]models.Row]{Data: t.ParsedContent},
		SalesOrderID:      sql.NullString{String: t.SalesOrderID, Valid: t.SalesOrderID != ""},
		PurchaseOrderID:   sql.NullString{String: t.PurchaseOrderID, Valid: t.PurchaseOrderID != ""},
		SourceRecordID:    sql.NullString{String: t.SourceRecordID, Valid: t.SourceRecordID != ""},
		ErrorMessage:      sql.NullString{String: t.ErrorMessage, Valid: t.ErrorMessage != ""},
		AS2MessageID:      sql.NullString{String: t.AS2MessageID, Valid: t.AS2MessageID != ""},
		ControlNumber:     sql.NullInt64{Int64: int64(t.ControlNumber), Valid: t.ControlNumber != 0},
		AcknowledgmentID:  sql.NullString{String: t.AcknowledgmentID, Valid: t.AcknowledgmentID != ""},
		CreatedBy:         sql.NullString{String: t.CreatedBy, Valid: t.CreatedBy != ""},
		CreatedAt:         sql.NullTime{Time: t.CreatedAt, Valid: t.CreatedAt != time.Time{}},
		UpdatedAt:         sql.NullTime{Time: t.UpdatedAt, Valid: t.UpdatedAt != time.Time{}},
	}
}

func ToTransaction(row *TransactionRow) models.EdiTransaction {
	return models.EdiTransaction{
		ID:                row.ID.String,
		TenantID:          row.TenantID.String,
		TransactionNumber: row.TransactionNumber.String,
		PartnerID:         row.PartnerID.String,
		DocumentType:      models.DocumentType(row.DocumentType.String),
		Direction:         models.Direction(row.Direction.String),
		Format:            models.WireFormat(row.Format.String),
		Status:            models.TransactionStatus(row.Status.String),
		RawContent:        row.RawContent.String,
		ParsedContent:     row.ParsedContent.Data,
		SalesOrderID:      row.SalesOrderID.String,
		PurchaseOrderID:   row.PurchaseOrderID.String,
		SourceRecordID:    row.SourceRecordID.String,
		ErrorMessage:      row.ErrorMessage.String,
		AS2MessageID:      row.AS2MessageID.String,
		ControlNumber:     int(row.ControlNumber.Int64),
		AcknowledgmentID:  row.AcknowledgmentID.String,
		CreatedBy:         row.CreatedBy.String,
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}
