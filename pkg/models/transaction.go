package models

import (
	"fmt"
	"time"
)

// DocumentType is the X12 transaction set identifier for a document.
type DocumentType string

const (
	DocTypePurchaseOrder DocumentType = "850"
	DocTypeInvoice       DocumentType = "810"
	DocTypeShipNotice    DocumentType = "856"
	DocTypeAck           DocumentType = "997"
	DocTypeCustom        DocumentType = "custom"
)

// Direction of an exchange relative to this system.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// WireFormat is the on-the-wire encoding of a document.
type WireFormat string

const (
	FormatX12  WireFormat = "x12"
	FormatCSV  WireFormat = "csv"
	FormatXML  WireFormat = "xml"
	FormatJSON WireFormat = "json"
)

// TransactionStatus is the state of one exchange attempt.
//
//	pending -> processing -> {completed, failed} -> acknowledged
//
// acknowledged is reachable only from completed, only for inbound
// documents. failed transactions may re-enter processing via reprocess.
type TransactionStatus string

const (
	StatusPending      TransactionStatus = "pending"
	StatusProcessing   TransactionStatus = "processing"
	StatusCompleted    TransactionStatus = "completed"
	StatusFailed       TransactionStatus = "failed"
	StatusAcknowledged TransactionStatus = "acknowledged"
)

// IsTerminal reports whether no pipeline is expected to still be advancing
// this transaction.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAcknowledged
}

// EdiTransaction is one exchange attempt of one document. Rows only ever
// advance forward along the state machine; the core never deletes them.
type EdiTransaction struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenant_id"`
	TransactionNumber string            `json:"transaction_number"` // EDI-00001 style, sequential per tenant
	PartnerID         string            `json:"partner_id"`
	DocumentType      DocumentType      `json:"document_type"`
	Direction         Direction         `json:"direction"`
	Format            WireFormat        `json:"format"`
	Status            TransactionStatus `json:"status"`
	RawContent        string            `json:"raw_content,omitempty"`
	ParsedContent     []Row             `json:"parsed_content,omitempty"`
	SalesOrderID      string            `json:"sales_order_id,omitempty"`
	PurchaseOrderID   string            `json:"purchase_order_id,omitempty"`
	SourceRecordID    string            `json:"source_record_id,omitempty"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	AS2MessageID      string            `json:"as2_message_id,omitempty"`
	ControlNumber     int               `json:"control_number,omitempty"`
	AcknowledgmentID  string            `json:"acknowledgment_id,omitempty"`
	CreatedBy         string            `json:"created_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Row is one canonical record of a document: string-keyed fields holding
// strings, numbers, bools or nil. Builders consume rows, extractors and
// the mapping engine produce them.
type Row map[string]any

// FormatTransactionNumber renders the per-tenant sequence value in the
// EDI-00001 display form.
func FormatTransactionNumber(seq int64) string {
	return fmt.Sprintf("EDI-%05d", seq)
}
