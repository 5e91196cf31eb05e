// Package erp bridges the exchange service to the surrounding ERP. The
// real ERP integration lives outside this module; embedders implement
// exchange.ERP against their own record store. The bridge here backs the
// standalone deployment: inbound documents are accepted and tagged with
// generated record IDs, outbound generation requires a registered
// generator.
package erp

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sedge/pkg/documents"
	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/exchange"
	"github.com/Ramsey-B/sedge/pkg/models"
)

// Generator produces the header and rows for one outbound document from
// an ERP source record.
type Generator func(ctx context.Context, tenantID, sourceRecordID string) (documents.Header, []models.Row, error)

// Bridge is the default exchange.ERP implementation. Inbound documents
// are acknowledged with fresh record links; outbound generation delegates
// to per-document-type generators registered by the embedding system.
type Bridge struct {
	logger     ectologger.Logger
	generators map[models.DocumentType]Generator
}

func NewBridge(logger ectologger.Logger) *Bridge {
	return &Bridge{
		logger:     logger,
		generators: map[models.DocumentType]Generator{},
	}
}

// RegisterGenerator installs the outbound generator for one document type.
func (b *Bridge) RegisterGenerator(docType models.DocumentType, g Generator) {
	b.generators[docType] = g
}

func (b *Bridge) ProcessPurchaseOrder(ctx context.Context, tenantID string, header documents.Header, lines []models.Row) (exchange.RecordLinks, error) {
	return b.accept(ctx, tenantID, models.DocTypePurchaseOrder, header, lines)
}

func (b *Bridge) ProcessInvoice(ctx context.Context, tenantID string, header documents.Header, lines []models.Row) (exchange.RecordLinks, error) {
	return b.accept(ctx, tenantID, models.DocTypeInvoice, header, lines)
}

func (b *Bridge) ProcessShipNotice(ctx context.Context, tenantID string, header documents.Header, lines []models.Row) (exchange.RecordLinks, error) {
	return b.accept(ctx, tenantID, models.DocTypeShipNotice, header, lines)
}

func (b *Bridge) accept(ctx context.Context, tenantID string, docType models.DocumentType, header documents.Header, lines []models.Row) (exchange.RecordLinks, error) {
	links := exchange.RecordLinks{SourceRecordID: uuid.New().String()}
	// An inbound 850 becomes a purchase order record; it never links a
	// sales order. Inbound invoices link back to the PO they reference.
	if docType == models.DocTypePurchaseOrder {
		links.PurchaseOrderID = links.SourceRecordID
	}
	if docType == models.DocTypeInvoice {
		links.PurchaseOrderID = header.Reference
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":     tenantID,
		"document_type": docType,
		"document":      header.Number,
		"lines":         len(lines),
	}).Info("Accepted inbound document")
	return links, nil
}

func (b *Bridge) GeneratePurchaseOrder(ctx context.Context, tenantID, sourceRecordID string) (documents.Header, []models.Row, error) {
	return b.generate(ctx, models.DocTypePurchaseOrder, tenantID, sourceRecordID)
}

func (b *Bridge) GenerateInvoice(ctx context.Context, tenantID, sourceRecordID string) (documents.Header, []models.Row, error) {
	return b.generate(ctx, models.DocTypeInvoice, tenantID, sourceRecordID)
}

func (b *Bridge) GenerateShipNotice(ctx context.Context, tenantID, sourceRecordID string) (documents.Header, []models.Row, error) {
	return b.generate(ctx, models.DocTypeShipNotice, tenantID, sourceRecordID)
}

func (b *Bridge) generate(ctx context.Context, docType models.DocumentType, tenantID, sourceRecordID string) (documents.Header, []models.Row, error) {
	g, ok := b.generators[docType]
	if !ok {
		return documents.Header{}, nil, edierr.Newf(edierr.KindConfiguration, "no ERP generator registered for document type %s", docType).
			AddDocumentType(string(docType))
	}
	return g(ctx, tenantID, sourceRecordID)
}
