package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/sedge/pkg/documents"
	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/events"
	"github.com/Ramsey-B/sedge/pkg/formats"
	"github.com/Ramsey-B/sedge/pkg/mapping"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/tracing"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// InboundRequest describes one received document.
type InboundRequest struct {
	PartnerID string
	// Format of RawContent. Zero value means X12.
	Format models.WireFormat
	// DocumentType is required for non-X12 payloads, which carry no type
	// marker of their own, unless the partner declares a default. X12
	// payloads declare it in ST01.
	DocumentType models.DocumentType
	RawContent   string
	CreatedBy    string
}

// CreateInbound runs the full receive pipeline. The returned transaction
// is always in a terminal state: completed, or failed with the pipeline
// error recorded. The error return mirrors the recorded failure so
// callers can surface it.
func (s *Service) CreateInbound(ctx context.Context, tenantID string, req InboundRequest) (models.EdiTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "ExchangeService.CreateInbound")
	defer span.End()

	p, err := s.partners.GetByID(ctx, tenantID, req.PartnerID)
	if err != nil {
		return models.EdiTransaction{}, err
	}
	if !p.IsActive() {
		return models.EdiTransaction{}, edierr.Newf(edierr.KindConfiguration, "partner is %s; exchanges require an active or testing partner", p.Status).
			AddPartner(p.Code)
	}

	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return models.EdiTransaction{}, err
	}

	format := req.Format
	if format == "" {
		format = p.DefaultFormat
	}
	if format == "" {
		format = models.FormatX12
	}
	docType := req.DocumentType
	if docType == "" {
		docType = p.DefaultDocumentType
	}

	seq, err := s.txns.NextTransactionNumber(ctx, tenantID)
	if err != nil {
		return models.EdiTransaction{}, err
	}

	txn := models.EdiTransaction{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		TransactionNumber: models.FormatTransactionNumber(seq),
		PartnerID:         p.ID,
		DocumentType:      docType,
		Direction:         models.DirectionInbound,
		Format:            format,
		Status:            models.StatusProcessing,
		RawContent:        req.RawContent,
		CreatedBy:         req.CreatedBy,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return models.EdiTransaction{}, err
	}
	s.events.PublishTransactionEvent(ctx, events.TransactionEvent{
		Type:              events.EventTransactionCreated,
		TenantID:          tenantID,
		TransactionID:     txn.ID,
		TransactionNumber: txn.TransactionNumber,
		PartnerID:         p.ID,
		DocumentType:      txn.DocumentType,
		Direction:         txn.Direction,
		Status:            txn.Status,
		Timestamp:         time.Now().UTC(),
	})

	return s.runInbound(ctx, txn, p, cfg)
}

// Reprocess re-enters any transaction with stored raw content into the
// processing pipeline, regardless of its current status or direction.
// Typically used after fixing a document map or partner configuration
// that failed the original run.
func (s *Service) Reprocess(ctx context.Context, tenantID, transactionID string) (models.EdiTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "ExchangeService.Reprocess")
	defer span.End()

	txn, err := s.txns.GetByID(ctx, tenantID, transactionID)
	if err != nil {
		return models.EdiTransaction{}, err
	}
	if txn.RawContent == "" {
		return models.EdiTransaction{}, edierr.New(edierr.KindConfiguration, "transaction has no stored raw content to reprocess")
	}

	p, err := s.partners.GetByID(ctx, tenantID, txn.PartnerID)
	if err != nil {
		return models.EdiTransaction{}, err
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return models.EdiTransaction{}, err
	}
	if txn.DocumentType == "" {
		// Rows ingested before the partner declared a default document
		// type pick it up here.
		txn.DocumentType = p.DefaultDocumentType
	}

	txn.Status = models.StatusProcessing
	txn.ErrorMessage = ""
	txn.AcknowledgmentID = ""
	if err := s.txns.Update(ctx, txn); err != nil {
		return models.EdiTransaction{}, err
	}

	if txn.Direction == models.DirectionOutbound {
		// Outbound rows regenerate from their source record; dispatch
		// remains a separate, explicit step.
		pipelineErr := runToTerminal(func() error {
			return s.generateOutbound(ctx, &txn, p, cfg)
		})
		s.finalize(ctx, &txn, pipelineErr)
		if pipelineErr != nil {
			return txn, pipelineErr
		}
		return txn, nil
	}

	return s.runInbound(ctx, txn, p, cfg)
}

// runInbound is the shared receive pipeline. It always finalizes the
// transaction; the returned error, when set, is already recorded on it.
func (s *Service) runInbound(ctx context.Context, txn models.EdiTransaction, p models.TradingPartner, cfg models.EdiSettings) (models.EdiTransaction, error) {
	pipelineErr := runToTerminal(func() error {
		if txn.Format == models.FormatX12 {
			return s.processX12(ctx, &txn, p)
		}
		return s.processGeneric(ctx, &txn, p)
	})

	s.finalize(ctx, &txn, pipelineErr)
	if pipelineErr != nil {
		s.logger.WithContext(ctx).WithError(pipelineErr).WithFields(map[string]any{
			"transaction_id": txn.ID,
			"partner":        p.Code,
		}).Warn("inbound pipeline failed")
		return txn, pipelineErr
	}

	if cfg.AutoAcknowledge && txn.Format == models.FormatX12 && txn.DocumentType != models.DocTypeAck {
		ack, err := s.Acknowledge(ctx, txn.TenantID, txn.ID, true)
		if err != nil {
			// The exchange itself succeeded; a failed auto-ack is logged,
			// not propagated.
			s.logger.WithContext(ctx).WithError(err).WithField("transaction_id", txn.ID).
				Warn("auto-acknowledge failed")
		} else {
			txn.AcknowledgmentID = ack.ID
			txn.Status = models.StatusAcknowledged
		}
	}

	return txn, nil
}

func (s *Service) processX12(ctx context.Context, txn *models.EdiTransaction, p models.TradingPartner) error {
	ic, err := x12.Parse(txn.RawContent)
	if err != nil {
		return edierr.Wrap(edierr.KindFormat, err).AddPartner(p.Code)
	}
	if len(ic.FunctionalGroups) == 0 || len(ic.FunctionalGroups[0].TransactionSets) == 0 {
		return edierr.New(edierr.KindFormat, "interchange contains no transaction sets").AddPartner(p.Code)
	}

	ts := ic.FunctionalGroups[0].TransactionSets[0]
	txn.DocumentType = models.DocumentType(ts.DocumentType)
	if control, err := strconv.Atoi(ts.ControlNumber); err == nil {
		txn.ControlNumber = control
	}

	if txn.DocumentType == models.DocTypeAck {
		return s.processInbound997(ctx, txn, &ts)
	}

	builder, err := documents.Get(txn.DocumentType)
	if err != nil {
		return err
	}
	header, lines, err := builder.Extract(&ts)
	if err != nil {
		return edierr.Wrap(edierr.KindFormat, err).AddPartner(p.Code).AddDocumentType(string(txn.DocumentType))
	}

	lines, err = s.applyInboundMap(ctx, txn, lines)
	if err != nil {
		return err
	}
	txn.ParsedContent = lines

	return s.handToERP(ctx, txn, header, lines)
}

func (s *Service) processGeneric(ctx context.Context, txn *models.EdiTransaction, p models.TradingPartner) error {
	if txn.DocumentType == "" {
		return edierr.New(edierr.KindConfiguration, "document type is required for non-X12 payloads").AddPartner(p.Code)
	}

	lines, err := formats.ParseRows(txn.Format, []byte(txn.RawContent))
	if err != nil {
		return edierr.Wrap(edierr.KindFormat, err).AddPartner(p.Code).AddDocumentType(string(txn.DocumentType))
	}

	lines, err = s.applyInboundMap(ctx, txn, lines)
	if err != nil {
		return err
	}
	txn.ParsedContent = lines

	return s.handToERP(ctx, txn, documents.Header{}, lines)
}

// processInbound997 matches a received functional acknowledgment to the
// outbound transaction it references and marks it acknowledged.
func (s *Service) processInbound997(ctx context.Context, txn *models.EdiTransaction, ts *x12.TransactionSet) error {
	ack, err := documents.Extract997(ts)
	if err != nil {
		return err
	}
	txn.ParsedContent = []models.Row{{
		"document_type":  ack.DocumentType,
		"control_number": ack.ControlNumber,
		"accepted":       ack.Accepted,
	}}

	control, err := strconv.Atoi(ack.ControlNumber)
	if err != nil {
		return edierr.Newf(edierr.KindFormat, "997 references non-numeric control number %q", ack.ControlNumber)
	}

	candidates, err := s.txns.ListByPartner(ctx, txn.TenantID, txn.PartnerID)
	if err != nil {
		return err
	}
	for i := range candidates {
		ref := candidates[i]
		if ref.Direction != models.DirectionOutbound || ref.ControlNumber != control {
			continue
		}
		if ref.DocumentType != models.DocumentType(ack.DocumentType) {
			continue
		}
		if ref.Status == models.StatusCompleted && ack.Accepted {
			ref.Status = models.StatusAcknowledged
			ref.AcknowledgmentID = txn.ID
			if err := s.txns.Update(ctx, ref); err != nil {
				return err
			}
			s.events.PublishTransactionEvent(ctx, events.TransactionEvent{
				Type:              events.EventTransactionAcknowledged,
				TenantID:          ref.TenantID,
				TransactionID:     ref.ID,
				TransactionNumber: ref.TransactionNumber,
				PartnerID:         ref.PartnerID,
				DocumentType:      ref.DocumentType,
				Direction:         ref.Direction,
				Status:            ref.Status,
				Timestamp:         time.Now().UTC(),
			})
		}
		return nil
	}

	return edierr.Newf(edierr.KindIntegrity, "997 references unknown control number %d", control)
}

func (s *Service) applyInboundMap(ctx context.Context, txn *models.EdiTransaction, lines []models.Row) ([]models.Row, error) {
	m, err := s.maps.Resolve(ctx, txn.TenantID, txn.DocumentType, models.DirectionInbound, txn.PartnerID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return lines, nil
	}
	return mapping.Apply(lines, m.Rules), nil
}

func (s *Service) handToERP(ctx context.Context, txn *models.EdiTransaction, header documents.Header, lines []models.Row) error {
	var links RecordLinks
	var err error

	switch txn.DocumentType {
	case models.DocTypePurchaseOrder:
		links, err = s.erp.ProcessPurchaseOrder(ctx, txn.TenantID, header, lines)
	case models.DocTypeInvoice:
		links, err = s.erp.ProcessInvoice(ctx, txn.TenantID, header, lines)
	case models.DocTypeShipNotice:
		links, err = s.erp.ProcessShipNotice(ctx, txn.TenantID, header, lines)
	default:
		// Custom documents stop at parsed rows; no ERP record is created.
		return nil
	}
	if err != nil {
		// The collaborator's message is recorded verbatim on the row.
		return edierr.Wrap(edierr.KindIntegrity, err)
	}

	txn.SalesOrderID = links.SalesOrderID
	txn.PurchaseOrderID = links.PurchaseOrderID
	txn.SourceRecordID = links.SourceRecordID
	return nil
}
