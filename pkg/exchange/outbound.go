package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/sedge/pkg/documents"
	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/events"
	"github.com/Ramsey-B/sedge/pkg/formats"
	"github.com/Ramsey-B/sedge/pkg/mapping"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/tracing"
	"github.com/Ramsey-B/sedge/pkg/transport"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// OutboundRequest describes one document to generate and optionally send.
type OutboundRequest struct {
	PartnerID      string
	DocumentType   models.DocumentType
	SourceRecordID string
	// Format override; zero value falls back to the partner default, then
	// the tenant default, then X12.
	Format models.WireFormat
	// Send dispatches over the partner's channel after generation. A
	// transport failure never reverts the generated document: it is
	// recorded on the transaction instead.
	Send      bool
	CreatedBy string
}

// CreateOutbound generates a document from an ERP record, envelopes it,
// persists the completed transaction and optionally dispatches it.
func (s *Service) CreateOutbound(ctx context.Context, tenantID string, req OutboundRequest) (models.EdiTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "ExchangeService.CreateOutbound")
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
		format = cfg.DefaultFormat
	}
	if format == "" {
		format = models.FormatX12
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
		DocumentType:      req.DocumentType,
		Direction:         models.DirectionOutbound,
		Format:            format,
		Status:            models.StatusProcessing,
		SourceRecordID:    req.SourceRecordID,
		ControlNumber:     int(seq),
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

	pipelineErr := runToTerminal(func() error {
		return s.generateOutbound(ctx, &txn, p, cfg)
	})
	s.finalize(ctx, &txn, pipelineErr)
	if pipelineErr != nil {
		return txn, pipelineErr
	}

	if req.Send && p.CommunicationMethod != models.CommMethodManual {
		s.dispatch(ctx, &txn, p)
	}
	return txn, nil
}

func (s *Service) generateOutbound(ctx context.Context, txn *models.EdiTransaction, p models.TradingPartner, cfg models.EdiSettings) error {
	header, lines, err := s.generateFromERP(ctx, txn)
	if err != nil {
		return edierr.Wrap(edierr.KindTransform, err).AddPartner(p.Code).AddDocumentType(string(txn.DocumentType))
	}

	m, err := s.maps.Resolve(ctx, txn.TenantID, txn.DocumentType, models.DirectionOutbound, txn.PartnerID)
	if err != nil {
		return err
	}
	if m != nil {
		lines = mapping.Reverse(lines, m.Rules)
	}
	txn.ParsedContent = lines

	if txn.Format == models.FormatX12 {
		builder, err := documents.Get(txn.DocumentType)
		if err != nil {
			return err
		}
		segments := builder.Build(header, lines, x12.DefaultDelimiters)
		txn.RawContent = x12.Generate(s.envelope(p, cfg, txn.ControlNumber), string(txn.DocumentType), segments)
		return nil
	}

	payload, err := formats.SerializeRows(txn.Format, lines)
	if err != nil {
		return err
	}
	txn.RawContent = string(payload)
	return nil
}

func (s *Service) generateFromERP(ctx context.Context, txn *models.EdiTransaction) (documents.Header, []models.Row, error) {
	switch txn.DocumentType {
	case models.DocTypePurchaseOrder:
		return s.erp.GeneratePurchaseOrder(ctx, txn.TenantID, txn.SourceRecordID)
	case models.DocTypeInvoice:
		return s.erp.GenerateInvoice(ctx, txn.TenantID, txn.SourceRecordID)
	case models.DocTypeShipNotice:
		return s.erp.GenerateShipNotice(ctx, txn.TenantID, txn.SourceRecordID)
	default:
		return documents.Header{}, nil, edierr.Newf(edierr.KindConfiguration, "cannot generate document type %s", txn.DocumentType)
	}
}

// dispatch sends the generated document over the partner's channel. The
// transaction is already completed; transport failures only annotate it.
func (s *Service) dispatch(ctx context.Context, txn *models.EdiTransaction, p models.TradingPartner) {
	result, err := s.transport.Send(ctx, &p, transport.Payload{
		Filename: fmt.Sprintf("%s_%s.%s", txn.DocumentType, txn.TransactionNumber, fileExtension(txn.Format)),
		Content:  []byte(txn.RawContent),
	})
	if err != nil {
		txn.ErrorMessage = err.Error()
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"transaction_id": txn.ID,
			"partner":        p.Code,
		}).Warn("outbound dispatch failed")
	} else if result != nil {
		txn.AS2MessageID = result.MessageID
	}

	if err := s.txns.Update(ctx, *txn); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("transaction_id", txn.ID).
			Error("failed to record dispatch result")
	}
}

// Acknowledge builds a 997 functional acknowledgment for a received
// transaction, persists it as a new outbound transaction, links the two
// rows, and marks the original acknowledged when it was completed and the
// acknowledgment accepts it.
func (s *Service) Acknowledge(ctx context.Context, tenantID, transactionID string, accepted bool) (models.EdiTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "ExchangeService.Acknowledge")
	defer span.End()

	original, err := s.txns.GetByID(ctx, tenantID, transactionID)
	if err != nil {
		return models.EdiTransaction{}, err
	}
	if original.Direction != models.DirectionInbound {
		return models.EdiTransaction{}, edierr.New(edierr.KindConfiguration, "only inbound transactions can be acknowledged")
	}
	if original.Status != models.StatusCompleted && original.Status != models.StatusFailed {
		return models.EdiTransaction{}, edierr.Newf(edierr.KindConfiguration, "transaction is %s; only completed or failed transactions can be acknowledged", original.Status)
	}
	if original.DocumentType == models.DocTypeAck {
		return models.EdiTransaction{}, edierr.New(edierr.KindConfiguration, "acknowledgments are not themselves acknowledged")
	}
	if original.AcknowledgmentID != "" {
		return models.EdiTransaction{}, edierr.New(edierr.KindConfiguration, "transaction is already acknowledged")
	}

	p, err := s.partners.GetByID(ctx, tenantID, original.PartnerID)
	if err != nil {
		return models.EdiTransaction{}, err
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return models.EdiTransaction{}, err
	}

	seq, err := s.txns.NextTransactionNumber(ctx, tenantID)
	if err != nil {
		return models.EdiTransaction{}, err
	}

	segments := documents.Build997(documents.Acknowledgment{
		DocumentType:  string(original.DocumentType),
		ControlNumber: fmt.Sprintf("%04d", original.ControlNumber%10000),
		GroupControl:  fmt.Sprintf("%d", original.ControlNumber),
		Accepted:      accepted,
	}, x12.DefaultDelimiters)

	ack := models.EdiTransaction{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		TransactionNumber: models.FormatTransactionNumber(seq),
		PartnerID:         p.ID,
		DocumentType:      models.DocTypeAck,
		Direction:         models.DirectionOutbound,
		Format:            models.FormatX12,
		Status:            models.StatusCompleted,
		ControlNumber:     int(seq),
		RawContent:        x12.Generate(s.envelope(p, cfg, int(seq)), string(models.DocTypeAck), segments),
		AcknowledgmentID:  original.ID,
	}
	if err := s.txns.Create(ctx, ack); err != nil {
		return models.EdiTransaction{}, err
	}

	original.AcknowledgmentID = ack.ID
	if original.Status == models.StatusCompleted && accepted {
		original.Status = models.StatusAcknowledged
	}
	if err := s.txns.Update(ctx, original); err != nil {
		return ack, err
	}

	s.events.PublishTransactionEvent(ctx, events.TransactionEvent{
		Type:              events.EventTransactionAcknowledged,
		TenantID:          tenantID,
		TransactionID:     original.ID,
		TransactionNumber: original.TransactionNumber,
		PartnerID:         p.ID,
		DocumentType:      original.DocumentType,
		Direction:         original.Direction,
		Status:            original.Status,
		Timestamp:         time.Now().UTC(),
	})

	if p.CommunicationMethod != models.CommMethodManual {
		s.dispatch(ctx, &ack, p)
	}
	return ack, nil
}

// envelope assembles the X12 envelope identifiers from the tenant's
// settings (sender) and the partner (receiver).
func (s *Service) envelope(p models.TradingPartner, cfg models.EdiSettings, controlNumber int) x12.Envelope {
	gsSender := cfg.GSID
	if gsSender == "" {
		gsSender = cfg.ISAID
	}
	gsReceiver := p.GSID
	if gsReceiver == "" {
		gsReceiver = p.ISAID
	}

	return x12.Envelope{
		SenderQualifier:   cfg.ISAQualifier,
		SenderID:          cfg.ISAID,
		ReceiverQualifier: p.ISAQualifier,
		ReceiverID:        p.ISAID,
		GSSenderID:        gsSender,
		GSReceiverID:      gsReceiver,
		ControlNumber:     controlNumber,
		Test:              p.Status == models.PartnerStatusTesting,
	}
}

func fileExtension(format models.WireFormat) string {
	switch format {
	case models.FormatCSV:
		return "csv"
	case models.FormatXML:
		return "xml"
	case models.FormatJSON:
		return "json"
	default:
		return "edi"
	}
}
