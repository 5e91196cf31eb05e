// Package exchange implements the transaction state machine: every
// document exchange is one EdiTransaction row advancing
//
//	pending -> processing -> {completed, failed} -> acknowledged
//
// The service guarantees a terminal state: any error or panic inside a
// pipeline is captured into status=failed with the error message recorded,
// and no code path returns with a row left in processing.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sedge/internal/repositories/documentmap"
	"github.com/Ramsey-B/sedge/internal/repositories/partner"
	"github.com/Ramsey-B/sedge/internal/repositories/settings"
	"github.com/Ramsey-B/sedge/internal/repositories/transaction"
	"github.com/Ramsey-B/sedge/pkg/documents"
	"github.com/Ramsey-B/sedge/pkg/events"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/transport"
)

// RecordLinks are the ERP records an inbound document produced or an
// outbound document originated from.
type RecordLinks struct {
	SalesOrderID    string
	PurchaseOrderID string
	SourceRecordID  string
}

// ERP is the boundary to the rest of the system. Inbound documents become
// ERP records; outbound documents are generated from them.
type ERP interface {
	ProcessPurchaseOrder(ctx context.Context, tenantID string, header documents.Header, lines []models.Row) (RecordLinks, error)
	ProcessInvoice(ctx context.Context, tenantID string, header documents.Header, lines []models.Row) (RecordLinks, error)
	ProcessShipNotice(ctx context.Context, tenantID string, header documents.Header, lines []models.Row) (RecordLinks, error)

	GeneratePurchaseOrder(ctx context.Context, tenantID, sourceRecordID string) (documents.Header, []models.Row, error)
	GenerateInvoice(ctx context.Context, tenantID, sourceRecordID string) (documents.Header, []models.Row, error)
	GenerateShipNotice(ctx context.Context, tenantID, sourceRecordID string) (documents.Header, []models.Row, error)
}

// Transporter is the transport registry surface the service uses.
type Transporter interface {
	Send(ctx context.Context, partner *models.TradingPartner, payload transport.Payload) (*transport.Result, error)
}

type Service struct {
	partners  partner.PartnerRepository
	txns      transaction.TransactionRepository
	maps      documentmap.DocumentMapRepository
	settings  settings.SettingsRepository
	transport Transporter
	erp       ERP
	events    events.Publisher
	logger    ectologger.Logger
}

func NewService(
	partners partner.PartnerRepository,
	txns transaction.TransactionRepository,
	maps documentmap.DocumentMapRepository,
	settingsRepo settings.SettingsRepository,
	transporter Transporter,
	erp ERP,
	publisher events.Publisher,
	logger ectologger.Logger,
) *Service {
	return &Service{
		partners:  partners,
		txns:      txns,
		maps:      maps,
		settings:  settingsRepo,
		transport: transporter,
		erp:       erp,
		events:    publisher,
		logger:    logger,
	}
}

// finalize moves a transaction to its terminal state and publishes the
// matching lifecycle event. pipelineErr == nil means completed.
func (s *Service) finalize(ctx context.Context, txn *models.EdiTransaction, pipelineErr error) {
	if pipelineErr == nil {
		txn.Status = models.StatusCompleted
		txn.ErrorMessage = ""
	} else {
		txn.Status = models.StatusFailed
		txn.ErrorMessage = pipelineErr.Error()
	}

	if err := s.txns.Update(ctx, *txn); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("transaction_id", txn.ID).
			Error("failed to persist terminal transaction state")
	}

	eventType := events.EventTransactionCompleted
	if pipelineErr != nil {
		eventType = events.EventTransactionFailed
	}
	s.events.PublishTransactionEvent(ctx, events.TransactionEvent{
		Type:              eventType,
		TenantID:          txn.TenantID,
		TransactionID:     txn.ID,
		TransactionNumber: txn.TransactionNumber,
		PartnerID:         txn.PartnerID,
		DocumentType:      txn.DocumentType,
		Direction:         txn.Direction,
		Status:            txn.Status,
		ErrorMessage:      txn.ErrorMessage,
		Timestamp:         time.Now().UTC(),
	})
}

// runToTerminal runs a pipeline step and converts panics into errors so
// finalize always sees either success or a capturable failure.
func runToTerminal(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return fn()
}
