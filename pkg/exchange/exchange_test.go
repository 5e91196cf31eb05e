package exchange

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sedge/pkg/documents"
	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/events"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/transport"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// --- in-memory fakes -------------------------------------------------------

type fakePartnerRepo struct {
	partners map[string]models.TradingPartner
}

func (f *fakePartnerRepo) Create(_ context.Context, p models.TradingPartner) error {
	f.partners[p.ID] = p
	return nil
}
func (f *fakePartnerRepo) Update(_ context.Context, p models.TradingPartner) error {
	f.partners[p.ID] = p
	return nil
}
func (f *fakePartnerRepo) Delete(_ context.Context, _, id string) error {
	delete(f.partners, id)
	return nil
}
func (f *fakePartnerRepo) GetByID(_ context.Context, _, id string) (models.TradingPartner, error) {
	p, ok := f.partners[id]
	if !ok {
		return models.TradingPartner{}, fmt.Errorf("partner not found")
	}
	return p, nil
}
func (f *fakePartnerRepo) GetByCode(_ context.Context, _, code string) (models.TradingPartner, error) {
	for _, p := range f.partners {
		if p.Code == code {
			return p, nil
		}
	}
	return models.TradingPartner{}, fmt.Errorf("partner not found")
}
func (f *fakePartnerRepo) List(_ context.Context, _ string) ([]models.TradingPartner, error) {
	out := []models.TradingPartner{}
	for _, p := range f.partners {
		out = append(out, p)
	}
	return out, nil
}
func (f *fakePartnerRepo) ListPollable(_ context.Context) ([]models.TradingPartner, error) {
	out := []models.TradingPartner{}
	for _, p := range f.partners {
		if p.Pollable() {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeTxnRepo struct {
	mu       sync.Mutex
	counters map[string]int64
	txns     map[string]models.EdiTransaction
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{counters: map[string]int64{}, txns: map[string]models.EdiTransaction{}}
}

func (f *fakeTxnRepo) NextTransactionNumber(_ context.Context, tenantID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[tenantID]++
	return f.counters[tenantID], nil
}
func (f *fakeTxnRepo) Create(_ context.Context, t models.EdiTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.CreatedAt = time.Now().UTC()
	f.txns[t.ID] = t
	return nil
}
func (f *fakeTxnRepo) Update(_ context.Context, t models.EdiTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.txns[t.ID]; !ok {
		return fmt.Errorf("transaction not found")
	}
	f.txns[t.ID] = t
	return nil
}
func (f *fakeTxnRepo) GetByID(_ context.Context, _, id string) (models.EdiTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[id]
	if !ok {
		return models.EdiTransaction{}, fmt.Errorf("transaction not found")
	}
	return t, nil
}
func (f *fakeTxnRepo) List(_ context.Context, tenantID string, _, _ int) ([]models.EdiTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.EdiTransaction{}
	for _, t := range f.txns {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeTxnRepo) ListByPartner(_ context.Context, tenantID, partnerID string) ([]models.EdiTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.EdiTransaction{}
	for _, t := range f.txns {
		if t.TenantID == tenantID && t.PartnerID == partnerID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeMapRepo struct {
	resolved *models.EdiDocumentMap
}

func (f *fakeMapRepo) Create(context.Context, models.EdiDocumentMap) error { return nil }
func (f *fakeMapRepo) Update(context.Context, models.EdiDocumentMap) error { return nil }
func (f *fakeMapRepo) Delete(context.Context, string, string) error        { return nil }
func (f *fakeMapRepo) GetByID(context.Context, string, string) (models.EdiDocumentMap, error) {
	return models.EdiDocumentMap{}, fmt.Errorf("not found")
}
func (f *fakeMapRepo) List(context.Context, string) ([]models.EdiDocumentMap, error) {
	return nil, nil
}
func (f *fakeMapRepo) Resolve(context.Context, string, models.DocumentType, models.Direction, string) (*models.EdiDocumentMap, error) {
	return f.resolved, nil
}

type fakeSettingsRepo struct {
	settings models.EdiSettings
}

func (f *fakeSettingsRepo) Get(context.Context, string) (models.EdiSettings, error) {
	return f.settings, nil
}
func (f *fakeSettingsRepo) Upsert(_ context.Context, s models.EdiSettings) error {
	f.settings = s
	return nil
}

type fakeERP struct {
	mu         sync.Mutex
	processErr error
	panicOn    models.DocumentType
	processed  []models.DocumentType
	header     documents.Header
	lines      []models.Row
}

func (f *fakeERP) process(docType models.DocumentType) (RecordLinks, error) {
	if f.panicOn == docType {
		panic("erp exploded")
	}
	if f.processErr != nil {
		return RecordLinks{}, f.processErr
	}
	f.mu.Lock()
	f.processed = append(f.processed, docType)
	f.mu.Unlock()
	links := RecordLinks{SourceRecordID: "REC-1"}
	if docType == models.DocTypePurchaseOrder {
		links.PurchaseOrderID = "REC-1"
	}
	return links, nil
}

func (f *fakeERP) ProcessPurchaseOrder(_ context.Context, _ string, _ documents.Header, _ []models.Row) (RecordLinks, error) {
	return f.process(models.DocTypePurchaseOrder)
}
func (f *fakeERP) ProcessInvoice(_ context.Context, _ string, _ documents.Header, _ []models.Row) (RecordLinks, error) {
	return f.process(models.DocTypeInvoice)
}
func (f *fakeERP) ProcessShipNotice(_ context.Context, _ string, _ documents.Header, _ []models.Row) (RecordLinks, error) {
	return f.process(models.DocTypeShipNotice)
}
func (f *fakeERP) GeneratePurchaseOrder(context.Context, string, string) (documents.Header, []models.Row, error) {
	return f.header, f.lines, nil
}
func (f *fakeERP) GenerateInvoice(context.Context, string, string) (documents.Header, []models.Row, error) {
	return f.header, f.lines, nil
}
func (f *fakeERP) GenerateShipNotice(context.Context, string, string) (documents.Header, []models.Row, error) {
	return f.header, f.lines, nil
}

type fakeTransporter struct {
	sendErr error
	sent    []transport.Payload
}

func (f *fakeTransporter) Send(_ context.Context, _ *models.TradingPartner, p transport.Payload) (*transport.Result, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, p)
	return &transport.Result{MessageID: "<msg-1@sedge>"}, nil
}

// --- fixture ---------------------------------------------------------------

const tenantID = "tenant-1"

type fixture struct {
	service   *Service
	partners  *fakePartnerRepo
	txns      *fakeTxnRepo
	maps      *fakeMapRepo
	erp       *fakeERP
	transport *fakeTransporter
	settings  *fakeSettingsRepo
}

func newFixture() *fixture {
	partners := &fakePartnerRepo{partners: map[string]models.TradingPartner{
		"p-1": {
			ID:                  "p-1",
			TenantID:            tenantID,
			Code:                "ACME",
			CommunicationMethod: models.CommMethodManual,
			Status:              models.PartnerStatusActive,
			ISAQualifier:        "01",
			ISAID:               "004321519",
			GSID:                "ACME",
		},
	}}
	txns := newFakeTxnRepo()
	maps := &fakeMapRepo{}
	erp := &fakeERP{
		header: documents.Header{Number: "INV-7001", Date: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), Reference: "PO-1", Total: 42.5},
		lines:  []models.Row{{"quantity": float64(10), "unit": "EA", "unit_price": 4.25, "sku": "WID-100"}},
	}
	transporter := &fakeTransporter{}
	settingsRepo := &fakeSettingsRepo{settings: *models.DefaultSettings(tenantID)}
	settingsRepo.settings.ISAID = "SEDGEMFG"
	settingsRepo.settings.GSID = "SEDGEMFG"

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	service := NewService(partners, txns, maps, settingsRepo, transporter, erp, events.NoopPublisher{}, logger)

	return &fixture{
		service:   service,
		partners:  partners,
		txns:      txns,
		maps:      maps,
		erp:       erp,
		transport: transporter,
		settings:  settingsRepo,
	}
}

func sample850(controlNumber int) string {
	segments := (&documents.PurchaseOrder850{}).Build(documents.Header{
		Number: "PO-2026-001",
		Date:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}, []models.Row{
		{"quantity": float64(10), "unit": "EA", "unit_price": 4.25, "sku": "WID-100"},
	}, x12.DefaultDelimiters)

	return x12.Generate(x12.Envelope{
		SenderQualifier:   "01",
		SenderID:          "004321519",
		ReceiverQualifier: "ZZ",
		ReceiverID:        "SEDGEMFG",
		GSSenderID:        "ACME",
		GSReceiverID:      "SEDGEMFG",
		ControlNumber:     controlNumber,
		Timestamp:         time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}, "850", segments)
}

// --- tests -----------------------------------------------------------------

func TestCreateInbound(t *testing.T) {
	t.Run("should complete a valid 850 and hand it to the ERP", func(t *testing.T) {
		f := newFixture()

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
			PartnerID:  "p-1",
			RawContent: sample850(7),
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)
		assert.Equal(t, models.DocTypePurchaseOrder, txn.DocumentType)
		assert.Equal(t, "EDI-00001", txn.TransactionNumber)
		assert.Equal(t, 7, txn.ControlNumber)
		assert.Equal(t, "REC-1", txn.PurchaseOrderID)
		assert.Empty(t, txn.SalesOrderID, "inbound purchase orders never link a sales order")
		assert.NotEmpty(t, txn.ParsedContent)
		assert.Equal(t, []models.DocumentType{models.DocTypePurchaseOrder}, f.erp.processed)
	})

	t.Run("should allocate sequential transaction numbers", func(t *testing.T) {
		f := newFixture()

		first, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: sample850(1)})
		require.NoError(t, err)
		second, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: sample850(2)})
		require.NoError(t, err)

		assert.Equal(t, "EDI-00001", first.TransactionNumber)
		assert.Equal(t, "EDI-00002", second.TransactionNumber)
	})

	t.Run("should allocate distinct gap-free numbers under concurrent creates", func(t *testing.T) {
		f := newFixture()
		const n = 16

		errs := make([]error, n)
		numbers := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
					PartnerID:  "p-1",
					RawContent: sample850(i + 1),
				})
				errs[i] = err
				numbers[i] = txn.TransactionNumber
			}(i)
		}
		wg.Wait()

		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			seen[numbers[i]] = true
		}
		require.Len(t, seen, n, "every create gets its own number")
		for i := 1; i <= n; i++ {
			assert.True(t, seen[models.FormatTransactionNumber(int64(i))], "no gaps in the sequence")
		}
	})

	t.Run("should fall back to the partner default document type for flat files", func(t *testing.T) {
		f := newFixture()
		f.partners.partners["p-2"] = models.TradingPartner{
			ID: "p-2", TenantID: tenantID, Code: "FLAT",
			CommunicationMethod: models.CommMethodSFTP,
			DefaultFormat:       models.FormatCSV,
			DefaultDocumentType: models.DocTypePurchaseOrder,
			Status:              models.PartnerStatusActive,
		}

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
			PartnerID:  "p-2",
			RawContent: "sku,quantity\nWID-100,10\n",
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)
		assert.Equal(t, models.DocTypePurchaseOrder, txn.DocumentType)
		assert.Equal(t, []models.DocumentType{models.DocTypePurchaseOrder}, f.erp.processed)
	})

	t.Run("should record a rejected document as an integrity failure, verbatim", func(t *testing.T) {
		f := newFixture()
		f.erp.processErr = fmt.Errorf("duplicate purchase order number PO-2026-001")

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
			PartnerID:  "p-1",
			RawContent: sample850(3),
		})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindIntegrity))
		assert.Equal(t, models.StatusFailed, txn.Status)
		assert.Equal(t, "duplicate purchase order number PO-2026-001", txn.ErrorMessage)
	})

	t.Run("should fail terminally on malformed content", func(t *testing.T) {
		f := newFixture()

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
			PartnerID:  "p-1",
			RawContent: "this is not an interchange",
		})

		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, txn.Status)
		assert.NotEmpty(t, txn.ErrorMessage)

		stored, err := f.txns.GetByID(context.Background(), tenantID, txn.ID)
		require.NoError(t, err)
		assert.True(t, stored.Status.IsTerminal(), "stored row must never be left in processing")
	})

	t.Run("should capture an ERP panic as a failed transaction", func(t *testing.T) {
		f := newFixture()
		f.erp.panicOn = models.DocTypePurchaseOrder

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
			PartnerID:  "p-1",
			RawContent: sample850(3),
		})

		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, txn.Status)
		assert.Contains(t, txn.ErrorMessage, "panic")

		stored, _ := f.txns.GetByID(context.Background(), tenantID, txn.ID)
		assert.True(t, stored.Status.IsTerminal())
	})

	t.Run("should reject inactive partners before creating anything", func(t *testing.T) {
		f := newFixture()
		p := f.partners.partners["p-1"]
		p.Status = models.PartnerStatusSuspended
		f.partners.partners["p-1"] = p

		_, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: sample850(1)})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
		assert.Empty(t, f.txns.txns)
	})

	t.Run("should apply the resolved inbound map", func(t *testing.T) {
		f := newFixture()
		f.maps.resolved = &models.EdiDocumentMap{
			Rules: []models.MappingRule{{SourceField: "sku", TargetField: "item_code"}},
		}

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: sample850(4)})

		require.NoError(t, err)
		require.NotEmpty(t, txn.ParsedContent)
		assert.Equal(t, "WID-100", txn.ParsedContent[0]["item_code"])
		assert.NotContains(t, txn.ParsedContent[0], "sku")
	})

	t.Run("should parse CSV payloads with an explicit document type", func(t *testing.T) {
		f := newFixture()

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
			PartnerID:    "p-1",
			Format:       models.FormatCSV,
			DocumentType: models.DocTypePurchaseOrder,
			RawContent:   "sku,quantity\nWID-100,10\n",
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)
		assert.Equal(t, "WID-100", txn.ParsedContent[0]["sku"])
	})

	t.Run("should auto-acknowledge when settings enable it", func(t *testing.T) {
		f := newFixture()
		f.settings.settings.AutoAcknowledge = true

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: sample850(5)})

		require.NoError(t, err)
		assert.Equal(t, models.StatusAcknowledged, txn.Status)
		require.NotEmpty(t, txn.AcknowledgmentID)

		ack, err := f.txns.GetByID(context.Background(), tenantID, txn.AcknowledgmentID)
		require.NoError(t, err)
		assert.Equal(t, models.DocTypeAck, ack.DocumentType)
	})
}

func TestCreateOutbound(t *testing.T) {
	t.Run("should generate a complete 810 interchange", func(t *testing.T) {
		f := newFixture()

		txn, err := f.service.CreateOutbound(context.Background(), tenantID, OutboundRequest{
			PartnerID:      "p-1",
			DocumentType:   models.DocTypeInvoice,
			SourceRecordID: "inv-7001",
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)
		assert.NotEmpty(t, txn.RawContent)

		ic, err := x12.Parse(txn.RawContent)
		require.NoError(t, err)
		assert.Equal(t, "SEDGEMFG", ic.SenderID)
		assert.Equal(t, "004321519", ic.ReceiverID)
		assert.Equal(t, "810", ic.FunctionalGroups[0].TransactionSets[0].DocumentType)
	})

	t.Run("should keep the transaction completed when dispatch fails", func(t *testing.T) {
		f := newFixture()
		p := f.partners.partners["p-1"]
		p.CommunicationMethod = models.CommMethodAS2
		f.partners.partners["p-1"] = p
		f.transport.sendErr = edierr.New(edierr.KindTransport, "endpoint unreachable")

		txn, err := f.service.CreateOutbound(context.Background(), tenantID, OutboundRequest{
			PartnerID:      "p-1",
			DocumentType:   models.DocTypeInvoice,
			SourceRecordID: "inv-7001",
			Send:           true,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)
		assert.NotEmpty(t, txn.ErrorMessage)
	})

	t.Run("should record the AS2 message id on successful dispatch", func(t *testing.T) {
		f := newFixture()
		p := f.partners.partners["p-1"]
		p.CommunicationMethod = models.CommMethodAS2
		f.partners.partners["p-1"] = p

		txn, err := f.service.CreateOutbound(context.Background(), tenantID, OutboundRequest{
			PartnerID:      "p-1",
			DocumentType:   models.DocTypeInvoice,
			SourceRecordID: "inv-7001",
			Send:           true,
		})

		require.NoError(t, err)
		assert.Equal(t, "<msg-1@sedge>", txn.AS2MessageID)
		require.Len(t, f.transport.sent, 1)
		assert.Contains(t, f.transport.sent[0].Filename, "810")
	})

	t.Run("should serialize generic formats without an envelope", func(t *testing.T) {
		f := newFixture()

		txn, err := f.service.CreateOutbound(context.Background(), tenantID, OutboundRequest{
			PartnerID:      "p-1",
			DocumentType:   models.DocTypeInvoice,
			SourceRecordID: "inv-7001",
			Format:         models.FormatJSON,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)
		assert.Contains(t, txn.RawContent, "WID-100")
		assert.NotContains(t, txn.RawContent, "ISA")
	})
}

func TestAcknowledge(t *testing.T) {
	inbound := func(t *testing.T, f *fixture) models.EdiTransaction {
		t.Helper()
		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: sample850(9)})
		require.NoError(t, err)
		return txn
	}

	t.Run("should link a 997 to the original and mark it acknowledged", func(t *testing.T) {
		f := newFixture()
		original := inbound(t, f)

		ack, err := f.service.Acknowledge(context.Background(), tenantID, original.ID, true)

		require.NoError(t, err)
		assert.Equal(t, models.DocTypeAck, ack.DocumentType)
		assert.Equal(t, models.DirectionOutbound, ack.Direction)
		assert.Equal(t, original.ID, ack.AcknowledgmentID)
		assert.Contains(t, ack.RawContent, "AK1*PO")
		assert.Contains(t, ack.RawContent, "AK5*A")

		updated, err := f.txns.GetByID(context.Background(), tenantID, original.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAcknowledged, updated.Status)
		assert.Equal(t, ack.ID, updated.AcknowledgmentID)
	})

	t.Run("should emit a rejection 997 without advancing the original", func(t *testing.T) {
		f := newFixture()
		original := inbound(t, f)

		ack, err := f.service.Acknowledge(context.Background(), tenantID, original.ID, false)

		require.NoError(t, err)
		assert.Contains(t, ack.RawContent, "AK5*R")

		updated, _ := f.txns.GetByID(context.Background(), tenantID, original.ID)
		assert.Equal(t, models.StatusCompleted, updated.Status)
	})

	t.Run("should refuse to acknowledge twice", func(t *testing.T) {
		f := newFixture()
		original := inbound(t, f)

		_, err := f.service.Acknowledge(context.Background(), tenantID, original.ID, true)
		require.NoError(t, err)

		_, err = f.service.Acknowledge(context.Background(), tenantID, original.ID, true)
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})

	t.Run("should refuse outbound transactions", func(t *testing.T) {
		f := newFixture()
		out, err := f.service.CreateOutbound(context.Background(), tenantID, OutboundRequest{
			PartnerID: "p-1", DocumentType: models.DocTypeInvoice, SourceRecordID: "inv-1",
		})
		require.NoError(t, err)

		_, err = f.service.Acknowledge(context.Background(), tenantID, out.ID, true)
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})
}

func TestInbound997(t *testing.T) {
	t.Run("should mark the referenced outbound transaction acknowledged", func(t *testing.T) {
		f := newFixture()

		out, err := f.service.CreateOutbound(context.Background(), tenantID, OutboundRequest{
			PartnerID: "p-1", DocumentType: models.DocTypeInvoice, SourceRecordID: "inv-7001",
		})
		require.NoError(t, err)

		segments := documents.Build997(documents.Acknowledgment{
			DocumentType:  "810",
			ControlNumber: fmt.Sprintf("%04d", out.ControlNumber%10000),
			GroupControl:  fmt.Sprintf("%d", out.ControlNumber),
			Accepted:      true,
		}, x12.DefaultDelimiters)
		raw := x12.Generate(x12.Envelope{
			SenderQualifier: "01", SenderID: "004321519",
			ReceiverQualifier: "ZZ", ReceiverID: "SEDGEMFG",
			GSSenderID: "ACME", GSReceiverID: "SEDGEMFG",
			ControlNumber: 99,
		}, "997", segments)

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: raw})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, txn.Status)

		updated, err := f.txns.GetByID(context.Background(), tenantID, out.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAcknowledged, updated.Status)
		assert.Equal(t, txn.ID, updated.AcknowledgmentID)
	})

	t.Run("should fail integrity when the 997 references an unknown control number", func(t *testing.T) {
		f := newFixture()

		segments := documents.Build997(documents.Acknowledgment{
			DocumentType: "810", ControlNumber: "9999", GroupControl: "9999", Accepted: true,
		}, x12.DefaultDelimiters)
		raw := x12.Generate(x12.Envelope{
			SenderQualifier: "01", SenderID: "004321519",
			ReceiverQualifier: "ZZ", ReceiverID: "SEDGEMFG",
			GSSenderID: "ACME", GSReceiverID: "SEDGEMFG",
			ControlNumber: 100,
		}, "997", segments)

		txn, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: raw})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindIntegrity))
		assert.Equal(t, models.StatusFailed, txn.Status)
	})
}

func TestReprocess(t *testing.T) {
	t.Run("should recover a failed transaction after the fault is fixed", func(t *testing.T) {
		f := newFixture()
		f.erp.processErr = fmt.Errorf("order entry rejected the order")

		failed, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{PartnerID: "p-1", RawContent: sample850(11)})
		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, failed.Status)

		f.erp.processErr = nil

		recovered, err := f.service.Reprocess(context.Background(), tenantID, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, recovered.Status)
		assert.Empty(t, recovered.ErrorMessage)
		assert.Equal(t, failed.TransactionNumber, recovered.TransactionNumber, "reprocess keeps the original number")
	})

	t.Run("should refuse transactions without stored raw content", func(t *testing.T) {
		f := newFixture()
		txn := models.EdiTransaction{ID: "t-raw", TenantID: tenantID, PartnerID: "p-1", Direction: models.DirectionInbound, Status: models.StatusFailed}
		require.NoError(t, f.txns.Create(context.Background(), txn))

		_, err := f.service.Reprocess(context.Background(), tenantID, "t-raw")
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})

	t.Run("should regenerate an outbound transaction without dispatching", func(t *testing.T) {
		f := newFixture()
		out, err := f.service.CreateOutbound(context.Background(), tenantID, OutboundRequest{
			PartnerID: "p-1", DocumentType: models.DocTypeInvoice, SourceRecordID: "inv-1",
		})
		require.NoError(t, err)
		require.NotEmpty(t, out.RawContent)

		redone, err := f.service.Reprocess(context.Background(), tenantID, out.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, redone.Status)
		assert.Equal(t, out.TransactionNumber, redone.TransactionNumber)
		assert.NotEmpty(t, redone.RawContent)
		assert.Empty(t, f.transport.sent, "reprocess never dispatches")
	})

	t.Run("should recover a typeless flat-file row once the partner declares a default", func(t *testing.T) {
		f := newFixture()
		f.partners.partners["p-2"] = models.TradingPartner{
			ID: "p-2", TenantID: tenantID, Code: "FLAT",
			CommunicationMethod: models.CommMethodSFTP,
			DefaultFormat:       models.FormatCSV,
			Status:              models.PartnerStatusActive,
		}

		stuck, err := f.service.CreateInbound(context.Background(), tenantID, InboundRequest{
			PartnerID:  "p-2",
			RawContent: "sku,quantity\nWID-100,10\n",
		})
		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, stuck.Status)

		p := f.partners.partners["p-2"]
		p.DefaultDocumentType = models.DocTypePurchaseOrder
		f.partners.partners["p-2"] = p

		recovered, err := f.service.Reprocess(context.Background(), tenantID, stuck.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, recovered.Status)
		assert.Equal(t, models.DocTypePurchaseOrder, recovered.DocumentType)
	})
}
