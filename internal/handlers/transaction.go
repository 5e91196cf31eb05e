package handlers

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sedge/internal/repositories/transaction"
	appctx "github.com/Ramsey-B/sedge/pkg/context"
	"github.com/Ramsey-B/sedge/pkg/exchange"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/utils"
)

// Exchanger is the exchange service surface the transaction handler uses.
type Exchanger interface {
	CreateInbound(ctx context.Context, tenantID string, req exchange.InboundRequest) (models.EdiTransaction, error)
	CreateOutbound(ctx context.Context, tenantID string, req exchange.OutboundRequest) (models.EdiTransaction, error)
	Acknowledge(ctx context.Context, tenantID, transactionID string, accepted bool) (models.EdiTransaction, error)
	Reprocess(ctx context.Context, tenantID, transactionID string) (models.EdiTransaction, error)
}

// TransactionHandler handles EDI transaction API endpoints
type TransactionHandler struct {
	repo     transaction.TransactionRepository
	exchange Exchanger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(repo transaction.TransactionRepository, exchanger Exchanger) *TransactionHandler {
	return &TransactionHandler{repo: repo, exchange: exchanger}
}

// CreateInboundRequest represents the receive-document request body
type CreateInboundRequest struct {
	PartnerID    string              `json:"partner_id" validate:"required,uuid"`
	Format       models.WireFormat   `json:"format" validate:"omitempty,oneof=x12 csv xml json"`
	DocumentType models.DocumentType `json:"document_type" validate:"omitempty,oneof=850 810 856 997 custom"`
	RawContent   string              `json:"raw_content" validate:"required"`
}

// CreateOutboundRequest represents the generate-document request body
type CreateOutboundRequest struct {
	PartnerID      string              `json:"partner_id" validate:"required,uuid"`
	DocumentType   models.DocumentType `json:"document_type" validate:"required,oneof=850 810 856"`
	SourceRecordID string              `json:"source_record_id" validate:"required"`
	Format         models.WireFormat   `json:"format" validate:"omitempty,oneof=x12 csv xml json"`
	Send           bool                `json:"send"`
}

// AcknowledgeRequest represents the acknowledge request body
type AcknowledgeRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

// RegisterRoutes registers transaction routes
func (h *TransactionHandler) RegisterRoutes(g *echo.Group) {
	txns := g.Group("/transactions")
	txns.GET("", h.List)
	txns.GET("/:id", h.GetByID)
	txns.POST("/inbound", h.CreateInbound)
	txns.POST("/outbound", h.CreateOutbound)
	txns.POST("/:id/acknowledge", h.Acknowledge)
	txns.POST("/:id/reprocess", h.Reprocess)
}

// List handles GET /transactions?limit=...&offset=...&partner_id=...
func (h *TransactionHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	if partnerID := c.QueryParam("partner_id"); partnerID != "" {
		txns, err := h.repo.ListByPartner(ctx, tenantID, partnerID)
		if err != nil {
			return err
		}
		return SuccessResponse(c, txns)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	txns, err := h.repo.List(ctx, tenantID, limit, offset)
	if err != nil {
		return err
	}

	return SuccessResponse(c, txns)
}

// GetByID handles GET /transactions/:id
func (h *TransactionHandler) GetByID(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	txn, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, txn)
}

// CreateInbound handles POST /transactions/inbound
func (h *TransactionHandler) CreateInbound(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[CreateInboundRequest](c)
	if err != nil {
		return err
	}

	txn, err := h.exchange.CreateInbound(ctx, tenantID, exchange.InboundRequest{
		PartnerID:    req.PartnerID,
		Format:       req.Format,
		DocumentType: req.DocumentType,
		RawContent:   req.RawContent,
		CreatedBy:    appctx.GetUserID(ctx),
	})
	if err != nil && txn.ID == "" {
		// Nothing was recorded; surface the rejection.
		return err
	}

	// A recorded failure is still a created transaction: the caller gets
	// the terminal row and reads the outcome from its status.
	return CreatedResponse(c, txn)
}

// CreateOutbound handles POST /transactions/outbound
func (h *TransactionHandler) CreateOutbound(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[CreateOutboundRequest](c)
	if err != nil {
		return err
	}

	txn, err := h.exchange.CreateOutbound(ctx, tenantID, exchange.OutboundRequest{
		PartnerID:      req.PartnerID,
		DocumentType:   req.DocumentType,
		SourceRecordID: req.SourceRecordID,
		Format:         req.Format,
		Send:           req.Send,
		CreatedBy:      appctx.GetUserID(ctx),
	})
	if err != nil && txn.ID == "" {
		return err
	}

	return CreatedResponse(c, txn)
}

// Acknowledge handles POST /transactions/:id/acknowledge
func (h *TransactionHandler) Acknowledge(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[AcknowledgeRequest](c)
	if err != nil {
		return err
	}

	ack, err := h.exchange.Acknowledge(ctx, tenantID, id, *req.Accepted)
	if err != nil {
		return err
	}

	return CreatedResponse(c, ack)
}

// Reprocess handles POST /transactions/:id/reprocess
func (h *TransactionHandler) Reprocess(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	txn, err := h.exchange.Reprocess(ctx, tenantID, id)
	if err != nil && txn.ID == "" {
		return err
	}

	return SuccessResponse(c, txn)
}
