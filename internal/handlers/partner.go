package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sedge/internal/repositories/partner"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/utils"
)

// ChannelTester probes a partner's channel without sending a document.
type ChannelTester interface {
	Test(ctx context.Context, p *models.TradingPartner) error
}

// PartnerHandler handles trading partner API endpoints
type PartnerHandler struct {
	repo      partner.PartnerRepository
	transport ChannelTester
	scheduler ScheduleRefresher
	logger    ectologger.Logger
}

// NewPartnerHandler creates a new trading partner handler
func NewPartnerHandler(repo partner.PartnerRepository, transport ChannelTester, scheduler ScheduleRefresher, logger ectologger.Logger) *PartnerHandler {
	return &PartnerHandler{repo: repo, transport: transport, scheduler: scheduler, logger: logger}
}

// CreatePartnerRequest represents the create trading partner request body
type CreatePartnerRequest struct {
	Code                string                     `json:"code" validate:"required"`
	Name                string                     `json:"name" validate:"required"`
	PartnerType         models.PartnerType         `json:"partner_type" validate:"required,oneof=customer vendor both"`
	CommunicationMethod models.CommunicationMethod `json:"communication_method" validate:"required,oneof=manual api sftp as2 email"`
	DefaultFormat       models.WireFormat          `json:"default_format" validate:"omitempty,oneof=x12 csv xml json"`
	DefaultDocumentType models.DocumentType        `json:"default_document_type" validate:"omitempty,oneof=850 810 856 997 custom"`
	ISAQualifier        string                     `json:"isa_qualifier"`
	ISAID               string                     `json:"isa_id"`
	GSID                string                     `json:"gs_id"`
	AS2                 models.AS2Config           `json:"as2"`
	SFTP                models.SFTPConfig          `json:"sftp"`
	Status              models.PartnerStatus       `json:"status" validate:"omitempty,oneof=active inactive testing suspended"`
}

// UpdatePartnerRequest represents the update trading partner request body
type UpdatePartnerRequest struct {
	Name                string                     `json:"name" validate:"required"`
	PartnerType         models.PartnerType         `json:"partner_type" validate:"required,oneof=customer vendor both"`
	CommunicationMethod models.CommunicationMethod `json:"communication_method" validate:"required,oneof=manual api sftp as2 email"`
	DefaultFormat       models.WireFormat          `json:"default_format" validate:"omitempty,oneof=x12 csv xml json"`
	DefaultDocumentType models.DocumentType        `json:"default_document_type" validate:"omitempty,oneof=850 810 856 997 custom"`
	ISAQualifier        string                     `json:"isa_qualifier"`
	ISAID               string                     `json:"isa_id"`
	GSID                string                     `json:"gs_id"`
	AS2                 models.AS2Config           `json:"as2"`
	SFTP                models.SFTPConfig          `json:"sftp"`
	Status              models.PartnerStatus       `json:"status" validate:"omitempty,oneof=active inactive testing suspended"`
}

// RegisterRoutes registers trading partner routes
func (h *PartnerHandler) RegisterRoutes(g *echo.Group) {
	partners := g.Group("/partners")
	partners.POST("", h.Create)
	partners.GET("", h.List)
	partners.GET("/:id", h.GetByID)
	partners.PUT("/:id", h.Update)
	partners.DELETE("/:id", h.Delete)
	partners.POST("/:id/test-connection", h.TestConnection)
}

// Create handles POST /partners
func (h *PartnerHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[CreatePartnerRequest](c)
	if err != nil {
		return err
	}

	p := models.TradingPartner{
		ID:                  uuid.New().String(),
		TenantID:            tenantID,
		Code:                req.Code,
		Name:                req.Name,
		PartnerType:         req.PartnerType,
		CommunicationMethod: req.CommunicationMethod,
		DefaultFormat:       req.DefaultFormat,
		DefaultDocumentType: req.DefaultDocumentType,
		ISAQualifier:        req.ISAQualifier,
		ISAID:               req.ISAID,
		GSID:                req.GSID,
		AS2:                 req.AS2,
		SFTP:                req.SFTP,
		Status:              req.Status,
	}
	if p.Status == "" {
		p.Status = models.PartnerStatusTesting
	}

	if err := h.repo.Create(ctx, p); err != nil {
		return err
	}

	h.refreshSchedules(c)
	return CreatedResponse(c, p)
}

// List handles GET /partners
func (h *PartnerHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	partners, err := h.repo.List(ctx, tenantID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, partners)
}

// GetByID handles GET /partners/:id
func (h *PartnerHandler) GetByID(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	p, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, p)
}

// Update handles PUT /partners/:id
func (h *PartnerHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdatePartnerRequest](c)
	if err != nil {
		return err
	}

	// Partner code is immutable; the stored record keeps it.
	p, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	p.Name = req.Name
	p.PartnerType = req.PartnerType
	p.CommunicationMethod = req.CommunicationMethod
	p.DefaultFormat = req.DefaultFormat
	p.DefaultDocumentType = req.DefaultDocumentType
	p.ISAQualifier = req.ISAQualifier
	p.ISAID = req.ISAID
	p.GSID = req.GSID
	p.AS2 = req.AS2
	p.SFTP = req.SFTP
	if req.Status != "" {
		p.Status = req.Status
	}

	if err := h.repo.Update(ctx, p); err != nil {
		return err
	}

	h.refreshSchedules(c)
	return SuccessResponse(c, p)
}

// Delete handles DELETE /partners/:id
func (h *PartnerHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	h.refreshSchedules(c)
	return NoContentResponse(c)
}

// TestConnection handles POST /partners/:id/test-connection
func (h *PartnerHandler) TestConnection(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	p, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := h.transport.Test(ctx, &p); err != nil {
		return err
	}

	return SuccessResponse(c, map[string]any{"status": "ok"})
}

func (h *PartnerHandler) refreshSchedules(c echo.Context) {
	ctx := c.Request().Context()
	if err := h.scheduler.RefreshSchedules(ctx); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("failed to refresh polling schedules")
	}
}
