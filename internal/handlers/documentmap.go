package handlers

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sedge/internal/repositories/documentmap"
	"github.com/Ramsey-B/sedge/pkg/mapping"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/utils"
)

// DocumentMapHandler handles field mapping API endpoints
type DocumentMapHandler struct {
	repo documentmap.DocumentMapRepository
}

// NewDocumentMapHandler creates a new document map handler
func NewDocumentMapHandler(repo documentmap.DocumentMapRepository) *DocumentMapHandler {
	return &DocumentMapHandler{repo: repo}
}

// CreateDocumentMapRequest represents the create document map request body
type CreateDocumentMapRequest struct {
	Name         string               `json:"name" validate:"required"`
	DocumentType models.DocumentType  `json:"document_type" validate:"required,oneof=850 810 856 997 custom"`
	Direction    models.Direction     `json:"direction" validate:"required,oneof=inbound outbound"`
	PartnerID    string               `json:"partner_id" validate:"omitempty,uuid"`
	Rules        []models.MappingRule `json:"rules" validate:"required,min=1"`
	IsDefault    bool                 `json:"is_default"`
	IsActive     *bool                `json:"is_active"`
}

// UpdateDocumentMapRequest represents the update document map request body
type UpdateDocumentMapRequest struct {
	Name      string               `json:"name" validate:"required"`
	PartnerID string               `json:"partner_id" validate:"omitempty,uuid"`
	Rules     []models.MappingRule `json:"rules" validate:"required,min=1"`
	IsDefault bool                 `json:"is_default"`
	IsActive  *bool                `json:"is_active"`
}

// RegisterRoutes registers document map routes
func (h *DocumentMapHandler) RegisterRoutes(g *echo.Group) {
	maps := g.Group("/document-maps")
	maps.POST("", h.Create)
	maps.GET("", h.List)
	maps.GET("/:id", h.GetByID)
	maps.PUT("/:id", h.Update)
	maps.DELETE("/:id", h.Delete)
}

// Create handles POST /document-maps
func (h *DocumentMapHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[CreateDocumentMapRequest](c)
	if err != nil {
		return err
	}

	if err := mapping.ValidateRules(req.Rules); err != nil {
		return err
	}

	m := models.EdiDocumentMap{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Name:         req.Name,
		DocumentType: req.DocumentType,
		Direction:    req.Direction,
		PartnerID:    req.PartnerID,
		Rules:        req.Rules,
		IsDefault:    req.IsDefault,
		IsActive:     true,
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := h.repo.Create(ctx, m); err != nil {
		return err
	}

	return CreatedResponse(c, m)
}

// List handles GET /document-maps
func (h *DocumentMapHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	maps, err := h.repo.List(ctx, tenantID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, maps)
}

// GetByID handles GET /document-maps/:id
func (h *DocumentMapHandler) GetByID(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	m, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, m)
}

// Update handles PUT /document-maps/:id
func (h *DocumentMapHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdateDocumentMapRequest](c)
	if err != nil {
		return err
	}

	if err := mapping.ValidateRules(req.Rules); err != nil {
		return err
	}

	// Document type and direction are immutable; the stored record keeps them.
	m, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	m.Name = req.Name
	m.PartnerID = req.PartnerID
	m.Rules = req.Rules
	m.IsDefault = req.IsDefault
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := h.repo.Update(ctx, m); err != nil {
		return err
	}

	return SuccessResponse(c, m)
}

// Delete handles DELETE /document-maps/:id
func (h *DocumentMapHandler) Delete(c echo.Context) error {
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

	return NoContentResponse(c)
}
