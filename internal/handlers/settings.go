package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sedge/internal/repositories/settings"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/utils"
)

// SettingsHandler handles the per-tenant EDI settings endpoints
type SettingsHandler struct {
	repo      settings.SettingsRepository
	scheduler ScheduleRefresher
	logger    ectologger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(repo settings.SettingsRepository, scheduler ScheduleRefresher, logger ectologger.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, scheduler: scheduler, logger: logger}
}

// UpdateSettingsRequest represents the settings upsert request body.
// Submitting the masked sentinel as private_key keeps the stored key.
type UpdateSettingsRequest struct {
	ISAQualifier        string            `json:"isa_qualifier" validate:"required,len=2"`
	ISAID               string            `json:"isa_id" validate:"required,max=15"`
	GSID                string            `json:"gs_id" validate:"omitempty,max=15"`
	AS2LocalID          string            `json:"as2_local_id"`
	Certificate         string            `json:"certificate"`
	PrivateKey          string            `json:"private_key"`
	AutoAcknowledge     bool              `json:"auto_acknowledge"`
	AutoCreateRecords   bool              `json:"auto_create_records"`
	DefaultFormat       models.WireFormat `json:"default_format" validate:"omitempty,oneof=x12 csv xml json"`
	RetentionDays       int               `json:"retention_days" validate:"omitempty,min=1"`
	SFTPPollingEnabled  bool              `json:"sftp_polling_enabled"`
	SFTPPollingInterval int               `json:"sftp_polling_interval" validate:"omitempty,min=60"`
}

// RegisterRoutes registers settings routes
func (h *SettingsHandler) RegisterRoutes(g *echo.Group) {
	s := g.Group("/settings")
	s.GET("", h.Get)
	s.PUT("", h.Update)
}

// Get handles GET /settings. The private key is always masked.
func (h *SettingsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	cfg, err := h.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, cfg.Masked())
}

// Update handles PUT /settings
func (h *SettingsHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdateSettingsRequest](c)
	if err != nil {
		return err
	}

	cfg := models.EdiSettings{
		TenantID:            tenantID,
		ISAQualifier:        req.ISAQualifier,
		ISAID:               req.ISAID,
		GSID:                req.GSID,
		AS2LocalID:          req.AS2LocalID,
		Certificate:         req.Certificate,
		PrivateKey:          req.PrivateKey,
		AutoAcknowledge:     req.AutoAcknowledge,
		AutoCreateRecords:   req.AutoCreateRecords,
		DefaultFormat:       req.DefaultFormat,
		RetentionDays:       req.RetentionDays,
		SFTPPollingEnabled:  req.SFTPPollingEnabled,
		SFTPPollingInterval: req.SFTPPollingInterval,
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = models.FormatX12
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 365
	}
	if cfg.SFTPPollingInterval == 0 {
		cfg.SFTPPollingInterval = 300
	}

	if err := h.repo.Upsert(ctx, cfg); err != nil {
		return err
	}

	if err := h.scheduler.RefreshSchedules(ctx); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("failed to refresh polling schedules")
	}

	return SuccessResponse(c, cfg.Masked())
}
