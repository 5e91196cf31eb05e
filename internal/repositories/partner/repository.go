package partner

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sedge/pkg/database"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/tracing"
)

type PartnerRepository interface {
	Create(ctx context.Context, p models.TradingPartner) error
	Update(ctx context.Context, p models.TradingPartner) error
	Delete(ctx context.Context, tenantID, id string) error
	GetByID(ctx context.Context, tenantID, id string) (models.TradingPartner, error)
	GetByCode(ctx context.Context, tenantID, code string) (models.TradingPartner, error)
	List(ctx context.Context, tenantID string) ([]models.TradingPartner, error)
	ListPollable(ctx context.Context) ([]models.TradingPartner, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Create(ctx context.Context, p models.TradingPartner) error {
	ctx, span := tracing.StartSpan(ctx, "PartnerRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	row := FromPartner(p)
	ib := partnerStruct.InsertInto(partnerTable, row)
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        p.ID,
		"tenant_id": p.TenantID,
		"code":      p.Code,
	}).Info("Creating trading partner")

	if _, err := r.db.ExecContext(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return httperror.NewHTTPError(http.StatusConflict, "a partner with this code already exists")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        p.ID,
			"tenant_id": p.TenantID,
			"code":      p.Code,
		}).Error("error creating trading partner")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error creating trading partner")
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, p models.TradingPartner) error {
	ctx, span := tracing.StartSpan(ctx, "PartnerRepository.Update")
	defer span.End()

	p.UpdatedAt = time.Now().UTC()

	row := FromPartner(p)
	ub := partnerStruct.Update(partnerTable, row)
	ub.Where(
		ub.Equal("id", p.ID),
		ub.Equal("tenant_id", p.TenantID),
	)
	sql, args := ub.Build()

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        p.ID,
			"tenant_id": p.TenantID,
		}).Error("error updating trading partner")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error updating trading partner")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "trading partner not found")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "PartnerRepository.Delete")
	defer span.End()

	db := partnerStruct.DeleteFrom(partnerTable)
	db.Where(
		db.Equal("id", id),
		db.Equal("tenant_id", tenantID),
	)
	sql, args := db.Build()

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("error deleting trading partner")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error deleting trading partner")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "trading partner not found")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id string) (models.TradingPartner, error) {
	ctx, span := tracing.StartSpan(ctx, "PartnerRepository.GetByID")
	defer span.End()

	sb := partnerStruct.SelectFrom(partnerTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)
	sql, args := sb.Build()

	var row PartnerRow
	if err := r.db.GetContext(ctx, &row, sql, args...); err != nil {
		return models.TradingPartner{}, r.getErr(ctx, err, tenantID, id)
	}
	return ToPartner(&row), nil
}

func (r *Repository) GetByCode(ctx context.Context, tenantID, code string) (models.TradingPartner, error) {
	ctx, span := tracing.StartSpan(ctx, "PartnerRepository.GetByCode")
	defer span.End()

	sb := partnerStruct.SelectFrom(partnerTable)
	sb.Where(
		sb.Equal("code", code),
		sb.Equal("tenant_id", tenantID),
	)
	sql, args := sb.Build()

	var row PartnerRow
	if err := r.db.GetContext(ctx, &row, sql, args...); err != nil {
		return models.TradingPartner{}, r.getErr(ctx, err, tenantID, code)
	}
	return ToPartner(&row), nil
}

func (r *Repository) List(ctx context.Context, tenantID string) ([]models.TradingPartner, error) {
	ctx, span := tracing.StartSpan(ctx, "PartnerRepository.List")
	defer span.End()

	sb := partnerStruct.SelectFrom(partnerTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("code").Asc()
	sql, args := sb.Build()

	var rows []PartnerRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("error listing trading partners")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing trading partners")
	}

	partners := make([]models.TradingPartner, 0, len(rows))
	for i := range rows {
		partners = append(partners, ToPartner(&rows[i]))
	}
	return partners, nil
}

// ListPollable returns the SFTP partners across all tenants that are
// eligible for scheduled polling. The poll schedule lives inside the SFTP
// JSONB config, so the schedule presence check happens after decode.
func (r *Repository) ListPollable(ctx context.Context) ([]models.TradingPartner, error) {
	ctx, span := tracing.StartSpan(ctx, "PartnerRepository.ListPollable")
	defer span.End()

	sb := partnerStruct.SelectFrom(partnerTable)
	sb.Where(
		sb.Equal("communication_method", string(models.CommMethodSFTP)),
		sb.In("status", string(models.PartnerStatusActive), string(models.PartnerStatusTesting)),
	)
	sql, args := sb.Build()

	var rows []PartnerRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("error listing pollable partners")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing pollable partners")
	}

	partners := make([]models.TradingPartner, 0, len(rows))
	for i := range rows {
		partners = append(partners, ToPartner(&rows[i]))
	}
	return ectolinq.Filter(partners, func(p models.TradingPartner) bool {
		return p.Pollable()
	}), nil
}

func (r *Repository) getErr(ctx context.Context, err error, tenantID, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "trading partner not found")
	}
	r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"tenant_id": tenantID,
		"key":       key,
	}).Error("error getting trading partner")
	return httperror.NewHTTPError(http.StatusInternalServerError, "error getting trading partner")
}

// isUniqueViolation matches the Postgres unique_violation SQLSTATE.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
