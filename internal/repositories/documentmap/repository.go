package documentmap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sedge/pkg/database"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/tracing"
)

type DocumentMapRepository interface {
	Create(ctx context.Context, m models.EdiDocumentMap) error
	Update(ctx context.Context, m models.EdiDocumentMap) error
	Delete(ctx context.Context, tenantID, id string) error
	GetByID(ctx context.Context, tenantID, id string) (models.EdiDocumentMap, error)
	List(ctx context.Context, tenantID string) ([]models.EdiDocumentMap, error)
	Resolve(ctx context.Context, tenantID string, docType models.DocumentType, direction models.Direction, partnerID string) (*models.EdiDocumentMap, error)
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

func (r *Repository) Create(ctx context.Context, m models.EdiDocumentMap) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentMapRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	row := FromDocumentMap(m)
	ib := documentMapStruct.InsertInto(documentMapTable, row)
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            m.ID,
		"tenant_id":     m.TenantID,
		"document_type": m.DocumentType,
		"direction":     m.Direction,
		"partner_id":    m.PartnerID,
	}).Info("Creating document map")

	if _, err := r.db.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        m.ID,
			"tenant_id": m.TenantID,
		}).Error("error creating document map")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error creating document map")
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, m models.EdiDocumentMap) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentMapRepository.Update")
	defer span.End()

	m.UpdatedAt = time.Now().UTC()

	row := FromDocumentMap(m)
	ub := documentMapStruct.Update(documentMapTable, row)
	ub.Where(
		ub.Equal("id", m.ID),
		ub.Equal("tenant_id", m.TenantID),
	)
	sql, args := ub.Build()

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        m.ID,
			"tenant_id": m.TenantID,
		}).Error("error updating document map")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error updating document map")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "document map not found")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentMapRepository.Delete")
	defer span.End()

	db := documentMapStruct.DeleteFrom(documentMapTable)
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
		}).Error("error deleting document map")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error deleting document map")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "document map not found")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id string) (models.EdiDocumentMap, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentMapRepository.GetByID")
	defer span.End()

	sb := documentMapStruct.SelectFrom(documentMapTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)
	query, args := sb.Build()

	var row DocumentMapRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EdiDocumentMap{}, httperror.NewHTTPError(http.StatusNotFound, "document map not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("error getting document map")
		return models.EdiDocumentMap{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting document map")
	}
	return ToDocumentMap(&row), nil
}

func (r *Repository) List(ctx context.Context, tenantID string) ([]models.EdiDocumentMap, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentMapRepository.List")
	defer span.End()

	sb := documentMapStruct.SelectFrom(documentMapTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("document_type", "direction", "name").Asc()
	query, args := sb.Build()

	var rows []DocumentMapRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("error listing document maps")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing document maps")
	}

	maps := make([]models.EdiDocumentMap, 0, len(rows))
	for i := range rows {
		maps = append(maps, ToDocumentMap(&rows[i]))
	}
	return maps, nil
}

// Resolve picks the map the pipeline should apply: an active
// partner-specific map wins over the active tenant default. No map at all
// returns nil, which the pipeline treats as the identity mapping.
func (r *Repository) Resolve(ctx context.Context, tenantID string, docType models.DocumentType, direction models.Direction, partnerID string) (*models.EdiDocumentMap, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentMapRepository.Resolve")
	defer span.End()

	if partnerID != "" {
		m, err := r.findOne(ctx, tenantID, docType, direction, partnerID, false)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
	return r.findOne(ctx, tenantID, docType, direction, "", true)
}

func (r *Repository) findOne(ctx context.Context, tenantID string, docType models.DocumentType, direction models.Direction, partnerID string, isDefault bool) (*models.EdiDocumentMap, error) {
	sb := documentMapStruct.SelectFrom(documentMapTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("document_type", string(docType)),
		sb.Equal("direction", string(direction)),
		sb.Equal("is_active", true),
	)
	if isDefault {
		sb.Where(sb.Equal("is_default", true))
	} else {
		sb.Where(sb.Equal("partner_id", partnerID))
	}
	sb.OrderBy("updated_at").Desc()
	sb.Limit(1)
	query, args := sb.Build()

	var row DocumentMapRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":     tenantID,
			"document_type": docType,
			"direction":     direction,
			"partner_id":    partnerID,
		}).Error("error resolving document map")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error resolving document map")
	}

	m := ToDocumentMap(&row)
	return &m, nil
}
