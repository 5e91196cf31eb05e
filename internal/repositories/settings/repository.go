package settings

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

type SettingsRepository interface {
	Get(ctx context.Context, tenantID string) (models.EdiSettings, error)
	Upsert(ctx context.Context, s models.EdiSettings) error
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

// Get returns the tenant's settings, or the virtual defaults when the
// tenant has never saved any.
func (r *Repository) Get(ctx context.Context, tenantID string) (models.EdiSettings, error) {
	ctx, span := tracing.StartSpan(ctx, "SettingsRepository.Get")
	defer span.End()

	sb := settingsStruct.SelectFrom(settingsTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	query, args := sb.Build()

	var row SettingsRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return *models.DefaultSettings(tenantID), nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("error getting EDI settings")
		return models.EdiSettings{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting EDI settings")
	}
	return ToSettings(&row), nil
}

// Upsert writes the tenant's single settings row. A private key equal to
// the masked sentinel means "keep the stored key": the stored value is
// read back and preserved before the write.
func (r *Repository) Upsert(ctx context.Context, s models.EdiSettings) error {
	ctx, span := tracing.StartSpan(ctx, "SettingsRepository.Upsert")
	defer span.End()

	if s.PrivateKey == models.MaskedKeySentinel {
		current, err := r.Get(ctx, s.TenantID)
		if err != nil {
			return err
		}
		s.PrivateKey = current.PrivateKey
	}

	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	row := FromSettings(s)
	ib := settingsStruct.InsertInto(settingsTable, row)
	ub := ib.OnConflict("tenant_id")
	ub.Set(
		ub.Assign("isa_qualifier", database.Excluded("isa_qualifier")),
		ub.Assign("isa_id", database.Excluded("isa_id")),
		ub.Assign("gs_id", database.Excluded("gs_id")),
		ub.Assign("as2_local_id", database.Excluded("as2_local_id")),
		ub.Assign("certificate", database.Excluded("certificate")),
		ub.Assign("private_key", database.Excluded("private_key")),
		ub.Assign("auto_acknowledge", database.Excluded("auto_acknowledge")),
		ub.Assign("auto_create_records", database.Excluded("auto_create_records")),
		ub.Assign("default_format", database.Excluded("default_format")),
		ub.Assign("retention_days", database.Excluded("retention_days")),
		ub.Assign("sftp_polling_enabled", database.Excluded("sftp_polling_enabled")),
		ub.Assign("sftp_polling_interval", database.Excluded("sftp_polling_interval")),
		ub.Assign("updated_at", now),
	)
	query, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":            s.TenantID,
		"auto_acknowledge":     s.AutoAcknowledge,
		"sftp_polling_enabled": s.SFTPPollingEnabled,
	}).Info("Upserting EDI settings")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", s.TenantID).Error("error upserting EDI settings")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting EDI settings")
	}
	return nil
}
