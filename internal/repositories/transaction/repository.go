package transaction

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

type TransactionRepository interface {
	NextTransactionNumber(ctx context.Context, tenantID string) (int64, error)
	Create(ctx context.Context, t models.EdiTransaction) error
	Update(ctx context.Context, t models.EdiTransaction) error
	GetByID(ctx context.Context, tenantID, id string) (models.EdiTransaction, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]models.EdiTransaction, error)
	ListByPartner(ctx context.Context, tenantID, partnerID string) ([]models.EdiTransaction, error)
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

// nextNumberSQL is the single authoritative allocator for per-tenant
// transaction numbers. The self-referencing upsert serializes concurrent
// allocations on the tenant's counter row, so numbers are monotonic and
// gap-free. Raw SQL because the builder cannot express EXCLUDED-free
// self-increment in the DO UPDATE clause.
const nextNumberSQL = `
	INSERT INTO edi_transaction_counters (tenant_id, value)
	VALUES ($1, 1)
	ON CONFLICT (tenant_id)
	DO UPDATE SET value = edi_transaction_counters.value + 1
	RETURNING value`

func (r *Repository) NextTransactionNumber(ctx context.Context, tenantID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.NextTransactionNumber")
	defer span.End()

	var value int64
	if err := r.db.QueryRowxContext(ctx, nextNumberSQL, tenantID).Scan(&value); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("error allocating transaction number")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "error allocating transaction number")
	}
	return value, nil
}

func (r *Repository) Create(ctx context.Context, t models.EdiTransaction) error {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	row := FromTransaction(t)
	ib := transactionStruct.InsertInto(transactionTable, row)
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":                 t.ID,
		"tenant_id":          t.TenantID,
		"transaction_number": t.TransactionNumber,
		"document_type":      t.DocumentType,
		"direction":          t.Direction,
	}).Info("Creating EDI transaction")

	if _, err := r.db.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        t.ID,
			"tenant_id": t.TenantID,
		}).Error("error creating EDI transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error creating EDI transaction")
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, t models.EdiTransaction) error {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.Update")
	defer span.End()

	t.UpdatedAt = time.Now().UTC()

	row := FromTransaction(t)
	ub := transactionStruct.Update(transactionTable, row)
	ub.Where(
		ub.Equal("id", t.ID),
		ub.Equal("tenant_id", t.TenantID),
	)
	sql, args := ub.Build()

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        t.ID,
			"tenant_id": t.TenantID,
			"status":    t.Status,
		}).Error("error updating EDI transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error updating EDI transaction")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "EDI transaction not found")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id string) (models.EdiTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.GetByID")
	defer span.End()

	sb := transactionStruct.SelectFrom(transactionTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)
	query, args := sb.Build()

	var row TransactionRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EdiTransaction{}, httperror.NewHTTPError(http.StatusNotFound, "EDI transaction not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("error getting EDI transaction")
		return models.EdiTransaction{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting EDI transaction")
	}
	return ToTransaction(&row), nil
}

func (r *Repository) List(ctx context.Context, tenantID string, limit, offset int) ([]models.EdiTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.List")
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	sb := transactionStruct.SelectFrom(transactionTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at").Desc()
	sb.Limit(limit).Offset(offset)
	query, args := sb.Build()

	var rows []TransactionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("error listing EDI transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing EDI transactions")
	}

	transactions := make([]models.EdiTransaction, 0, len(rows))
	for i := range rows {
		transactions = append(transactions, ToTransaction(&rows[i]))
	}
	return transactions, nil
}

func (r *Repository) ListByPartner(ctx context.Context, tenantID, partnerID string) ([]models.EdiTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.ListByPartner")
	defer span.End()

	sb := transactionStruct.SelectFrom(transactionTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("partner_id", partnerID),
	)
	sb.OrderBy("created_at").Desc()
	query, args := sb.Build()

	var rows []TransactionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"partner_id": partnerID,
		}).Error("error listing partner transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing partner transactions")
	}

	transactions := make([]models.EdiTransaction, 0, len(rows))
	for i := range rows {
		transactions = append(transactions, ToTransaction(&rows[i]))
	}
	return transactions, nil
}
