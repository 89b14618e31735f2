package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/shopspring/decimal"
)

// PaymentRepository PostgreSQL implementation of the ledger. Rows are
// only ever inserted or status-updated, never deleted.
type PaymentRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPaymentRepository creates a new PostgreSQL ledger repository
func NewPaymentRepository(db *pgxpool.Pool, log *logger.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:  db,
		log: log,
	}
}

const recordColumns = `
	id, customer_id, payment_method_id, agreement_id, amount, currency,
	status, due_date, description, created_at, updated_at
`

// Create appends a new ledger record
func (r *PaymentRepository) Create(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	query := `
		INSERT INTO payment_records (id, customer_id, payment_method_id, agreement_id, amount, currency, status, due_date, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		record.ID,
		record.CustomerID,
		record.PaymentMethodID,
		record.AgreementID,
		record.Amount.String(),
		record.Currency,
		record.Status,
		record.DueDate,
		record.Description,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("failed to create payment record: %w", err)
	}

	return record, nil
}

// GetByID returns a ledger record by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM payment_records WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentRecord{}, repository.ErrNotFound
		}
		return domain.PaymentRecord{}, fmt.Errorf("failed to get payment record: %w", err)
	}

	return record, nil
}

// UpdateStatus sets the outcome of a record and returns the updated row
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (domain.PaymentRecord, error) {
	query := `
		UPDATE payment_records
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + recordColumns

	record, err := scanRecord(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentRecord{}, repository.ErrNotFound
		}
		return domain.PaymentRecord{}, fmt.Errorf("failed to update payment record: %w", err)
	}

	return record, nil
}

// HistoryByCustomer returns the customer's records most-recent-first,
// capped at limit
func (r *PaymentRepository) HistoryByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.PaymentRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM payment_records
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryRecords(ctx, query, customerID, limit)
}

// ListPendingDue returns pending records due on or before asOf, most
// overdue first
func (r *PaymentRepository) ListPendingDue(ctx context.Context, asOf time.Time) ([]domain.PaymentRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM payment_records
		WHERE status = $1 AND due_date <= $2
		ORDER BY due_date ASC
	`

	return r.queryRecords(ctx, query, domain.PaymentStatusPending, asOf)
}

func (r *PaymentRepository) queryRecords(ctx context.Context, query string, args ...any) ([]domain.PaymentRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PaymentRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment records: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (domain.PaymentRecord, error) {
	var (
		record domain.PaymentRecord
		amount string
	)

	err := row.Scan(
		&record.ID,
		&record.CustomerID,
		&record.PaymentMethodID,
		&record.AgreementID,
		&amount,
		&record.Currency,
		&record.Status,
		&record.DueDate,
		&record.Description,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	record.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}

	return record, nil
}
