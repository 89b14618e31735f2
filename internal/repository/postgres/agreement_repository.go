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

// AgreementRepository PostgreSQL implementation of the agreement
// repository
type AgreementRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewAgreementRepository creates a new PostgreSQL agreement repository
func NewAgreementRepository(db *pgxpool.Pool, log *logger.Logger) *AgreementRepository {
	return &AgreementRepository{
		db:  db,
		log: log,
	}
}

const agreementColumns = `
	id, customer_id, payment_method_id, amount, currency, frequency,
	start_date, end_date, next_due_date, status, created_at, updated_at
`

// CreateWithFirstRecord stores a new agreement and its first pending
// ledger record in one transaction
func (r *AgreementRepository) CreateWithFirstRecord(ctx context.Context, agreement domain.Agreement, first domain.PaymentRecord) (domain.Agreement, domain.PaymentRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Agreement{}, domain.PaymentRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	agreementQuery := `
		INSERT INTO agreements (id, customer_id, payment_method_id, amount, currency, frequency, start_date, end_date, next_due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, agreementQuery,
		agreement.ID,
		agreement.CustomerID,
		agreement.PaymentMethodID,
		agreement.Amount.String(),
		agreement.Currency,
		agreement.Frequency,
		agreement.StartDate,
		agreement.EndDate,
		agreement.NextDueDate,
		agreement.Status,
	).Scan(&agreement.CreatedAt, &agreement.UpdatedAt)
	if err != nil {
		return domain.Agreement{}, domain.PaymentRecord{}, fmt.Errorf("failed to create agreement: %w", err)
	}

	first, err = insertRecord(ctx, tx, first)
	if err != nil {
		return domain.Agreement{}, domain.PaymentRecord{}, fmt.Errorf("failed to create first payment record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Agreement{}, domain.PaymentRecord{}, fmt.Errorf("failed to commit agreement: %w", err)
	}

	return agreement, first, nil
}

// GetByID returns an agreement by ID
func (r *AgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`

	agreement, err := scanAgreement(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Agreement{}, repository.ErrNotFound
		}
		return domain.Agreement{}, fmt.Errorf("failed to get agreement: %w", err)
	}

	return agreement, nil
}

// ListByCustomer returns the customer's agreements ordered by next due
// date
func (r *AgreementRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Agreement, error) {
	query := `
		SELECT ` + agreementColumns + `
		FROM agreements
		WHERE customer_id = $1
		ORDER BY next_due_date ASC
	`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query agreements: %w", err)
	}
	defer rows.Close()

	agreements := make([]domain.Agreement, 0)
	for rows.Next() {
		agreement, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agreement: %w", err)
		}
		agreements = append(agreements, agreement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agreements: %w", err)
	}

	return agreements, nil
}

// Update replaces an existing agreement. The statement only matches
// non-terminal rows so a cancelled or completed agreement can never be
// resurrected by a concurrent writer.
func (r *AgreementRepository) Update(ctx context.Context, agreement domain.Agreement) error {
	query := `
		UPDATE agreements
		SET next_due_date = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'paused')
	`

	tag, err := r.db.Exec(ctx, query, agreement.ID, agreement.NextDueDate, agreement.Status)
	if err != nil {
		return fmt.Errorf("failed to update agreement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status string
		err := r.db.QueryRow(ctx, `SELECT status FROM agreements WHERE id = $1`, agreement.ID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check agreement state: %w", err)
		}
		return domain.ErrInvalidState
	}

	return nil
}

// AdvanceWithRecord persists the rolled-forward due date and the new
// pending ledger record in one transaction
func (r *AgreementRepository) AdvanceWithRecord(ctx context.Context, agreement domain.Agreement, record domain.PaymentRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock plus status check so two runners advancing the same
	// agreement cannot both append a record for the same cycle
	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM agreements WHERE id = $1 FOR UPDATE`, agreement.ID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock agreement: %w", err)
	}
	if domain.AgreementStatus(status) != domain.AgreementStatusActive {
		return domain.ErrInvalidState
	}

	query := `
		UPDATE agreements
		SET next_due_date = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, agreement.ID, agreement.NextDueDate, agreement.Status); err != nil {
		return fmt.Errorf("failed to advance agreement: %w", err)
	}

	if _, err := insertRecord(ctx, tx, record); err != nil {
		return fmt.Errorf("failed to create payment record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit roll forward: %w", err)
	}

	return nil
}

// insertRecord appends a ledger record inside the given transaction
func insertRecord(ctx context.Context, tx pgx.Tx, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	query := `
		INSERT INTO payment_records (id, customer_id, payment_method_id, agreement_id, amount, currency, status, due_date, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
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
	return record, err
}

func scanAgreement(row pgx.Row) (domain.Agreement, error) {
	var (
		agreement domain.Agreement
		amount    string
		endDate   *time.Time
	)

	err := row.Scan(
		&agreement.ID,
		&agreement.CustomerID,
		&agreement.PaymentMethodID,
		&amount,
		&agreement.Currency,
		&agreement.Frequency,
		&agreement.StartDate,
		&endDate,
		&agreement.NextDueDate,
		&agreement.Status,
		&agreement.CreatedAt,
		&agreement.UpdatedAt,
	)
	if err != nil {
		return domain.Agreement{}, err
	}

	agreement.EndDate = endDate
	agreement.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Agreement{}, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}

	return agreement, nil
}
