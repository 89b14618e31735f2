package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// PaymentMethodRepository PostgreSQL implementation of the payment
// method repository. Only redacted instrument data ever reaches this
// layer.
type PaymentMethodRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPaymentMethodRepository creates a new PostgreSQL payment method
// repository
func NewPaymentMethodRepository(db *pgxpool.Pool, log *logger.Logger) *PaymentMethodRepository {
	return &PaymentMethodRepository{
		db:  db,
		log: log,
	}
}

const methodColumns = `
	id, customer_id, kind,
	card_last4, card_network, card_holder_name, card_expiry_month, card_expiry_year,
	bank_code, branch_code, account_last4, account_holder_name,
	is_default, is_active, created_at, updated_at
`

// Create stores a new payment method. A default method displaces the
// previous default of the same kind inside one transaction.
func (r *PaymentMethodRepository) Create(ctx context.Context, method domain.PaymentMethod) (domain.PaymentMethod, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if method.IsDefault {
		clearQuery := `
			UPDATE payment_methods
			SET is_default = FALSE, updated_at = NOW()
			WHERE customer_id = $1 AND kind = $2 AND is_default = TRUE
		`
		if _, err := tx.Exec(ctx, clearQuery, method.CustomerID, method.Kind); err != nil {
			return domain.PaymentMethod{}, fmt.Errorf("failed to clear default flag: %w", err)
		}
	}

	insertQuery := `
		INSERT INTO payment_methods (
			id, customer_id, kind,
			card_last4, card_network, card_holder_name, card_expiry_month, card_expiry_year,
			bank_code, branch_code, account_last4, account_holder_name,
			is_default, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, insertQuery,
		method.ID,
		method.CustomerID,
		method.Kind,
		method.CardLast4,
		method.CardNetwork,
		method.CardHolderName,
		method.CardExpiryMonth,
		method.CardExpiryYear,
		method.BankCode,
		method.BranchCode,
		method.AccountLast4,
		method.AccountHolderName,
		method.IsDefault,
		method.IsActive,
	).Scan(&method.CreatedAt, &method.UpdatedAt)
	if err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("failed to create payment method: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("failed to commit payment method: %w", err)
	}

	return method, nil
}

// GetByID returns a payment method by ID
func (r *PaymentMethodRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE id = $1`

	method, err := scanMethod(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentMethod{}, repository.ErrNotFound
		}
		return domain.PaymentMethod{}, fmt.Errorf("failed to get payment method: %w", err)
	}

	return method, nil
}

// Update replaces an existing payment method
func (r *PaymentMethodRepository) Update(ctx context.Context, method domain.PaymentMethod) error {
	query := `
		UPDATE payment_methods
		SET is_default = $2, is_active = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, method.ID, method.IsDefault, method.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListActiveByCustomer returns the customer's active methods, default
// first, then newest first
func (r *PaymentMethodRepository) ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.PaymentMethod, error) {
	query := `
		SELECT ` + methodColumns + `
		FROM payment_methods
		WHERE customer_id = $1 AND is_active = TRUE
		ORDER BY is_default DESC, created_at DESC
	`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment methods: %w", err)
	}
	defer rows.Close()

	methods := make([]domain.PaymentMethod, 0)
	for rows.Next() {
		method, err := scanMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, method)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment methods: %w", err)
	}

	return methods, nil
}

// SetDefault makes the method the customer's default for its kind.
// The row-level locks taken by the two updates serialize concurrent
// swaps on the same customer.
func (r *PaymentMethodRepository) SetDefault(ctx context.Context, customerID, methodID uuid.UUID, kind domain.MethodKind) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	clearQuery := `
		UPDATE payment_methods
		SET is_default = FALSE, updated_at = NOW()
		WHERE customer_id = $1 AND kind = $2 AND is_default = TRUE AND id <> $3
	`
	if _, err := tx.Exec(ctx, clearQuery, customerID, kind, methodID); err != nil {
		return fmt.Errorf("failed to clear default flag: %w", err)
	}

	setQuery := `
		UPDATE payment_methods
		SET is_default = TRUE, updated_at = NOW()
		WHERE id = $1 AND customer_id = $2
	`
	tag, err := tx.Exec(ctx, setQuery, methodID, customerID)
	if err != nil {
		return fmt.Errorf("failed to set default flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit default swap: %w", err)
	}

	return nil
}

func scanMethod(row pgx.Row) (domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := row.Scan(
		&method.ID,
		&method.CustomerID,
		&method.Kind,
		&method.CardLast4,
		&method.CardNetwork,
		&method.CardHolderName,
		&method.CardExpiryMonth,
		&method.CardExpiryYear,
		&method.BankCode,
		&method.BranchCode,
		&method.AccountLast4,
		&method.AccountHolderName,
		&method.IsDefault,
		&method.IsActive,
		&method.CreatedAt,
		&method.UpdatedAt,
	)
	return method, err
}
