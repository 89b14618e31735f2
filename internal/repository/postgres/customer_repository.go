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

// CustomerRepository PostgreSQL implementation of the customer
// repository
type CustomerRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewCustomerRepository creates a new PostgreSQL customer repository
func NewCustomerRepository(db *pgxpool.Pool, log *logger.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:  db,
		log: log,
	}
}

// Create stores a new customer
func (r *CustomerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	query := `
		INSERT INTO customers (id, parent_name, phone, email, child_name, child_age, allergies, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		customer.ID,
		customer.ParentName,
		customer.Phone,
		customer.Email,
		customer.ChildName,
		customer.ChildAge,
		customer.Allergies,
		customer.Notes,
		customer.Status,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("failed to create customer: %w", err)
	}

	return customer, nil
}

// GetByID returns a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	query := `
		SELECT id, parent_name, phone, email, child_name, child_age, allergies, notes, status, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var customer domain.Customer
	err := r.db.QueryRow(ctx, query, id).Scan(
		&customer.ID,
		&customer.ParentName,
		&customer.Phone,
		&customer.Email,
		&customer.ChildName,
		&customer.ChildAge,
		&customer.Allergies,
		&customer.Notes,
		&customer.Status,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, repository.ErrNotFound
		}
		return domain.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}

	return customer, nil
}

// Update replaces an existing customer
func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	query := `
		UPDATE customers
		SET parent_name = $2, phone = $3, email = $4, child_name = $5,
		    child_age = $6, allergies = $7, notes = $8, status = $9, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		customer.ID,
		customer.ParentName,
		customer.Phone,
		customer.Email,
		customer.ChildName,
		customer.ChildAge,
		customer.Allergies,
		customer.Notes,
		customer.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
