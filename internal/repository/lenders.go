package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-crm/internal/models"
)

const lenderColumns = `id, name, pincodes_whitelisted, pincodes_blacklisted, created_at, updated_at`

// CreateLender inserts a lender; names are unique
func (q *Queries) CreateLender(ctx context.Context, lender *models.Lender) error {
	lender.CreatedAt = now()
	lender.UpdatedAt = lender.CreatedAt
	query := `
		INSERT INTO lenders (name, pincodes_whitelisted, pincodes_blacklisted, created_at, updated_at)
		VALUES (:name, :pincodes_whitelisted, :pincodes_blacklisted, :created_at, :updated_at)
		RETURNING id`
	if _, err := q.insertReturning(ctx, query, lender, &lender.ID); err != nil {
		return fmt.Errorf("failed to create lender: %w", err)
	}
	return nil
}

// UpdateLender saves the lender's name and pin code lists
func (q *Queries) UpdateLender(ctx context.Context, lender *models.Lender) error {
	lender.UpdatedAt = now()
	query := `
		UPDATE lenders SET name = :name, pincodes_whitelisted = :pincodes_whitelisted,
			pincodes_blacklisted = :pincodes_blacklisted, updated_at = :updated_at
		WHERE id = :id`
	n, err := q.namedExec(ctx, query, lender)
	if err != nil {
		return fmt.Errorf("failed to update lender: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLender retrieves a lender by id
func (q *Queries) GetLender(ctx context.Context, id int64) (*models.Lender, error) {
	lender := &models.Lender{}
	err := q.get(ctx, lender, `SELECT `+lenderColumns+` FROM lenders WHERE id = ?`, id)
	if err != nil {
		return nil, wrapGet("lender", err)
	}
	return lender, nil
}

// ListLenders returns all lenders ordered by name
func (q *Queries) ListLenders(ctx context.Context) ([]models.Lender, error) {
	lenders := []models.Lender{}
	if err := q.selectAll(ctx, &lenders, `SELECT `+lenderColumns+` FROM lenders ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list lenders: %w", err)
	}
	return lenders, nil
}
