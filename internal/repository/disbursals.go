package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-crm/internal/models"
)

const disbursalColumns = `id, loan_application_id, lead_id, loan_amount, disbursed_date, interest_rate,
	tenure_months, created_at, updated_at`

// DisbursalFilter narrows ListDisbursals
type DisbursalFilter struct {
	ApplicationID int64
	UserID        int64
	Limit         int
	Offset        int
}

// CreateDisbursal inserts a disbursal
func (q *Queries) CreateDisbursal(ctx context.Context, d *models.LoanDisbursal) error {
	d.CreatedAt = now()
	d.UpdatedAt = d.CreatedAt
	query := `
		INSERT INTO loan_disbursals (loan_application_id, lead_id, loan_amount, disbursed_date,
			interest_rate, tenure_months, created_at, updated_at)
		VALUES (:loan_application_id, :lead_id, :loan_amount, :disbursed_date,
			:interest_rate, :tenure_months, :created_at, :updated_at)
		RETURNING id`
	if _, err := q.insertReturning(ctx, query, d, &d.ID); err != nil {
		return fmt.Errorf("failed to create loan disbursal: %w", err)
	}
	return nil
}

// GetDisbursal retrieves a disbursal by id
func (q *Queries) GetDisbursal(ctx context.Context, id int64) (*models.LoanDisbursal, error) {
	d := &models.LoanDisbursal{}
	if err := q.get(ctx, d, `SELECT `+disbursalColumns+` FROM loan_disbursals WHERE id = ?`, id); err != nil {
		return nil, wrapGet("loan disbursal", err)
	}
	return d, nil
}

// ListDisbursals returns disbursals, latest disbursal date first. Filtering by
// user goes through the owning application.
func (q *Queries) ListDisbursals(ctx context.Context, f DisbursalFilter) ([]models.LoanDisbursal, error) {
	query := `SELECT ` + disbursalColumns + ` FROM loan_disbursals WHERE 1 = 1`
	var args []interface{}
	if f.ApplicationID != 0 {
		query += ` AND loan_application_id = ?`
		args = append(args, f.ApplicationID)
	}
	if f.UserID != 0 {
		query += ` AND loan_application_id IN (SELECT id FROM loan_applications WHERE user_id = ?)`
		args = append(args, f.UserID)
	}
	query += ` ORDER BY disbursed_date DESC, id DESC`
	query, args = paginate(query, args, f.Limit, f.Offset)

	ds := []models.LoanDisbursal{}
	if err := q.selectAll(ctx, &ds, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list loan disbursals: %w", err)
	}
	return ds, nil
}

// ListDisbursalsByLead returns the disbursals that carry the legacy lead reference
func (q *Queries) ListDisbursalsByLead(ctx context.Context, leadID int64) ([]models.LoanDisbursal, error) {
	ds := []models.LoanDisbursal{}
	query := `SELECT ` + disbursalColumns + ` FROM loan_disbursals WHERE lead_id = ? ORDER BY id`
	if err := q.selectAll(ctx, &ds, query, leadID); err != nil {
		return nil, fmt.Errorf("failed to list loan disbursals of lead %d: %w", leadID, err)
	}
	return ds, nil
}

// DeleteDisbursal removes a disbursal
func (q *Queries) DeleteDisbursal(ctx context.Context, id int64) error {
	n, err := q.exec(ctx, `DELETE FROM loan_disbursals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete loan disbursal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("loan disbursal %w", ErrNotFound)
	}
	return nil
}

// RelinkDisbursals points every disbursal of the legacy lead at the
// application. The lead reference itself is left in place. Only rows that
// actually change are counted.
func (q *Queries) RelinkDisbursals(ctx context.Context, leadID, applicationID int64) (int64, error) {
	query := `
		UPDATE loan_disbursals SET loan_application_id = ?, updated_at = ?
		WHERE lead_id = ? AND (loan_application_id IS NULL OR loan_application_id <> ?)`
	n, err := q.exec(ctx, query, applicationID, now(), leadID, applicationID)
	if err != nil {
		return 0, fmt.Errorf("failed to relink disbursals of lead %d: %w", leadID, err)
	}
	return n, nil
}

// CountUnlinkedDisbursals returns the number of disbursals with no application
func (q *Queries) CountUnlinkedDisbursals(ctx context.Context) (int, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM loan_disbursals WHERE loan_application_id IS NULL`); err != nil {
		return 0, fmt.Errorf("failed to count unlinked disbursals: %w", err)
	}
	return n, nil
}
