package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-crm/internal/models"
)

const applicationColumns = `id, user_id, lender_id, status, requested_amount, created_at, updated_at`

// ApplicationFilter narrows ListApplications
type ApplicationFilter struct {
	UserID   int64
	LenderID int64
	Status   models.ApplicationStatus
	Limit    int
	Offset   int
}

const insertApplication = `
	INSERT INTO loan_applications (user_id, lender_id, status, requested_amount, created_at, updated_at)
	VALUES (:user_id, :lender_id, :status, :requested_amount, :created_at, :updated_at)`

// CreateApplication inserts an application. A second application for the same
// (user, lender) pair fails with ErrDuplicate.
func (q *Queries) CreateApplication(ctx context.Context, app *models.LoanApplication) error {
	stampApplication(app)
	if _, err := q.insertReturning(ctx, insertApplication+` RETURNING id`, app, &app.ID); err != nil {
		return fmt.Errorf("failed to create loan application: %w", err)
	}
	return nil
}

// EnsureApplication inserts app unless the (user, lender) pair already has an
// application, in which case app is replaced by the stored row unchanged.
// created reports whether a new row was written.
func (q *Queries) EnsureApplication(ctx context.Context, app *models.LoanApplication) (created bool, err error) {
	stampApplication(app)
	query := insertApplication + ` ON CONFLICT (user_id, lender_id) DO NOTHING RETURNING id`
	created, err = q.insertReturning(ctx, query, app, &app.ID)
	if err != nil {
		return false, fmt.Errorf("failed to ensure loan application: %w", err)
	}
	if created {
		return true, nil
	}
	existing, err := q.FindApplication(ctx, app.UserID, app.LenderID)
	if err != nil {
		return false, err
	}
	*app = *existing
	return false, nil
}

func stampApplication(app *models.LoanApplication) {
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	app.CreatedAt = now()
	app.UpdatedAt = app.CreatedAt
}

// GetApplication retrieves an application by id
func (q *Queries) GetApplication(ctx context.Context, id int64) (*models.LoanApplication, error) {
	app := &models.LoanApplication{}
	if err := q.get(ctx, app, `SELECT `+applicationColumns+` FROM loan_applications WHERE id = ?`, id); err != nil {
		return nil, wrapGet("loan application", err)
	}
	return app, nil
}

// FindApplication retrieves the application of a (user, lender) pair
func (q *Queries) FindApplication(ctx context.Context, userID, lenderID int64) (*models.LoanApplication, error) {
	app := &models.LoanApplication{}
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE user_id = ? AND lender_id = ?`
	if err := q.get(ctx, app, query, userID, lenderID); err != nil {
		return nil, wrapGet("loan application", err)
	}
	return app, nil
}

// ListApplications returns applications newest first
func (q *Queries) ListApplications(ctx context.Context, f ApplicationFilter) ([]models.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE 1 = 1`
	var args []interface{}
	if f.UserID != 0 {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.LenderID != 0 {
		query += ` AND lender_id = ?`
		args = append(args, f.LenderID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = paginate(query, args, f.Limit, f.Offset)

	apps := []models.LoanApplication{}
	if err := q.selectAll(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list loan applications: %w", err)
	}
	return apps, nil
}

// UpdateApplication saves status and requested amount
func (q *Queries) UpdateApplication(ctx context.Context, app *models.LoanApplication) error {
	app.UpdatedAt = now()
	query := `
		UPDATE loan_applications SET status = :status, requested_amount = :requested_amount,
			updated_at = :updated_at
		WHERE id = :id`
	n, err := q.namedExec(ctx, query, app)
	if err != nil {
		return fmt.Errorf("failed to update loan application: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("loan application %w", ErrNotFound)
	}
	return nil
}

// DeleteApplication removes an application and, by cascade, its disbursals
func (q *Queries) DeleteApplication(ctx context.Context, id int64) error {
	n, err := q.exec(ctx, `DELETE FROM loan_applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete loan application: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("loan application %w", ErrNotFound)
	}
	return nil
}

// CountApplicationsForPair returns how many applications the pair has
func (q *Queries) CountApplicationsForPair(ctx context.Context, userID, lenderID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM loan_applications WHERE user_id = ? AND lender_id = ?`
	if err := q.get(ctx, &n, query, userID, lenderID); err != nil {
		return 0, fmt.Errorf("failed to count loan applications: %w", err)
	}
	return n, nil
}
