package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-crm/internal/models"
)

const leadColumns = `id, lender_id, phone_number, first_name, last_name, email, pan_number, date_of_birth,
	gender, city, state, pin_code, profession, monthly_income, bureau_score, income_mode,
	consent_taken, status, loan_amount, created_at`

// ListLeads returns the legacy lead snapshot in insertion order. The table is
// never written by this service.
func (q *Queries) ListLeads(ctx context.Context) ([]models.Lead, error) {
	leads := []models.Lead{}
	if err := q.selectAll(ctx, &leads, `SELECT `+leadColumns+` FROM leads ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// GetLead retrieves a legacy lead by id
func (q *Queries) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	lead := &models.Lead{}
	if err := q.get(ctx, lead, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id); err != nil {
		return nil, wrapGet("lead", err)
	}
	return lead, nil
}
