// Package repotest provides an in-memory SQLite backed repository for tests.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/repository"
)

// New opens a fresh in-memory database with the schema applied.
func New(t testing.TB) (*repository.Repository, *sqlx.DB) {
	t.Helper()
	db, err := repository.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewRepository(db)
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo, db
}

// SeedLead writes a row into the legacy leads table, which the repository
// itself never writes.
func SeedLead(t testing.TB, db *sqlx.DB, lead *models.Lead) *models.Lead {
	t.Helper()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	rows, err := db.NamedQuery(`
		INSERT INTO leads (lender_id, phone_number, first_name, last_name, email, pan_number, date_of_birth,
			gender, city, state, pin_code, profession, monthly_income, bureau_score, income_mode,
			consent_taken, status, loan_amount, created_at)
		VALUES (:lender_id, :phone_number, :first_name, :last_name, :email, :pan_number, :date_of_birth,
			:gender, :city, :state, :pin_code, :profession, :monthly_income, :bureau_score, :income_mode,
			:consent_taken, :status, :loan_amount, :created_at)
		RETURNING id`, lead)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&lead.ID))
	return lead
}

// SeedLender creates a lender with the given name.
func SeedLender(t testing.TB, repo *repository.Repository, name string) *models.Lender {
	t.Helper()
	lender := &models.Lender{Name: name}
	require.NoError(t, repo.CreateLender(context.Background(), lender))
	return lender
}

// SeedUser creates a user with the given phone number.
func SeedUser(t testing.TB, repo *repository.Repository, phone string) *models.User {
	t.Helper()
	user := &models.User{PhoneNumber: phone}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}
