package service

import (
	"context"
	"errors"

	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/repository"
)

// ErrLeadDeprecated is returned by every lead write
var ErrLeadDeprecated = errors.New("lead records are deprecated: use User/LoanApplication instead")

// LeadStore is the CRUD surface of legacy lead records
type LeadStore interface {
	GetLead(ctx context.Context, id int64) (*models.Lead, error)
	CreateLead(ctx context.Context, lead *models.Lead) error
	UpdateLead(ctx context.Context, lead *models.Lead) error
	DeleteLead(ctx context.Context, id int64) error
}

// readOnlyLeads serves reads from the legacy table and refuses every write
// without touching storage.
type readOnlyLeads struct {
	repo *repository.Repository
}

func (l readOnlyLeads) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	return l.repo.GetLead(ctx, id)
}

func (readOnlyLeads) CreateLead(context.Context, *models.Lead) error { return ErrLeadDeprecated }

func (readOnlyLeads) UpdateLead(context.Context, *models.Lead) error { return ErrLeadDeprecated }

func (readOnlyLeads) DeleteLead(context.Context, int64) error { return ErrLeadDeprecated }

// Leads returns the lead store. Writes are disabled.
func (s *Service) Leads() LeadStore {
	return readOnlyLeads{repo: s.repo}
}
