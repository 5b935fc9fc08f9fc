// Package migration folds the legacy per-lender Lead rows into the normalized
// model: one User per phone number, one LoanApplication per (user, lender)
// pair, and disbursals owned by applications instead of leads.
//
// Every lead is migrated in its own transaction. A lead that cannot be
// migrated is reported and skipped; rows already committed stay committed.
// Running the migrator again over the same snapshot changes nothing.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/phone"
	"github.com/Dan9191/loan-crm/internal/repository"
)

var (
	// ErrInvalidPhone marks a lead whose phone number cannot be normalized
	ErrInvalidPhone = errors.New("unresolvable phone number")
	// ErrLenderUnresolved marks a lead without an existing lender
	ErrLenderUnresolved = errors.New("no resolvable lender")
)

// Migrator converts legacy leads into users and loan applications
type Migrator struct {
	repo *repository.Repository
	log  *logrus.Logger
	now  func() time.Time
}

// NewMigrator initializes a new migrator
func NewMigrator(repo *repository.Repository, log *logrus.Logger) *Migrator {
	return &Migrator{repo: repo, log: log, now: time.Now}
}

// Run migrates the whole legacy snapshot. The returned error is non-nil only
// when the snapshot cannot be read, ctx is cancelled, or the closing count
// fails; the report of the leads already handled is returned alongside it.
// Per-lead failures are listed in the report.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: m.now().UTC(), Skipped: []Issue{}}

	leads, err := m.repo.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy leads: %w", err)
	}
	report.LeadsSeen = len(leads)
	m.log.Infof("Migrating %d legacy leads", len(leads))

	for i := range leads {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = m.now().UTC()
			return report, err
		}
		lead := &leads[i]
		entry := m.log.WithField("lead_id", lead.ID)

		o, err := m.migrateLead(ctx, lead)
		if err != nil {
			entry.WithError(err).Warn("Skipping lead")
			report.Skipped = append(report.Skipped, Issue{LeadID: lead.ID, Reason: err.Error()})
			continue
		}
		if o.panConflict {
			report.Warnings = append(report.Warnings, Issue{LeadID: lead.ID, Reason: "PAN already held by another user; PAN not copied"})
		}
		if app := o.unapprovedApp; app != nil {
			report.Warnings = append(report.Warnings, Issue{
				LeadID: lead.ID,
				Reason: fmt.Sprintf("disbursals linked to loan application %d with status %s", app.ID, app.Status),
			})
		}
		report.record(o)
		entry.WithFields(logrus.Fields{
			"user_created": o.userCreated,
			"user_merged":  o.userMerged,
			"app_created":  o.appCreated,
			"relinked":     o.relinked,
		}).Debug("Lead migrated")
	}

	unlinked, err := m.repo.CountUnlinkedDisbursals(ctx)
	if err != nil {
		report.FinishedAt = m.now().UTC()
		return report, err
	}
	report.UnlinkedDisbursals = unlinked
	if unlinked > 0 {
		m.log.Warnf("%d disbursals still have no loan application", unlinked)
	}

	report.FinishedAt = m.now().UTC()
	m.log.WithFields(logrus.Fields{
		"migrated":             report.LeadsMigrated,
		"skipped":              len(report.Skipped),
		"users_created":        report.UsersCreated,
		"users_merged":         report.UsersMerged,
		"applications_created": report.ApplicationsCreated,
		"disbursals_relinked":  report.DisbursalsRelinked,
	}).Info("Lead migration finished")
	return report, nil
}

func (m *Migrator) migrateLead(ctx context.Context, lead *models.Lead) (outcome, error) {
	var o outcome

	number, err := phone.Normalize(lead.PhoneNumber)
	if err != nil {
		return o, fmt.Errorf("%w: %q", ErrInvalidPhone, lead.PhoneNumber)
	}
	if lead.LenderID == nil {
		return o, ErrLenderUnresolved
	}

	err = m.repo.InTx(ctx, func(q *repository.Queries) error {
		o = outcome{}
		lender, err := q.GetLender(ctx, *lead.LenderID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: lender %d does not exist", ErrLenderUnresolved, *lead.LenderID)
		}
		if err != nil {
			return err
		}

		user, err := m.resolveUser(ctx, q, lead, number, &o)
		if err != nil {
			return err
		}

		disbursed, err := q.ListDisbursalsByLead(ctx, lead.ID)
		if err != nil {
			return err
		}

		// money already went out, so the application was approved
		status := lead.ApplicationStatus()
		if len(disbursed) > 0 {
			status = models.StatusApproved
		}
		app := &models.LoanApplication{
			UserID:          user.ID,
			LenderID:        lender.ID,
			Status:          status,
			RequestedAmount: lead.LoanAmount,
		}
		if o.appCreated, err = q.EnsureApplication(ctx, app); err != nil {
			return err
		}
		if len(disbursed) > 0 && app.Status != models.StatusApproved {
			o.unapprovedApp = app
		}

		if o.relinked, err = q.RelinkDisbursals(ctx, lead.ID, app.ID); err != nil {
			return err
		}
		return nil
	})
	return o, err
}

// resolveUser finds the user owning the phone number and fills its empty
// fields from the lead, or creates the user from the lead.
func (m *Migrator) resolveUser(ctx context.Context, q *repository.Queries, lead *models.Lead, number string, o *outcome) (*models.User, error) {
	incoming := lead.AsUser(number)
	if incoming.PANNumber != "" {
		owner, err := q.FindUserByPAN(ctx, incoming.PANNumber)
		switch {
		case err == nil && owner.PhoneNumber != number:
			incoming.PANNumber = ""
			o.panConflict = true
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	user, err := q.FindUserByPhone(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		incoming.RefreshAge(m.now())
		if err := q.CreateUser(ctx, incoming); err != nil {
			return nil, err
		}
		o.userCreated = true
		return incoming, nil
	}
	if err != nil {
		return nil, err
	}

	if user.Merge(incoming, models.FillEmpty) {
		user.RefreshAge(m.now())
		if err := q.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		o.userMerged = true
	}
	return user, nil
}
