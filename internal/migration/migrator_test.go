package migration

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/repository"
	"github.com/Dan9191/loan-crm/internal/repository/repotest"
)

type fixture struct {
	repo *repository.Repository
	db   *sqlx.DB
	hook *logtest.Hook
	m    *Migrator
}

func newFixture(t *testing.T) *fixture {
	repo, db := repotest.New(t)
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return &fixture{repo: repo, db: db, hook: hook, m: NewMigrator(repo, log)}
}

func (f *fixture) disburse(t *testing.T, lead *models.Lead, amount float64) *models.LoanDisbursal {
	d := &models.LoanDisbursal{LeadID: &lead.ID, LoanAmount: amount, DisbursedDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, f.repo.CreateDisbursal(context.Background(), d))
	return d
}

func amount(v float64) *float64 { return &v }

func TestLeadsSharingPhoneMergeIntoOneUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")

	first := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210", FirstName: "Asha"})
	second := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "+91 98765-43210", PANNumber: "ABCPE1234F", City: "Pune"})
	d1 := f.disburse(t, first, 10000)
	d2 := f.disburse(t, second, 25000)

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.LeadsSeen)
	assert.Equal(t, 2, report.LeadsMigrated)
	assert.Equal(t, 1, report.UsersCreated)
	assert.Equal(t, 1, report.UsersMerged)
	assert.Equal(t, 1, report.ApplicationsCreated)
	assert.Equal(t, 1, report.ApplicationsExisting)
	assert.Equal(t, int64(2), report.DisbursalsRelinked)
	assert.Empty(t, report.Skipped)
	assert.Zero(t, report.UnlinkedDisbursals)

	n, err := f.repo.CountUsersByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	user, err := f.repo.FindUserByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.FirstName)
	assert.Equal(t, "ABCPE1234F", user.PANNumber)
	assert.Equal(t, "Pune", user.City)

	for _, d := range []*models.LoanDisbursal{d1, d2} {
		got, err := f.repo.GetDisbursal(ctx, d.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LoanApplicationID)
		app, err := f.repo.GetApplication(ctx, *got.LoanApplicationID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, app.UserID)
		assert.Equal(t, lender.ID, app.LenderID)
		assert.NotNil(t, got.LeadID, "legacy reference stays for audit")
	}
}

func TestPopulatedPANSurvivesLaterEmptyLead(t *testing.T) {
	f := newFixture(t)
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210", PANNumber: "ABCPE1234F"})
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210"})

	_, err := f.m.Run(context.Background())
	require.NoError(t, err)

	user, err := f.repo.FindUserByPhone(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "ABCPE1234F", user.PANNumber)
}

func TestOneApplicationPerLender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := repotest.SeedLender(t, f.repo, "CreditSea")
	b := repotest.SeedLender(t, f.repo, "MoneyView")
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &a.ID, PhoneNumber: "9876543210", Status: "approved", LoanAmount: amount(50000)})
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &b.ID, PhoneNumber: "9876543210"})

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.UsersCreated)
	assert.Equal(t, 2, report.ApplicationsCreated)

	user, err := f.repo.FindUserByPhone(ctx, "9876543210")
	require.NoError(t, err)
	apps, err := f.repo.ListApplications(ctx, repository.ApplicationFilter{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, apps, 2)

	approved, err := f.repo.FindApplication(ctx, user.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.RequestedAmount)
	assert.Equal(t, 50000.0, *approved.RequestedAmount)
}

func TestBadLeadsAreSkippedAndBatchContinues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	missing := int64(4242)

	bad := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "12345"})
	empty := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID})
	noLender := repotest.SeedLead(t, f.db, &models.Lead{PhoneNumber: "9123456780"})
	staleLender := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &missing, PhoneNumber: "9123456781"})
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210"})

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.LeadsSeen)
	assert.Equal(t, 1, report.LeadsMigrated)
	require.Len(t, report.Skipped, 4)

	skipped := map[int64]string{}
	for _, is := range report.Skipped {
		skipped[is.LeadID] = is.Reason
	}
	assert.Contains(t, skipped[bad.ID], ErrInvalidPhone.Error())
	assert.Contains(t, skipped[empty.ID], ErrInvalidPhone.Error())
	assert.Contains(t, skipped[noLender.ID], ErrLenderUnresolved.Error())
	assert.Contains(t, skipped[staleLender.ID], ErrLenderUnresolved.Error())

	// the skipped lead's user must not have been left behind by a partial row
	_, err = f.repo.FindUserByPhone(ctx, "9123456781")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	warnings := 0
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 4, warnings)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := repotest.SeedLender(t, f.repo, "CreditSea")
	b := repotest.SeedLender(t, f.repo, "MoneyView")
	l1 := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &a.ID, PhoneNumber: "9876543210", FirstName: "Asha", ConsentTaken: true})
	l2 := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &b.ID, PhoneNumber: "09876543210", PANNumber: "ABCPE1234F"})
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &a.ID, PhoneNumber: "9123456780"})
	f.disburse(t, l1, 1000)
	f.disburse(t, l2, 2000)

	_, err := f.m.Run(ctx)
	require.NoError(t, err)
	users1, apps1, ds1 := snapshot(t, f.repo)

	again, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.UsersCreated)
	assert.Zero(t, again.UsersMerged)
	assert.Equal(t, 3, again.UsersUnchanged)
	assert.Zero(t, again.ApplicationsCreated)
	assert.Equal(t, 3, again.ApplicationsExisting)
	assert.Zero(t, again.DisbursalsRelinked)

	users2, apps2, ds2 := snapshot(t, f.repo)
	assert.Equal(t, users1, users2)
	assert.Equal(t, apps1, apps2)
	assert.Equal(t, ds1, ds2)
}

func TestExistingApplicationIsLeftUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	user := repotest.SeedUser(t, f.repo, "9876543210")
	existing := &models.LoanApplication{UserID: user.ID, LenderID: lender.ID, Status: models.StatusRejected}
	require.NoError(t, f.repo.CreateApplication(ctx, existing))

	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210", Status: "approved"})

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ApplicationsExisting)

	got, err := f.repo.GetApplication(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
}

func TestPANHeldByAnotherUserIsNotCopied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	require.NoError(t, f.repo.CreateUser(ctx, &models.User{PhoneNumber: "9000000000", PANNumber: "ABCPE1234F"}))
	lead := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210", PANNumber: "ABCPE1234F", FirstName: "Ravi"})

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.LeadsMigrated)
	assert.Equal(t, 1, report.PANConflicts)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, lead.ID, report.Warnings[0].LeadID)

	user, err := f.repo.FindUserByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Empty(t, user.PANNumber)
	assert.Equal(t, "Ravi", user.FirstName)
}

func TestLowercaseLeadPANIsKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210", PANNumber: " abcpe1234f ", PinCode: "411 001"})

	_, err := f.m.Run(ctx)
	require.NoError(t, err)

	user, err := f.repo.FindUserByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "ABCPE1234F", user.PANNumber)
	assert.Equal(t, "411001", user.PinCode)
}

func TestDisbursedLeadBecomesApprovedApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	disbursed := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210"})
	f.disburse(t, disbursed, 10000)
	plain := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9123456780", Status: "interested"})

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)

	apps, err := f.repo.ListApplications(ctx, repository.ApplicationFilter{LenderID: lender.ID})
	require.NoError(t, err)
	require.Len(t, apps, 2)
	byUser := map[int64]models.ApplicationStatus{}
	for _, app := range apps {
		byUser[app.UserID] = app.Status
	}
	owner, err := f.repo.FindUserByPhone(ctx, disbursed.PhoneNumber)
	require.NoError(t, err)
	other, err := f.repo.FindUserByPhone(ctx, plain.PhoneNumber)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, byUser[owner.ID])
	assert.Equal(t, models.StatusPending, byUser[other.ID])
}

func TestDisbursalsOnUnapprovedApplicationAreReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	user := repotest.SeedUser(t, f.repo, "9876543210")
	existing := &models.LoanApplication{UserID: user.ID, LenderID: lender.ID, Status: models.StatusPending}
	require.NoError(t, f.repo.CreateApplication(ctx, existing))

	lead := repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210"})
	d := f.disburse(t, lead, 5000)

	report, err := f.m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.DisbursalsRelinked)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, lead.ID, report.Warnings[0].LeadID)
	assert.Contains(t, report.Warnings[0].Reason, "status pending")

	got, err := f.repo.GetDisbursal(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, *got.LoanApplicationID)
	app, err := f.repo.GetApplication(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)
}

func TestReportSurvivesFailedClosingCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "bad"})
	_, err := f.db.Exec(`DROP TABLE loan_disbursals`)
	require.NoError(t, err)

	report, err := f.m.Run(ctx)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Len(t, report.Skipped, 1)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	lender := repotest.SeedLender(t, f.repo, "CreditSea")
	repotest.SeedLead(t, f.db, &models.Lead{LenderID: &lender.ID, PhoneNumber: "9876543210"})

	ctx, cancel := context.WithCancel(context.Background())
	leads, err := f.repo.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	cancel()

	_, err = f.m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummaryListsSkippedLeads(t *testing.T) {
	r := &Report{LeadsSeen: 2, LeadsMigrated: 1, Skipped: []Issue{{LeadID: 7, Reason: "unresolvable phone number"}}}
	s := r.Summary()
	assert.Contains(t, s, "Leads seen:             2")
	assert.Contains(t, s, "lead 7: unresolvable phone number")
	assert.NotContains(t, s, "Warnings:")
}

func TestSummaryListsWarnings(t *testing.T) {
	r := &Report{LeadsSeen: 1, LeadsMigrated: 1, PANConflicts: 1, Warnings: []Issue{{LeadID: 9, Reason: "PAN already held by another user; PAN not copied"}}}
	s := r.Summary()
	assert.Contains(t, s, "\nWarnings:\n  lead 9: PAN already held by another user; PAN not copied\n")
}

func snapshot(t *testing.T, repo *repository.Repository) ([]models.User, []models.LoanApplication, []models.LoanDisbursal) {
	ctx := context.Background()
	users, err := repo.ListUsers(ctx, repository.UserFilter{})
	require.NoError(t, err)
	apps, err := repo.ListApplications(ctx, repository.ApplicationFilter{})
	require.NoError(t, err)
	ds, err := repo.ListDisbursals(ctx, repository.DisbursalFilter{})
	require.NoError(t, err)
	return users, apps, ds
}
