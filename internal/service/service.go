package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/repository"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrApplicationNotApproved = errors.New("disbursals require an approved loan application")
	ErrPinCodeNotServiced     = errors.New("lender does not serve the user's pin code")
)

// RateSource supplies the default interest rate for new disbursals
type RateSource interface {
	Rate(ctx context.Context) (float64, error)
}

// Service handles business logic
type Service struct {
	repo     *repository.Repository
	log      *logrus.Logger
	rates    RateSource
	validate *validator.Validate
	now      func() time.Time
}

// NewService initializes a new service. rates may be nil.
func NewService(repo *repository.Repository, log *logrus.Logger, rates RateSource) *Service {
	return &Service{
		repo:     repo,
		log:      log,
		rates:    rates,
		validate: models.NewValidator(),
		now:      time.Now,
	}
}

// Health checks that the database is reachable
func (s *Service) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// LenderInput is the body of a new lender
type LenderInput struct {
	Name                string   `json:"name"`
	PinCodesWhitelisted []string `json:"pincodes_whitelisted"`
	PinCodesBlacklisted []string `json:"pincodes_blacklisted"`
}

// CreateLender registers a lender; names are unique
func (s *Service) CreateLender(ctx context.Context, in *LenderInput) (*models.Lender, error) {
	lender := &models.Lender{Name: strings.TrimSpace(in.Name)}
	if lender.Name == "" {
		return nil, fmt.Errorf("%w: lender name is required", ErrInvalidInput)
	}
	var err error
	if lender.PinCodesWhitelisted, err = pinCodes(in.PinCodesWhitelisted); err != nil {
		return nil, err
	}
	if lender.PinCodesBlacklisted, err = pinCodes(in.PinCodesBlacklisted); err != nil {
		return nil, err
	}
	if err := s.repo.CreateLender(ctx, lender); err != nil {
		return nil, err
	}
	s.log.Infof("Lender created: %s", lender.Name)
	return lender, nil
}

// LenderUpdate changes a lender. Nil lists are left as stored; an empty list
// clears it.
type LenderUpdate struct {
	Name                string    `json:"name"`
	PinCodesWhitelisted *[]string `json:"pincodes_whitelisted"`
	PinCodesBlacklisted *[]string `json:"pincodes_blacklisted"`
}

func (s *Service) UpdateLender(ctx context.Context, id int64, upd *LenderUpdate) (*models.Lender, error) {
	var white, black models.PinCodes
	var err error
	if upd.PinCodesWhitelisted != nil {
		if white, err = pinCodes(*upd.PinCodesWhitelisted); err != nil {
			return nil, err
		}
	}
	if upd.PinCodesBlacklisted != nil {
		if black, err = pinCodes(*upd.PinCodesBlacklisted); err != nil {
			return nil, err
		}
	}

	var lender *models.Lender
	err = s.repo.InTx(ctx, func(q *repository.Queries) error {
		var err error
		if lender, err = q.GetLender(ctx, id); err != nil {
			return err
		}
		if name := strings.TrimSpace(upd.Name); name != "" {
			lender.Name = name
		}
		if upd.PinCodesWhitelisted != nil {
			lender.PinCodesWhitelisted = white
		}
		if upd.PinCodesBlacklisted != nil {
			lender.PinCodesBlacklisted = black
		}
		return q.UpdateLender(ctx, lender)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("lender_id", id).Info("Lender updated")
	return lender, nil
}

// pinCodes normalizes and validates a pin code list, dropping repeats
func pinCodes(raw []string) (models.PinCodes, error) {
	out := models.PinCodes{}
	for _, p := range raw {
		pin := models.NormalizePinCode(p)
		if err := models.ValidatePinCode(pin); err != nil {
			return nil, fmt.Errorf("%w: pin code %q: %v", ErrInvalidInput, p, err)
		}
		if !out.Contains(pin) {
			out = append(out, pin)
		}
	}
	return out, nil
}

func (s *Service) GetLender(ctx context.Context, id int64) (*models.Lender, error) {
	return s.repo.GetLender(ctx, id)
}

func (s *Service) ListLenders(ctx context.Context) ([]models.Lender, error) {
	return s.repo.ListLenders(ctx)
}

// UserUpdate carries the editable user fields. Empty values leave the stored
// field as it is.
type UserUpdate struct {
	FirstName     string     `json:"first_name" validate:"max=100"`
	LastName      string     `json:"last_name" validate:"max=100"`
	Email         string     `json:"email" validate:"omitempty,email"`
	PANNumber     string     `json:"pan_number" validate:"pan"`
	DateOfBirth   *time.Time `json:"date_of_birth"`
	Gender        string     `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	City          string     `json:"city" validate:"max=100"`
	State         string     `json:"state" validate:"max=100"`
	PinCode       string     `json:"pin_code" validate:"pincode"`
	Profession    string     `json:"profession" validate:"omitempty,oneof=Salaried Self-Employed Business"`
	MonthlyIncome *float64   `json:"monthly_income" validate:"omitempty,gte=0"`
	BureauScore   *int       `json:"bureau_score" validate:"omitempty,gte=0,lte=900"`
	IncomeMode    string     `json:"income_mode" validate:"omitempty,oneof=Cheque 'Bank Transfer' Cash"`
	ConsentTaken  *bool      `json:"consent_taken"`
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, f repository.UserFilter) ([]models.User, error) {
	return s.repo.ListUsers(ctx, f)
}

// UpdateUser applies upd to the user. The phone number cannot be changed and
// a PAN already held by another user is rejected with ErrDuplicate.
func (s *Service) UpdateUser(ctx context.Context, id int64, upd *UserUpdate) (*models.User, error) {
	upd.PANNumber = strings.ToUpper(strings.TrimSpace(upd.PANNumber))
	if err := s.check(upd); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.repo.InTx(ctx, func(q *repository.Queries) error {
		var err error
		user, err = q.GetUser(ctx, id)
		if err != nil {
			return err
		}
		user.Merge(&models.User{
			FirstName:     upd.FirstName,
			LastName:      upd.LastName,
			Email:         upd.Email,
			PANNumber:     upd.PANNumber,
			DateOfBirth:   upd.DateOfBirth,
			Gender:        upd.Gender,
			City:          upd.City,
			State:         upd.State,
			PinCode:       upd.PinCode,
			Profession:    upd.Profession,
			MonthlyIncome: upd.MonthlyIncome,
			BureauScore:   upd.BureauScore,
			IncomeMode:    upd.IncomeMode,
		}, models.Overwrite)
		if upd.ConsentTaken != nil {
			user.ConsentTaken = *upd.ConsentTaken
		}
		user.RefreshAge(s.now())
		return q.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", id).Debug("User updated")
	return user, nil
}

// RefreshAges recomputes the stored age of every user with a date of birth
func (s *Service) RefreshAges(ctx context.Context) (int, error) {
	n, err := s.repo.RefreshAges(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.log.Infof("Refreshed ages of %d users", n)
	return n, nil
}

// ApplicationInput is the body of a new loan application
type ApplicationInput struct {
	UserID          int64                    `json:"user_id" validate:"required,gt=0"`
	LenderID        int64                    `json:"lender_id" validate:"required,gt=0"`
	Status          models.ApplicationStatus `json:"status" validate:"appstatus"`
	RequestedAmount *float64                 `json:"requested_amount" validate:"omitempty,gt=0"`
}

// CreateApplication opens an application for a (user, lender) pair. A pair
// that already has one fails with repository.ErrDuplicate, and a user outside
// the lender's pin codes with ErrPinCodeNotServiced.
func (s *Service) CreateApplication(ctx context.Context, in *ApplicationInput) (*models.LoanApplication, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.StatusPending
	}

	app := &models.LoanApplication{
		UserID:          in.UserID,
		LenderID:        in.LenderID,
		Status:          in.Status,
		RequestedAmount: in.RequestedAmount,
	}
	err := s.repo.InTx(ctx, func(q *repository.Queries) error {
		user, err := q.GetUser(ctx, in.UserID)
		if err != nil {
			return err
		}
		lender, err := q.GetLender(ctx, in.LenderID)
		if err != nil {
			return err
		}
		if !lender.IsPinCodeAllowed(user.PinCode) {
			return fmt.Errorf("%w: %s does not serve pin code %q", ErrPinCodeNotServiced, lender.Name, user.PinCode)
		}
		return q.CreateApplication(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Loan application %d created for user %d and lender %d", app.ID, app.UserID, app.LenderID)
	return app, nil
}

func (s *Service) GetApplication(ctx context.Context, id int64) (*models.LoanApplication, error) {
	return s.repo.GetApplication(ctx, id)
}

func (s *Service) ListApplications(ctx context.Context, f repository.ApplicationFilter) ([]models.LoanApplication, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.repo.ListApplications(ctx, f)
}

// ApplicationUpdate changes status and/or requested amount
type ApplicationUpdate struct {
	Status          models.ApplicationStatus `json:"status" validate:"appstatus"`
	RequestedAmount *float64                 `json:"requested_amount" validate:"omitempty,gt=0"`
}

func (s *Service) UpdateApplication(ctx context.Context, id int64, upd *ApplicationUpdate) (*models.LoanApplication, error) {
	if err := s.check(upd); err != nil {
		return nil, err
	}
	var app *models.LoanApplication
	err := s.repo.InTx(ctx, func(q *repository.Queries) error {
		var err error
		if app, err = q.GetApplication(ctx, id); err != nil {
			return err
		}
		if upd.Status != "" {
			app.Status = upd.Status
		}
		if upd.RequestedAmount != nil {
			app.RequestedAmount = upd.RequestedAmount
		}
		return q.UpdateApplication(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("Loan application %d updated: status %s", app.ID, app.Status)
	return app, nil
}

// DeleteApplication removes the application together with its disbursals
func (s *Service) DeleteApplication(ctx context.Context, id int64) error {
	if err := s.repo.DeleteApplication(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Loan application %d deleted", id)
	return nil
}

// DisbursalInput is the body of a new disbursal
type DisbursalInput struct {
	LoanApplicationID int64      `json:"loan_application_id" validate:"required,gt=0"`
	LoanAmount        float64    `json:"loan_amount" validate:"gt=0"`
	DisbursedDate     *time.Time `json:"disbursed_date"`
	InterestRate      *float64   `json:"interest_rate" validate:"omitempty,gte=0"`
	TenureMonths      *int       `json:"tenure_months" validate:"omitempty,gt=0"`
}

// CreateDisbursal books a disbursal against an approved application. Without
// an explicit interest rate the current reference rate is used when one can
// be fetched.
func (s *Service) CreateDisbursal(ctx context.Context, in *DisbursalInput) (*models.LoanDisbursal, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	app, err := s.repo.GetApplication(ctx, in.LoanApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusApproved {
		return nil, fmt.Errorf("%w: application %d is %s", ErrApplicationNotApproved, app.ID, app.Status)
	}

	d := &models.LoanDisbursal{
		LoanApplicationID: &app.ID,
		LoanAmount:        in.LoanAmount,
		InterestRate:      in.InterestRate,
		TenureMonths:      in.TenureMonths,
		DisbursedDate:     s.now().UTC(),
	}
	if in.DisbursedDate != nil {
		d.DisbursedDate = *in.DisbursedDate
	}
	if d.InterestRate == nil && s.rates != nil {
		rate, err := s.rates.Rate(ctx)
		if err != nil {
			s.log.WithError(err).Warn("Reference rate unavailable, disbursal booked without interest rate")
		} else {
			d.InterestRate = &rate
		}
	}

	if err := s.repo.CreateDisbursal(ctx, d); err != nil {
		return nil, err
	}
	s.log.Infof("Disbursal %d of %.2f booked against application %d", d.ID, d.LoanAmount, app.ID)
	return d, nil
}

func (s *Service) ListDisbursals(ctx context.Context, f repository.DisbursalFilter) ([]models.LoanDisbursal, error) {
	return s.repo.ListDisbursals(ctx, f)
}

func (s *Service) DeleteDisbursal(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDisbursal(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Disbursal %d deleted", id)
	return nil
}
