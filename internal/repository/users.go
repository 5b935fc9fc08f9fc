package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-crm/internal/models"
)

const userColumns = `id, phone_number, first_name, last_name, email, pan_number, date_of_birth, age,
	gender, city, state, pin_code, profession, monthly_income, bureau_score, income_mode,
	consent_taken, created_at, updated_at`

// UserFilter narrows ListUsers. Zero values mean "no filter". Text filters
// other than Phone, PinCode and Gender match case-insensitive substrings;
// Search matches name, phone, PAN or email. A negative Limit returns every
// match.
type UserFilter struct {
	Phone      string
	PinCode    string
	Name       string
	PAN        string
	Email      string
	City       string
	State      string
	Gender     string
	Profession string
	Search     string
	AgeMin     *int
	AgeMax     *int
	IncomeMin  *float64
	IncomeMax  *float64
	BureauMin  *int
	BureauMax  *int
	Limit      int
	Offset     int
}

// CreateUser inserts a new user and fills in its id and timestamps
func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	query := `
		INSERT INTO users (phone_number, first_name, last_name, email, pan_number, date_of_birth, age,
			gender, city, state, pin_code, profession, monthly_income, bureau_score, income_mode,
			consent_taken, created_at, updated_at)
		VALUES (:phone_number, :first_name, :last_name, :email, :pan_number, :date_of_birth, :age,
			:gender, :city, :state, :pin_code, :profession, :monthly_income, :bureau_score, :income_mode,
			:consent_taken, :created_at, :updated_at)
		RETURNING id`
	if _, err := q.insertReturning(ctx, query, user, &user.ID); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUser saves every mutable field of the user. The phone number is the
// identity key and is never rewritten.
func (q *Queries) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = now()
	query := `
		UPDATE users SET first_name = :first_name, last_name = :last_name, email = :email,
			pan_number = :pan_number, date_of_birth = :date_of_birth, age = :age, gender = :gender,
			city = :city, state = :state, pin_code = :pin_code, profession = :profession,
			monthly_income = :monthly_income, bureau_score = :bureau_score, income_mode = :income_mode,
			consent_taken = :consent_taken, updated_at = :updated_at
		WHERE id = :id`
	n, err := q.namedExec(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser retrieves a user by id
func (q *Queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	if err := q.get(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapGet("user", err)
	}
	return user, nil
}

// FindUserByPhone retrieves a user by canonical phone number
func (q *Queries) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	user := &models.User{}
	if err := q.get(ctx, user, `SELECT `+userColumns+` FROM users WHERE phone_number = ?`, phone); err != nil {
		return nil, wrapGet("user", err)
	}
	return user, nil
}

// CountUsersByPhone returns how many users carry the phone number
func (q *Queries) CountUsersByPhone(ctx context.Context, phone string) (int, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM users WHERE phone_number = ?`, phone); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// ListUsers returns users newest first
func (q *Queries) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1 = 1`
	var args []interface{}
	if f.Phone != "" {
		query += ` AND phone_number = ?`
		args = append(args, f.Phone)
	}
	if f.PinCode != "" {
		query += ` AND pin_code = ?`
		args = append(args, f.PinCode)
	}
	if f.Name != "" {
		query += ` AND (LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\')`
		args = append(args, like(f.Name), like(f.Name))
	}
	for _, c := range []struct{ col, v string }{
		{"pan_number", f.PAN},
		{"email", f.Email},
		{"city", f.City},
		{"state", f.State},
		{"profession", f.Profession},
	} {
		if c.v != "" {
			query += ` AND LOWER(` + c.col + `) LIKE ? ESCAPE '\'`
			args = append(args, like(c.v))
		}
	}
	if f.Gender != "" {
		query += ` AND LOWER(gender) = ?`
		args = append(args, strings.ToLower(f.Gender))
	}
	if f.Search != "" {
		query += ` AND (LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'
			OR phone_number LIKE ? ESCAPE '\' OR LOWER(pan_number) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`
		p := like(f.Search)
		args = append(args, p, p, p, p, p)
	}
	query, args = between(query, args, "age", f.AgeMin, f.AgeMax)
	query, args = between(query, args, "bureau_score", f.BureauMin, f.BureauMax)
	if f.IncomeMin != nil {
		query += ` AND monthly_income >= ?`
		args = append(args, *f.IncomeMin)
	}
	if f.IncomeMax != nil {
		query += ` AND monthly_income <= ?`
		args = append(args, *f.IncomeMax)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = paginate(query, args, f.Limit, f.Offset)

	users := []models.User{}
	if err := q.selectAll(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// RefreshAges recomputes the stored age of every user with a date of birth
// and returns the number of rows touched.
func (q *Queries) RefreshAges(ctx context.Context, at time.Time) (int, error) {
	var rows []struct {
		ID          int64     `db:"id"`
		DateOfBirth time.Time `db:"date_of_birth"`
	}
	if err := q.selectAll(ctx, &rows, `SELECT id, date_of_birth FROM users WHERE date_of_birth IS NOT NULL`); err != nil {
		return 0, fmt.Errorf("failed to list users for age refresh: %w", err)
	}
	for _, row := range rows {
		age := models.AgeOn(row.DateOfBirth, at)
		if _, err := q.exec(ctx, `UPDATE users SET age = ? WHERE id = ?`, age, row.ID); err != nil {
			return 0, fmt.Errorf("failed to update age of user %d: %w", row.ID, err)
		}
	}
	return len(rows), nil
}

func between(query string, args []interface{}, col string, min, max *int) (string, []interface{}) {
	if min != nil {
		query += ` AND ` + col + ` >= ?`
		args = append(args, *min)
	}
	if max != nil {
		query += ` AND ` + col + ` <= ?`
		args = append(args, *max)
	}
	return query, args
}

// like builds a lower-cased substring pattern with LIKE wildcards escaped
func like(v string) string {
	v = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(v))
	return "%" + v + "%"
}

func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit < 0 {
		return query, args
	}
	if limit == 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	return query, append(args, limit, offset)
}

func wrapGet(entity string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return fmt.Errorf("failed to find %s: %w", entity, err)
}

// FindUserByPAN retrieves the user holding a PAN
func (q *Queries) FindUserByPAN(ctx context.Context, pan string) (*models.User, error) {
	user := &models.User{}
	if err := q.get(ctx, user, `SELECT `+userColumns+` FROM users WHERE pan_number = ?`, pan); err != nil {
		return nil, wrapGet("user", err)
	}
	return user, nil
}
