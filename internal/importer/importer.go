// Package importer creates or updates users from CSV uploads. Users are
// deduplicated by canonical phone number; there is no lead creation path.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/repository"
)

const (
	previewRows   = 10
	previewErrors = 20
)

// Result counts the outcome of writing rows
type Result struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Preview is returned by Validate; SessionID is passed to Commit.
type Preview struct {
	SessionID string   `json:"session_id"`
	TotalRows int      `json:"total_rows"`
	Rows      []Row    `json:"preview_rows"`
	Errors    []string `json:"errors"`
}

// Importer upserts users from CSV rows
type Importer struct {
	repo     *repository.Repository
	stage    Stage
	ttl      time.Duration
	log      *logrus.Logger
	validate *validator.Validate
}

// NewImporter initializes a new importer. stage may be nil, in which case only
// single-step Import is available.
func NewImporter(repo *repository.Repository, stage Stage, ttl time.Duration, log *logrus.Logger) *Importer {
	return &Importer{repo: repo, stage: stage, ttl: ttl, log: log, validate: models.NewValidator()}
}

// Import parses and writes the CSV in one step
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	rows, rowErrors, err := i.parse(r)
	if err != nil {
		return nil, err
	}
	res := i.write(ctx, rows)
	res.Failed += len(rowErrors)
	res.Errors = append(append([]string{}, rowErrors...), res.Errors...)
	return res, nil
}

// Validate parses the CSV and stages the valid rows for a later Commit
func (i *Importer) Validate(ctx context.Context, r io.Reader) (*Preview, error) {
	if i.stage == nil {
		return nil, errors.New("upload staging is not configured")
	}
	rows, rowErrors, err := i.parse(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Preview{Errors: truncate(rowErrors, previewErrors)}, ErrNoValidRows
	}

	id := uuid.NewString()
	if err := i.stage.Put(ctx, id, rows, i.ttl); err != nil {
		return nil, err
	}
	i.log.Infof("Staged upload %s with %d rows (%d rejected)", id, len(rows), len(rowErrors))

	preview := &Preview{SessionID: id, TotalRows: len(rows), Errors: truncate(rowErrors, previewErrors)}
	preview.Rows = rows
	if len(rows) > previewRows {
		preview.Rows = rows[:previewRows]
	}
	return preview, nil
}

// Commit writes the rows staged under sessionID. A session can be committed once.
func (i *Importer) Commit(ctx context.Context, sessionID string) (*Result, error) {
	if i.stage == nil {
		return nil, errors.New("upload staging is not configured")
	}
	rows, err := i.stage.Take(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return i.write(ctx, rows), nil
}

func (i *Importer) parse(r io.Reader) ([]Row, []string, error) {
	rows, rowErrors, err := Parse(r)
	if err != nil {
		return nil, nil, err
	}
	valid := rows[:0]
	for _, row := range rows {
		if err := i.validate.Struct(row); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v - SKIPPED", row.Line, err))
			continue
		}
		valid = append(valid, row)
	}
	return valid, rowErrors, nil
}

// write upserts every row in its own transaction
func (i *Importer) write(ctx context.Context, rows []Row) *Result {
	res := &Result{Errors: []string{}}
	for idx := range rows {
		row := &rows[idx]
		created, err := i.upsert(ctx, row)
		switch {
		case err != nil:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", row.Line, err))
			i.log.WithError(err).WithField("line", row.Line).Warn("Failed to import row")
		case created:
			res.Created++
		default:
			res.Updated++
		}
	}
	i.log.Infof("Imported users: %d created, %d updated, %d failed", res.Created, res.Updated, res.Failed)
	return res
}

func (i *Importer) upsert(ctx context.Context, row *Row) (created bool, err error) {
	err = i.repo.InTx(ctx, func(q *repository.Queries) error {
		incoming := row.User()
		user, err := q.FindUserByPhone(ctx, row.PhoneNumber)
		if errors.Is(err, repository.ErrNotFound) {
			incoming.RefreshAge(time.Now())
			created = true
			return q.CreateUser(ctx, incoming)
		}
		if err != nil {
			return err
		}

		changed := user.Merge(incoming, models.Overwrite)
		if row.Consent != nil && user.ConsentTaken != *row.Consent {
			user.ConsentTaken = *row.Consent
			changed = true
		}
		if !changed {
			return nil
		}
		user.RefreshAge(time.Now())
		return q.UpdateUser(ctx, user)
	})
	return created, err
}

func truncate(s []string, n int) []string {
	if s == nil {
		return []string{}
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
