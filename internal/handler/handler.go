package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-crm/internal/importer"
	"github.com/Dan9191/loan-crm/internal/migration"
	"github.com/Dan9191/loan-crm/internal/models"
	"github.com/Dan9191/loan-crm/internal/phone"
	"github.com/Dan9191/loan-crm/internal/repository"
	"github.com/Dan9191/loan-crm/internal/service"
)

const maxUploadSize = 10 << 20

// MigrationRunner runs the lead migration
type MigrationRunner interface {
	Run(ctx context.Context) (*migration.Report, error)
}

type Handler struct {
	svc      *service.Service
	importer *importer.Importer
	migrator MigrationRunner
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, imp *importer.Importer, migrator MigrationRunner, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, importer: imp, migrator: migrator, log: log}
}

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeBody(w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	writeBody(w, code, response{Success: true, Data: data})
}

// writeError maps known errors onto status codes; anything else is a 500
// with the detail kept in the log.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		msg = "internal server error"
	}
	writeBody(w, code, response{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrLeadDeprecated):
		return http.StatusGone
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrApplicationNotApproved),
		errors.Is(err, service.ErrPinCodeNotServiced):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, importer.ErrMissingPhone),
		errors.Is(err, importer.ErrNoValidRows),
		errors.Is(err, importer.ErrUnknownUpload),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest("invalid " + key)
	}
	return n, nil
}

func page(r *http.Request) (limit, offset int, err error) {
	l, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	o, err := queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	return int(l), int(o), nil
}

// Health reports database reachability
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Health(r.Context()); err != nil {
		h.log.WithError(err).Error("Health check failed")
		writeBody(w, http.StatusServiceUnavailable, response{Error: "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListLenders(w http.ResponseWriter, r *http.Request) {
	lenders, err := h.svc.ListLenders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lenders)
}

func (h *Handler) CreateLender(w http.ResponseWriter, r *http.Request) {
	var in service.LenderInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	lender, err := h.svc.CreateLender(r.Context(), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lender)
}

func (h *Handler) UpdateLender(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd service.LenderUpdate
	if err := decode(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	lender, err := h.svc.UpdateLender(r.Context(), id, &upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lender)
}

func (h *Handler) GetLender(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lender, err := h.svc.GetLender(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lender)
}

// userFilter reads the dashboard filters. The phone filter accepts any format
// phone.Normalize understands.
func userFilter(r *http.Request) (repository.UserFilter, error) {
	q := r.URL.Query()
	f := repository.UserFilter{
		PinCode:    models.NormalizePinCode(q.Get("pin_code")),
		Name:       strings.TrimSpace(q.Get("name")),
		PAN:        strings.TrimSpace(q.Get("pan")),
		Email:      strings.TrimSpace(q.Get("email")),
		City:       strings.TrimSpace(q.Get("city")),
		State:      strings.TrimSpace(q.Get("state")),
		Gender:     strings.TrimSpace(q.Get("gender")),
		Profession: strings.TrimSpace(q.Get("profession")),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	if raw := q.Get("phone"); raw != "" {
		number, err := phone.Normalize(raw)
		if err != nil {
			return f, badRequest(err.Error())
		}
		f.Phone = number
	}
	var err error
	for _, p := range []struct {
		key string
		dst **int
	}{
		{"age_min", &f.AgeMin},
		{"age_max", &f.AgeMax},
		{"bureau_min", &f.BureauMin},
		{"bureau_max", &f.BureauMax},
	} {
		if *p.dst, err = optionalInt(r, p.key); err != nil {
			return f, err
		}
	}
	if f.IncomeMin, err = optionalFloat(r, "income_min"); err != nil {
		return f, err
	}
	if f.IncomeMax, err = optionalFloat(r, "income_max"); err != nil {
		return f, err
	}
	return f, nil
}

func optionalInt(r *http.Request, key string) (*int, error) {
	if r.URL.Query().Get(key) == "" {
		return nil, nil
	}
	n, err := queryInt(r, key)
	if err != nil {
		return nil, err
	}
	v := int(n)
	return &v, nil
}

func optionalFloat(r *http.Request, key string) (*float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) {
		return nil, badRequest("invalid " + key)
	}
	return &v, nil
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	f, err := userFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.Limit, f.Offset, err = page(r); err != nil {
		h.writeError(w, r, err)
		return
	}

	users, err := h.svc.ListUsers(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ExportUsers streams every user matching the filters as CSV
func (h *Handler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	f, err := userFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f.Limit = -1

	users, err := h.svc.ListUsers(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="users_%s.csv"`, time.Now().Format("20060102_150405")))
	if err := importer.WriteCSV(w, users); err != nil {
		h.log.WithError(err).Error("Failed to write users export")
	}
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd service.UserUpdate
	if err := decode(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.UpdateUser(r.Context(), id, &upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	var f repository.ApplicationFilter
	var err error
	if f.UserID, err = queryInt(r, "user_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.LenderID, err = queryInt(r, "lender_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.Limit, f.Offset, err = page(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	f.Status = models.ApplicationStatus(r.URL.Query().Get("status"))

	apps, err := h.svc.ListApplications(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var in service.ApplicationInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.svc.CreateApplication(r.Context(), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.svc.GetApplication(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd service.ApplicationUpdate
	if err := decode(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.svc.UpdateApplication(r.Context(), id, &upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteApplication(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListDisbursals(w http.ResponseWriter, r *http.Request) {
	var f repository.DisbursalFilter
	var err error
	if f.ApplicationID, err = queryInt(r, "application_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.UserID, err = queryInt(r, "user_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.Limit, f.Offset, err = page(r); err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.svc.ListDisbursals(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateDisbursal(w http.ResponseWriter, r *http.Request) {
	var in service.DisbursalInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.svc.CreateDisbursal(r.Context(), &in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) DeleteDisbursal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteDisbursal(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunMigration runs the lead migration and returns its report
func (h *Handler) RunMigration(w http.ResponseWriter, r *http.Request) {
	report, err := h.migrator.Run(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
