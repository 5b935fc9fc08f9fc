package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Dan9191/loan-crm/internal/importer"
)

// csvFile returns the "file" part of a multipart upload
func csvFile(r *http.Request) (multipart.File, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, badRequest("invalid multipart form: " + err.Error())
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, badRequest("file is required")
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		file.Close()
		return nil, badRequest("only CSV files are accepted")
	}
	return file, nil
}

// ImportUsers creates or updates users from an uploaded CSV in one step
func (h *Handler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, err := csvFile(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	res, err := h.importer.Import(r.Context(), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateUpload parses the CSV, stages the valid rows and returns a preview
// with the session id to commit.
func (h *Handler) ValidateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, err := csvFile(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	preview, err := h.importer.Validate(r.Context(), file)
	if errors.Is(err, importer.ErrNoValidRows) {
		writeBody(w, http.StatusBadRequest, response{Error: err.Error(), Data: preview})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// CommitUpload writes the rows staged by ValidateUpload
func (h *Handler) CommitUpload(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.SessionID == "" {
		h.writeError(w, r, badRequest("session_id is required"))
		return
	}

	res, err := h.importer.Commit(r.Context(), body.SessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
