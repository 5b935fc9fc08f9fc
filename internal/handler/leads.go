package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/loan-crm/internal/models"
)

// Lead writes go through the same store as reads; the store refuses them.
// Bodies are decoded best effort so a malformed request gets the same answer.

func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lead, err := h.svc.Leads().GetLead(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var lead models.Lead
	_ = json.NewDecoder(r.Body).Decode(&lead)
	h.writeError(w, r, h.svc.Leads().CreateLead(r.Context(), &lead))
}

func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var lead models.Lead
	_ = json.NewDecoder(r.Body).Decode(&lead)
	h.writeError(w, r, h.svc.Leads().UpdateLead(r.Context(), &lead))
}

func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	h.writeError(w, r, h.svc.Leads().DeleteLead(r.Context(), id))
}
