package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/invoicer/httpx"
	"github.com/diewo77/invoicer/internal/models"
	"github.com/diewo77/invoicer/internal/services"
)

type TemplateHandler struct {
	svc *services.TemplateService
	log *zap.Logger
}

func NewTemplateHandler(svc *services.TemplateService, log *zap.Logger) *TemplateHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TemplateHandler{svc: svc, log: log}
}

// templateRequest holds the editable fields of a template.
type templateRequest struct {
	TemplateName  string `json:"template_name"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientAddress string `json:"client_address"`
	SenderName    string `json:"sender_name"`
	SenderEmail   string `json:"sender_email"`
	SenderAddress string `json:"sender_address"`
	Currency      string `json:"currency"`
	TaxRate       int    `json:"tax_rate"`
	Notes         string `json:"notes"`
}

func (req templateRequest) apply(t *models.ClientTemplate) {
	t.TemplateName = req.TemplateName
	t.ClientName = req.ClientName
	t.ClientEmail = req.ClientEmail
	t.ClientAddress = req.ClientAddress
	t.SenderName = req.SenderName
	t.SenderEmail = req.SenderEmail
	t.SenderAddress = req.SenderAddress
	t.Currency = req.Currency
	t.TaxRate = req.TaxRate
	t.Notes = req.Notes
}

// List: GET /templates, newest first.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if list == nil {
		list = []models.ClientTemplate{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// Create: POST /templates
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := httpx.Decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	var t models.ClientTemplate
	req.apply(&t)
	if err := h.svc.Create(r.Context(), &t); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

// View: GET /templates/{id}
func (h *TemplateHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// Update: PUT /templates/{id} replaces every editable field.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req templateRequest
	if err := httpx.Decode(r, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	t := models.ClientTemplate{ID: id}
	req.apply(&t)
	if err := h.svc.Update(r.Context(), &t); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// Delete: DELETE /templates/{id}
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Draft: GET /templates/{id}/draft returns a draft prefilled from the template.
func (h *TemplateHandler) Draft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Draft(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newDraftRequest(d))
}
