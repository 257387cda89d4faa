package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/service"
)

type CompanyHandler struct {
	companyService *service.CompanyService
}

func NewCompanyHandler(companyService *service.CompanyService) *CompanyHandler {
	return &CompanyHandler{companyService: companyService}
}

type CreateCompanyRequest struct {
	Name string `json:"name"`
}

func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Company name is required", http.StatusBadRequest)
		return
	}

	company, err := h.companyService.Create(r.Context(), principal, strings.TrimSpace(req.Name))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, company)
}

func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		http.Error(w, "Invalid company UUID", http.StatusBadRequest)
		return
	}

	company, err := h.companyService.Get(r.Context(), principal, companyID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, company)
}
