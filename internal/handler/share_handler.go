package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/service"
)

type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

type ShareRequest struct {
	UserID          string     `json:"user_id"`
	PermissionLevel string     `json:"permission_level"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
}

func (h *ShareHandler) parseShareRequest(w http.ResponseWriter, r *http.Request) (*ShareRequest, domain.PermissionLevel, bool) {
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, domain.PermissionNone, false
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return nil, domain.PermissionNone, false
	}

	level, ok := domain.ParsePermissionLevel(req.PermissionLevel)
	if !ok || level == domain.PermissionNone {
		http.Error(w, "permission_level must be VIEW, EDIT or MANAGE", http.StatusBadRequest)
		return nil, domain.PermissionNone, false
	}

	return &req, level, true
}

// ShareCompany выдает пользователю доступ к компании. Повторная выдача
// тому же пользователю реактивирует отозванную запись.
func (h *ShareHandler) ShareCompany(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		http.Error(w, "Invalid company UUID", http.StatusBadRequest)
		return
	}

	req, level, ok := h.parseShareRequest(w, r)
	if !ok {
		return
	}

	share, err := h.shareService.ShareCompany(r.Context(), principal, companyID, req.UserID, level, req.ValidUntil)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, share)
}

func (h *ShareHandler) RevokeCompanyShare(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		http.Error(w, "Invalid company UUID", http.StatusBadRequest)
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "Missing user ID", http.StatusBadRequest)
		return
	}

	if err := h.shareService.RevokeCompanyShare(r.Context(), principal, companyID, userID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *ShareHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	req, level, ok := h.parseShareRequest(w, r)
	if !ok {
		return
	}

	share, err := h.shareService.ShareDocument(r.Context(), principal, documentID, req.UserID, level, req.ValidUntil)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, share)
}

func (h *ShareHandler) RevokeDocumentShare(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "Missing user ID", http.StatusBadRequest)
		return
	}

	if err := h.shareService.RevokeDocumentShare(r.Context(), principal, documentID, userID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetSharedWithMe возвращает активные доступы пользователя к чужим компаниям
func (h *ShareHandler) GetSharedWithMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	shares, err := h.shareService.GetSharedWithMe(r.Context(), principal)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, shares)
}
