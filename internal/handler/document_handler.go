package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/service"
)

// Предел размера multipart-формы при загрузке
const maxUploadMemory = 32 << 20 // 32MB

type DocumentHandler struct {
	documentService   *service.DocumentService
	tokenService      *service.TokenService
	permissionService *service.PermissionService

	// Внешний адрес сервиса для сборки delivery-ссылок
	baseURL string
}

func NewDocumentHandler(
	documentService *service.DocumentService,
	tokenService *service.TokenService,
	permissionService *service.PermissionService,
	baseURL string,
) *DocumentHandler {
	return &DocumentHandler{
		documentService:   documentService,
		tokenService:      tokenService,
		permissionService: permissionService,
		baseURL:           strings.TrimSuffix(baseURL, "/"),
	}
}

type GenerateTokenRequest struct {
	Purpose string `json:"purpose"`
}

type GenerateTokenResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Purpose   string    `json:"purpose"`
	ExpiresIn int       `json:"expires_in"`
}

// GenerateToken выдает одноразовый delivery-токен на документ.
// Для выдачи достаточно уровня VIEW; различие preview/download влияет
// только на срок жизни и на конечную точку погашения.
func (h *DocumentHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	var req GenerateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	purpose, ok := domain.ParseTokenPurpose(req.Purpose)
	if !ok {
		http.Error(w, "Purpose must be PREVIEW or DOWNLOAD", http.StatusBadRequest)
		return
	}

	level, err := h.permissionService.ResolveDocument(r.Context(), principal, documentID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !level.AtLeast(domain.PermissionView) {
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	token, err := h.tokenService.Issue(r.Context(), documentID, principal.ID, purpose)
	if err != nil {
		respondError(w, err)
		return
	}

	endpoint := "stream"
	if purpose == domain.PurposeDownload {
		endpoint = "download"
	}

	respondJSON(w, http.StatusOK, GenerateTokenResponse{
		Token:     token.Token,
		URL:       fmt.Sprintf("%s/v1/documents/%s/%s", h.baseURL, endpoint, token.Token),
		ExpiresAt: token.ExpiresAt,
		Purpose:   string(purpose),
		ExpiresIn: int(purpose.TTL().Seconds()),
	})
}

// Upload принимает multipart-файл и создает документ либо его новую
// версию, если в папке уже есть актуальный документ с тем же именем
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		http.Error(w, "Invalid company UUID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	var folderID *int64
	if raw := r.FormValue("folder_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
		folderID = &id
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(r.Context(), principal, companyID, folderID, fileHeader, file)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	doc, err := h.documentService.Get(r.Context(), principal, documentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) GetVersions(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	versions, err := h.documentService.GetVersions(r.Context(), principal, documentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, versions)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	if err := h.documentService.Delete(r.Context(), principal, documentID); err != nil {
		respondError(w, err)
		return
	}

	log.Printf("[Document] Пользователь %s удалил документ %s", principal.ID, documentID)
	w.WriteHeader(http.StatusOK)
}

type EditorURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EditorURL выдает короткоживущую presigned-ссылку для server-to-server
// запроса офисного редактора
func (h *DocumentHandler) EditorURL(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		http.Error(w, "Invalid document UUID", http.StatusBadRequest)
		return
	}

	presigned, err := h.documentService.EditorURL(r.Context(), principal, documentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, EditorURLResponse{
		URL:       presigned,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})
}
