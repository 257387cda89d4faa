package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/domain"
	"docvault/internal/service"
	"docvault/internal/service/s3"
)

// Минимальные двойники хранилищ для прогона шлюза выдачи целиком:
// handler -> TokenService -> stores -> storage.

type stubDocumentStore struct {
	doc *domain.Document
}

func (s *stubDocumentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	if s.doc != nil && s.doc.ID == id {
		return s.doc, nil
	}
	return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

func (s *stubDocumentStore) Create(context.Context, *domain.Document) error { return nil }
func (s *stubDocumentStore) CreateVersion(context.Context, *domain.Document, *domain.Document) error {
	return nil
}
func (s *stubDocumentStore) GetVersions(context.Context, uuid.UUID) ([]domain.Document, error) {
	return nil, nil
}
func (s *stubDocumentStore) FindLatestByName(context.Context, uuid.UUID, *int64, string) (*domain.Document, error) {
	return nil, nil
}
func (s *stubDocumentStore) Delete(context.Context, uuid.UUID) error { return nil }

type stubTokenStore struct {
	tokens map[string]*domain.DeliveryToken
}

func (s *stubTokenStore) Create(_ context.Context, token *domain.DeliveryToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *stubTokenStore) GetByToken(_ context.Context, tokenStr string) (*domain.DeliveryToken, error) {
	token, ok := s.tokens[tokenStr]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	copied := *token
	return &copied, nil
}

func (s *stubTokenStore) Consume(_ context.Context, tokenStr string, now time.Time) error {
	token, ok := s.tokens[tokenStr]
	if !ok {
		return domain.ErrTokenInvalid
	}
	if token.Used {
		return domain.ErrTokenAlreadyUsed
	}
	token.Used = true
	token.UsedAt = &now
	return nil
}

type stubAuditStore struct {
	records []domain.AuditRecord
}

func (s *stubAuditStore) Record(_ context.Context, record *domain.AuditRecord) error {
	s.records = append(s.records, *record)
	return nil
}

type stubObject struct {
	io.ReadCloser
	length      int64
	contentType string
}

func (o *stubObject) ContentLength() int64 { return o.length }
func (o *stubObject) ContentType() string  { return o.contentType }

type stubStorage struct {
	objects map[string][]byte
}

func (s *stubStorage) UploadBytes(_ context.Context, key string, data []byte, _ string) error {
	s.objects[key] = data
	return nil
}

func (s *stubStorage) GetObject(_ context.Context, key string) (s3.S3Object, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return &stubObject{
		ReadCloser:  io.NopCloser(bytes.NewReader(data)),
		length:      int64(len(data)),
		contentType: "application/pdf",
	}, nil
}

func (s *stubStorage) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *stubStorage) GetPresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

type deliveryFixture struct {
	router       chi.Router
	tokenService *service.TokenService
	audit        *stubAuditStore
	docID        uuid.UUID
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()

	doc := &domain.Document{
		ID:         uuid.New(),
		CompanyID:  uuid.New(),
		Name:       "отчет Q1.pdf",
		MIMEType:   "application/pdf",
		StorageKey: "companies/c/documents/d",
		SizeBytes:  11,
		UploadedBy: "uploader",
		Version:    1,
		IsLatest:   true,
	}

	documents := &stubDocumentStore{doc: doc}
	tokens := &stubTokenStore{tokens: make(map[string]*domain.DeliveryToken)}
	audit := &stubAuditStore{}
	storage := &stubStorage{objects: map[string][]byte{doc.StorageKey: []byte("hello world")}}

	tokenService := service.NewTokenService(tokens, documents, audit)
	h := NewDeliveryHandler(tokenService, storage)

	r := chi.NewRouter()
	r.Get("/v1/documents/stream/{token}", h.Stream)
	r.Get("/v1/documents/download/{token}", h.Download)

	return &deliveryFixture{
		router:       r,
		tokenService: tokenService,
		audit:        audit,
		docID:        doc.ID,
	}
}

func (f *deliveryFixture) issue(t *testing.T, purpose domain.TokenPurpose) string {
	t.Helper()
	token, err := f.tokenService.Issue(context.Background(), f.docID, "user-1", purpose)
	require.NoError(t, err)
	return token.Token
}

func (f *deliveryFixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestStream_Success(t *testing.T) {
	f := newDeliveryFixture(t)
	token := f.issue(t, domain.PurposePreview)

	w := f.get("/v1/documents/stream/" + token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=UTF-8''")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestDownload_AttachmentDisposition(t *testing.T) {
	f := newDeliveryFixture(t)
	token := f.issue(t, domain.PurposeDownload)

	w := f.get("/v1/documents/download/" + token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "11", w.Header().Get("Content-Length"))
}

// Все отказы выдачи неразличимы для клиента: один и тот же 404
func TestDeliver_AllFailuresCollapseTo404(t *testing.T) {
	f := newDeliveryFixture(t)

	used := f.issue(t, domain.PurposePreview)
	require.Equal(t, http.StatusOK, f.get("/v1/documents/stream/"+used).Code)

	wrongPurpose := f.issue(t, domain.PurposePreview)

	paths := map[string]string{
		"неизвестный токен":   "/v1/documents/stream/0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		"погашенный токен":    "/v1/documents/stream/" + used,
		"чужое назначение":    "/v1/documents/download/" + wrongPurpose,
		"мусор вместо токена": "/v1/documents/stream/not-a-token",
		"верхний регистр hex": "/v1/documents/stream/0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF",
		"короткий токен":      "/v1/documents/stream/abc123",
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			w := f.get(path)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Contains(t, w.Body.String(), "Link is invalid or expired")
		})
	}
}

// Мусорные токены отсекаются форматом до обращения к хранилищу:
// в аудите таких попыток нет
func TestDeliver_FormatPreFilterSkipsAudit(t *testing.T) {
	f := newDeliveryFixture(t)

	f.get("/v1/documents/stream/not-a-token")
	assert.Empty(t, f.audit.records)

	f.get("/v1/documents/stream/0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	assert.Len(t, f.audit.records, 1)
}

func TestDeliver_PurposeMismatchKeepsTokenUsable(t *testing.T) {
	f := newDeliveryFixture(t)
	token := f.issue(t, domain.PurposeDownload)

	require.Equal(t, http.StatusNotFound, f.get("/v1/documents/stream/"+token).Code)
	require.Equal(t, http.StatusOK, f.get("/v1/documents/download/"+token).Code)
}
