package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/service/s3"
)

// Срок жизни presigned-ссылки для server-to-server вызова редактора
const editorURLTTL = 5 * time.Minute

// DocumentService управляет версионируемыми документами компании
type DocumentService struct {
	documents   DocumentStore
	folders     FolderStore
	permissions *PermissionService
	storage     s3.Storage
}

func NewDocumentService(
	documents DocumentStore,
	folders FolderStore,
	permissions *PermissionService,
	storage s3.Storage,
) *DocumentService {
	return &DocumentService{
		documents:   documents,
		folders:     folders,
		permissions: permissions,
		storage:     storage,
	}
}

func storageKey(companyID, documentID uuid.UUID) string {
	return fmt.Sprintf("companies/%s/documents/%s", companyID, documentID)
}

// Upload загружает файл как новый документ либо, если в папке уже есть
// актуальный документ с тем же именем, как его новую версию. Старая
// версия теряет флаг is_latest в той же транзакции, что и вставка новой.
func (s *DocumentService) Upload(
	ctx context.Context,
	principal domain.Principal,
	companyID uuid.UUID,
	folderID *int64,
	fileHeader *multipart.FileHeader,
	file multipart.File,
) (*domain.Document, error) {
	level, err := s.permissions.ResolveCompany(ctx, principal, companyID)
	if err != nil {
		return nil, err
	}
	if !level.AtLeast(domain.PermissionEdit) {
		return nil, domain.ErrForbidden
	}

	if folderID != nil {
		folder, err := s.folders.GetByID(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		if folder.CompanyID != companyID {
			return nil, fmt.Errorf("folder: %w", domain.ErrNotFound)
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	doc := &domain.Document{
		ID:         uuid.New(),
		CompanyID:  companyID,
		FolderID:   folderID,
		Name:       fileHeader.Filename,
		MIMEType:   mimeType,
		SizeBytes:  int64(len(data)),
		UploadedBy: principal.ID,
		IsLatest:   true,
	}
	doc.StorageKey = storageKey(companyID, doc.ID)

	// Сначала байты в хранилище, затем строка в БД: осиротевший объект
	// в S3 безвреден, а строка без объекта — нет
	if err := s.storage.UploadBytes(ctx, doc.StorageKey, data, mimeType); err != nil {
		return nil, err
	}

	previous, err := s.documents.FindLatestByName(ctx, companyID, folderID, fileHeader.Filename)
	if err != nil {
		return nil, err
	}

	if previous == nil {
		doc.Version = 1
		if err := s.documents.Create(ctx, doc); err != nil {
			return nil, err
		}
		log.Printf("[Document] Загружен новый документ %s (%s)", doc.ID, doc.Name)
		return doc, nil
	}

	// Замена файла — операция редактирования существующего документа
	docLevel, err := s.permissions.ResolveDocument(ctx, principal, previous.ID)
	if err != nil {
		return nil, err
	}
	if !docLevel.AtLeast(domain.PermissionEdit) {
		return nil, domain.ErrForbidden
	}

	doc.Version = previous.Version + 1
	if err := s.documents.CreateVersion(ctx, previous, doc); err != nil {
		return nil, err
	}

	log.Printf("[Document] Загружена версия %d документа %s (%s)", doc.Version, doc.ID, doc.Name)
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Document, error) {
	level, err := s.permissions.ResolveDocument(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !level.AtLeast(domain.PermissionView) {
		return nil, domain.ErrForbidden
	}
	return s.documents.GetByID(ctx, id)
}

func (s *DocumentService) GetVersions(ctx context.Context, principal domain.Principal, id uuid.UUID) ([]domain.Document, error) {
	level, err := s.permissions.ResolveDocument(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !level.AtLeast(domain.PermissionView) {
		return nil, domain.ErrForbidden
	}
	return s.documents.GetVersions(ctx, id)
}

// Delete удаляет версию документа. Для SUPERVISOR деструктивные
// операции ограничены, поэтому проверка идет через ForAction.
func (s *DocumentService) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	level, err := s.permissions.ResolveDocumentForAction(ctx, principal, id, ActionDelete)
	if err != nil {
		return err
	}
	if !level.AtLeast(domain.PermissionManage) {
		return domain.ErrForbidden
	}

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.documents.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
		// Строка уже удалена; осиротевший объект подчистится вручную
		log.Printf("[Document] Не удалось удалить объект %s из S3: %v", doc.StorageKey, err)
	}

	return nil
}

// EditorURL выдает короткоживущую presigned-ссылку для офисного
// редактора. Ссылка предназначена для server-to-server запроса
// редактора к хранилищу и не маршрут для скачивания клиентом.
func (s *DocumentService) EditorURL(ctx context.Context, principal domain.Principal, id uuid.UUID) (string, error) {
	level, err := s.permissions.ResolveDocument(ctx, principal, id)
	if err != nil {
		return "", err
	}
	if !level.AtLeast(domain.PermissionEdit) {
		return "", domain.ErrForbidden
	}

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	return s.storage.GetPresignedURL(ctx, doc.StorageKey, editorURLTTL)
}
