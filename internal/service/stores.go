package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// Интерфейсы хранилищ, которые потребляют сервисы. Реализуются
// репозиториями из internal/repository; в тестах подменяются
// in-memory двойниками.

type CompanyStore interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	CreateVersion(ctx context.Context, previous *domain.Document, next *domain.Document) error
	GetVersions(ctx context.Context, id uuid.UUID) ([]domain.Document, error)
	FindLatestByName(ctx context.Context, companyID uuid.UUID, folderID *int64, name string) (*domain.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type FolderStore interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	HasSibling(ctx context.Context, companyID uuid.UUID, parentID *int64, name string, excludeID int64) (bool, error)
	Rename(ctx context.Context, folder *domain.Folder, newName, newPath string) error
	Move(ctx context.Context, folder *domain.Folder, newParentID int64, newPath string, levelDelta int) error
	GetCompanyFolders(ctx context.Context, companyID uuid.UUID) ([]domain.Folder, error)
}

type ShareStore interface {
	UpsertCompanyShare(ctx context.Context, share *domain.CompanyShare) error
	GetCompanyShare(ctx context.Context, companyID uuid.UUID, userID string) (*domain.CompanyShare, error)
	RevokeCompanyShare(ctx context.Context, companyID uuid.UUID, userID string) error
	UpsertDocumentShare(ctx context.Context, share *domain.DocumentShare) error
	GetDocumentShare(ctx context.Context, documentID uuid.UUID, userID string) (*domain.DocumentShare, error)
	RevokeDocumentShare(ctx context.Context, documentID uuid.UUID, userID string) error
	GetSharedWithUser(ctx context.Context, userID string) ([]domain.CompanyShare, error)
}

type TokenStore interface {
	Create(ctx context.Context, token *domain.DeliveryToken) error
	GetByToken(ctx context.Context, tokenStr string) (*domain.DeliveryToken, error)
	Consume(ctx context.Context, tokenStr string, now time.Time) error
}

type AuditStore interface {
	Record(ctx context.Context, record *domain.AuditRecord) error
}
