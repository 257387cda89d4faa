package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document представляет версию документа компании.
// Версии образуют цепочку через ParentDocumentID, ровно одна версия
// в цепочке имеет IsLatest = true.
type Document struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	CompanyID        uuid.UUID  `json:"company_id" db:"company_id"`
	FolderID         *int64     `json:"folder_id,omitempty" db:"folder_id"`
	Name             string     `json:"name" db:"name"`
	MIMEType         string     `json:"mime_type" db:"mime_type"`
	SizeBytes        int64      `json:"size_bytes" db:"size_bytes"`
	StorageKey       string     `json:"-" db:"storage_key"`
	UploadedBy       string     `json:"uploaded_by" db:"uploaded_by"`
	Version          int        `json:"version" db:"version"`
	IsLatest         bool       `json:"is_latest" db:"is_latest"`
	ParentDocumentID *uuid.UUID `json:"parent_document_id,omitempty" db:"parent_document_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// DocumentRef содержит минимум, необходимый шлюзу выдачи для
// стриминга содержимого: ключ в хранилище, MIME-тип и имя файла.
type DocumentRef struct {
	DocumentID uuid.UUID
	StorageKey string
	MIMEType   string
	Name       string
}
