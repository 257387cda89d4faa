package domain

import (
	"time"

	"github.com/google/uuid"
)

// Folder представляет папку в иерархии компании.
// Path — материализованный путь от корня включительно, со слешами
// с обеих сторон (например "/A/B/"). Инвариант: путь любого потомка
// начинается с пути предка; у корневых папок ParentID = nil.
type Folder struct {
	ID        int64     `json:"id" db:"id"`
	CompanyID uuid.UUID `json:"company_id" db:"company_id"`
	ParentID  *int64    `json:"parent_id,omitempty" db:"parent_id"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"`
	Level     int       `json:"level" db:"level"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
