package domain

import (
	"time"

	"github.com/google/uuid"
)

// Company представляет организацию-арендатора хранилища.
// Владелец назначается при создании и не меняется.
type Company struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
