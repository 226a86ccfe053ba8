package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a saved billing target the form can prefill from.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Zip       string    `gorm:"type:varchar(20)" json:"zip"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
