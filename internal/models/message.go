package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformMessage представляет сообщение администрации платформы
type PlatformMessage struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedBy uuid.UUID `json:"created_by"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
