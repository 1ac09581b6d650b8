package models

import (
	"time"

	"github.com/google/uuid"
)

// SwapStatus представляет статус предложения обмена
type SwapStatus string

// Статусы предложения обмена. Из pending возможны переходы в accepted,
// rejected и cancelled; из accepted — только в completed. Остальные
// статусы терминальные.
const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusAccepted  SwapStatus = "accepted"
	SwapStatusRejected  SwapStatus = "rejected"
	SwapStatusCancelled SwapStatus = "cancelled"
	SwapStatusCompleted SwapStatus = "completed"
)

// IsValid проверяет, что статус — один из известных
func (s SwapStatus) IsValid() bool {
	switch s {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusRejected,
		SwapStatusCancelled, SwapStatusCompleted:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус терминальным
func (s SwapStatus) IsTerminal() bool {
	return s == SwapStatusRejected || s == SwapStatusCancelled || s == SwapStatusCompleted
}

// SkillRef представляет снимок навыка внутри предложения обмена.
// Это копия на момент создания запроса: последующие правки профиля
// не затрагивают уже отправленные предложения.
type SkillRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Feedback содержит до двух односторонних отзывов по завершённому
// обмену. Оценка каждой стороны записывается ровно один раз.
type Feedback struct {
	RequesterRating  *int   `json:"requester_rating,omitempty"`
	RequesterComment string `json:"requester_comment,omitempty"`
	RecipientRating  *int   `json:"recipient_rating,omitempty"`
	RecipientComment string `json:"recipient_comment,omitempty"`
}

// BothPresent сообщает, оставили ли отзыв обе стороны
func (f Feedback) BothPresent() bool {
	return f.RequesterRating != nil && f.RecipientRating != nil
}

// Swap представляет предложение обмена навыками
type Swap struct {
	ID             uuid.UUID  `json:"id"`
	RequesterID    uuid.UUID  `json:"requester_id"`
	RecipientID    uuid.UUID  `json:"recipient_id"`
	RequestedSkill SkillRef   `json:"requested_skill"`
	OfferedSkill   SkillRef   `json:"offered_skill"`
	Status         SwapStatus `json:"status"`
	Message        string     `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at"`
	RejectedAt     *time.Time `json:"rejected_at"`
	CancelledAt    *time.Time `json:"cancelled_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	Feedback       Feedback   `json:"feedback"`

	// Дополнительные поля для API
	Requester *UserSummary `json:"requester,omitempty"`
	Recipient *UserSummary `json:"recipient,omitempty"`
}

// IsParticipant проверяет, что пользователь является стороной обмена
func (s *Swap) IsParticipant(userID uuid.UUID) bool {
	return s.RequesterID == userID || s.RecipientID == userID
}
