package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

// ErrNotFound возвращается, когда запись не найдена
var ErrNotFound = errors.New("запись не найдена")

// ErrStaleStatus возвращается, когда условный переход статуса не
// затронул ни одной строки: статус уже изменён параллельным запросом
var ErrStaleStatus = errors.New("статус записи уже изменён")

// RatingUpdate описывает применение новой оценки к агрегированному
// рейтингу пользователя
type RatingUpdate struct {
	UserID uuid.UUID
	Rating int
}

// BrowseParams содержит параметры поиска пользователей
type BrowseParams struct {
	Skill    string
	Location string
	Limit    int
	Offset   int
}

// TelegramProfile содержит данные пользователя из Telegram
type TelegramProfile struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	PhotoURL     string
	IsPremium    bool
	LanguageCode string
	RawData      []byte
}

// UserRepository предоставляет доступ к каталогу пользователей
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpsertTelegramUser(ctx context.Context, profile TelegramProfile) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateSkills(ctx context.Context, userID uuid.UUID, offered, wanted []models.Skill) error
	UpdateAvailability(ctx context.Context, userID uuid.UUID, availability models.Availability) error
	SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error
	Browse(ctx context.Context, params BrowseParams) ([]models.User, int, error)
}

// SwapRepository предоставляет доступ к предложениям обмена
type SwapRepository interface {
	Create(ctx context.Context, swap *models.Swap) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Swap, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status models.SwapStatus, limit, offset int) ([]models.Swap, int, error)
	// ExistsActiveBetween проверяет наличие активного (pending или
	// accepted) обмена между парой пользователей в любом направлении
	ExistsActiveBetween(ctx context.Context, userA, userB uuid.UUID) (bool, error)
	// Transition переводит обмен из ожидаемого статуса в новый и
	// проставляет соответствующую временную метку. Если статус уже
	// не совпадает с ожидаемым, возвращает ErrStaleStatus.
	Transition(ctx context.Context, id uuid.UUID, from, to models.SwapStatus, at time.Time) error
	// UpdateFeedback вызывает mutate над записью обмена под блокировкой
	// строки; возвращённые обновления рейтинга применяются в той же
	// транзакции. Ошибка из mutate отменяет транзакцию и возвращается
	// вызывающему без изменений.
	UpdateFeedback(ctx context.Context, id uuid.UUID, mutate func(*models.Swap) ([]RatingUpdate, error)) (*models.Swap, error)
}

// MessageRepository предоставляет доступ к сообщениям платформы
type MessageRepository interface {
	Create(ctx context.Context, msg *models.PlatformMessage) error
	ListActive(ctx context.Context) ([]models.PlatformMessage, error)
}
