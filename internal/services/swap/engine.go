package swap

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/storage"
)

// Ограничения на длину полей
const (
	maxMessageLen     = 1000
	maxDescriptionLen = 500
	maxCommentLen     = 500
)

// Engine управляет жизненным циклом предложений обмена: создание,
// переходы статусов, отзывы и пересчёт агрегированных рейтингов.
// Доступ к данным идёт только через репозитории.
type Engine struct {
	swaps storage.SwapRepository
	users storage.UserRepository
	now   func() time.Time
}

// NewEngine создает новый экземпляр Engine
func NewEngine(swaps storage.SwapRepository, users storage.UserRepository) *Engine {
	return &Engine{
		swaps: swaps,
		users: users,
		now:   time.Now,
	}
}

// CreateSwapParams содержит данные нового предложения обмена
type CreateSwapParams struct {
	RequesterID    uuid.UUID
	RecipientID    uuid.UUID
	RequestedSkill models.SkillRef
	OfferedSkill   models.SkillRef
	Message        string
}

// validate проверяет входные данные и нормализует имена навыков
func (p *CreateSwapParams) validate() error {
	p.RequestedSkill.Name = strings.TrimSpace(p.RequestedSkill.Name)
	p.OfferedSkill.Name = strings.TrimSpace(p.OfferedSkill.Name)

	if p.RequestedSkill.Name == "" {
		return &ValidationError{Reason: "не указано имя запрашиваемого навыка"}
	}
	if p.OfferedSkill.Name == "" {
		return &ValidationError{Reason: "не указано имя предлагаемого навыка"}
	}
	if utf8.RuneCountInString(p.RequestedSkill.Description) > maxDescriptionLen ||
		utf8.RuneCountInString(p.OfferedSkill.Description) > maxDescriptionLen {
		return &ValidationError{Reason: "описание навыка не должно превышать 500 символов"}
	}
	if utf8.RuneCountInString(p.Message) > maxMessageLen {
		return &ValidationError{Reason: "сообщение не должно превышать 1000 символов"}
	}
	return nil
}

// Create создает новое предложение обмена
func (e *Engine) Create(ctx context.Context, params CreateSwapParams) (*models.Swap, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if params.RequesterID == params.RecipientID {
		return nil, &ValidationError{Reason: "нельзя отправить предложение обмена самому себе"}
	}

	requester, err := e.users.GetByID(ctx, params.RequesterID)
	if err != nil {
		return nil, err
	}

	recipient, err := e.users.GetByID(ctx, params.RecipientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	if recipient.IsBanned {
		return nil, ErrRecipientBanned
	}
	if !recipient.IsPublic {
		return nil, ErrRecipientPrivate
	}

	// Обе стороны должны действительно владеть названными навыками
	if !models.HasSkillNamed(requester.SkillsOffered, params.OfferedSkill.Name) {
		return nil, &ValidationError{Reason: "предлагаемый навык должен быть в вашем списке навыков"}
	}
	if !models.HasSkillNamed(recipient.SkillsOffered, params.RequestedSkill.Name) {
		return nil, &ValidationError{Reason: "у получателя нет запрашиваемого навыка"}
	}

	// Не больше одного активного обмена на пару пользователей
	exists, err := e.swaps.ExistsActiveBetween(ctx, params.RequesterID, params.RecipientID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrActiveSwapExists
	}

	swap := &models.Swap{
		ID:             uuid.New(),
		RequesterID:    params.RequesterID,
		RecipientID:    params.RecipientID,
		RequestedSkill: params.RequestedSkill,
		OfferedSkill:   params.OfferedSkill,
		Status:         models.SwapStatusPending,
		Message:        strings.TrimSpace(params.Message),
		CreatedAt:      e.now(),
	}

	if err := e.swaps.Create(ctx, swap); err != nil {
		return nil, err
	}

	swap.Requester = requester.Summary()
	swap.Recipient = recipient.Summary()
	return swap, nil
}

// Accept принимает предложение обмена. Доступно только получателю и
// только пока предложение в ожидании.
func (e *Engine) Accept(ctx context.Context, swapID, callerID uuid.UUID) (*models.Swap, error) {
	return e.transition(ctx, swapID, callerID, models.SwapStatusAccepted)
}

// Reject отклоняет предложение обмена. Доступно только получателю и
// только пока предложение в ожидании.
func (e *Engine) Reject(ctx context.Context, swapID, callerID uuid.UUID) (*models.Swap, error) {
	return e.transition(ctx, swapID, callerID, models.SwapStatusRejected)
}

// Cancel отменяет предложение обмена. Доступно только отправителю и
// только пока получатель не ответил.
func (e *Engine) Cancel(ctx context.Context, swapID, callerID uuid.UUID) (*models.Swap, error) {
	return e.transition(ctx, swapID, callerID, models.SwapStatusCancelled)
}

// Complete помечает принятый обмен завершённым. Доступно любой из
// сторон; подтверждение второй стороны не требуется.
func (e *Engine) Complete(ctx context.Context, swapID, callerID uuid.UUID) (*models.Swap, error) {
	return e.transition(ctx, swapID, callerID, models.SwapStatusCompleted)
}

// transition выполняет переход статуса с проверкой прав и текущего
// состояния. Повторная попытка после успешного перехода вернёт ошибку
// недопустимого состояния, а не применит переход ещё раз.
func (e *Engine) transition(ctx context.Context, swapID, callerID uuid.UUID, to models.SwapStatus) (*models.Swap, error) {
	swap, err := e.swaps.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}

	if err := authorizeTransition(swap, callerID, to); err != nil {
		return nil, err
	}

	from := transitionFrom(to)
	if swap.Status != from {
		return nil, invalidStateFor(to)
	}

	now := e.now()
	if err := e.swaps.Transition(ctx, swapID, from, to, now); err != nil {
		if errors.Is(err, storage.ErrStaleStatus) {
			return nil, invalidStateFor(to)
		}
		return nil, err
	}

	swap.Status = to
	stampTransition(swap, to, now)
	e.attachParticipants(ctx, swap)
	return swap, nil
}

// SubmitFeedback записывает отзыв одной из сторон по завершённому
// обмену. Когда отзыв становится вторым, в той же транзакции
// пересчитываются агрегированные рейтинги обоих участников: рейтинг
// получателя обновляется оценкой отправителя и наоборот.
func (e *Engine) SubmitFeedback(ctx context.Context, swapID, callerID uuid.UUID, rating int, comment string) (*models.Swap, error) {
	if rating < 1 || rating > 5 {
		return nil, &ValidationError{Reason: "оценка должна быть целым числом от 1 до 5"}
	}
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return nil, &ValidationError{Reason: "комментарий не должен превышать 500 символов"}
	}

	swap, err := e.swaps.UpdateFeedback(ctx, swapID, func(s *models.Swap) ([]storage.RatingUpdate, error) {
		secondSide, err := applyFeedback(s, callerID, rating, strings.TrimSpace(comment))
		if err != nil {
			return nil, err
		}
		if !secondSide {
			return nil, nil
		}
		// Агрегация срабатывает ровно один раз: на вызове, который
		// делает присутствующими оба отзыва
		return []storage.RatingUpdate{
			{UserID: s.RecipientID, Rating: *s.Feedback.RequesterRating},
			{UserID: s.RequesterID, Rating: *s.Feedback.RecipientRating},
		}, nil
	})

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}

	e.attachParticipants(ctx, swap)
	return swap, nil
}

// GetByID возвращает предложение обмена; доступно только его сторонам
func (e *Engine) GetByID(ctx context.Context, swapID, callerID uuid.UUID) (*models.Swap, error) {
	swap, err := e.swaps.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSwapNotFound
		}
		return nil, err
	}

	if !swap.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}

	e.attachParticipants(ctx, swap)
	return swap, nil
}

// ListMine возвращает предложения обмена пользователя с фильтром по
// статусу и пагинацией
func (e *Engine) ListMine(ctx context.Context, userID uuid.UUID, status models.SwapStatus, limit, offset int) ([]models.Swap, int, error) {
	if status != "" && !status.IsValid() {
		return nil, 0, &ValidationError{Reason: "недопустимый статус предложения обмена"}
	}

	swaps, total, err := e.swaps.ListForUser(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	for i := range swaps {
		e.attachParticipants(ctx, &swaps[i])
	}

	return swaps, total, nil
}

// attachParticipants добавляет к предложению краткие карточки сторон.
// Ошибки не прерывают запрос: карточка просто остаётся пустой.
func (e *Engine) attachParticipants(ctx context.Context, swap *models.Swap) {
	if requester, err := e.users.GetByID(ctx, swap.RequesterID); err == nil {
		swap.Requester = requester.Summary()
	} else {
		log.Printf("Ошибка получения пользователя %s: %v", swap.RequesterID, err)
	}

	if recipient, err := e.users.GetByID(ctx, swap.RecipientID); err == nil {
		swap.Recipient = recipient.Summary()
	} else {
		log.Printf("Ошибка получения пользователя %s: %v", swap.RecipientID, err)
	}
}

// authorizeTransition проверяет, что вызывающий вправе выполнить
// переход: принять или отклонить может только получатель, отменить —
// только отправитель, завершить — любая из сторон
func authorizeTransition(swap *models.Swap, callerID uuid.UUID, to models.SwapStatus) error {
	switch to {
	case models.SwapStatusAccepted, models.SwapStatusRejected:
		if swap.RecipientID != callerID {
			return ErrNotRecipient
		}
	case models.SwapStatusCancelled:
		if swap.RequesterID != callerID {
			return ErrNotRequester
		}
	case models.SwapStatusCompleted:
		if !swap.IsParticipant(callerID) {
			return ErrNotParticipant
		}
	}
	return nil
}

// transitionFrom возвращает статус, из которого допустим переход в
// указанный: accepted, rejected и cancelled достижимы только из
// pending, completed — только из accepted
func transitionFrom(to models.SwapStatus) models.SwapStatus {
	if to == models.SwapStatusCompleted {
		return models.SwapStatusAccepted
	}
	return models.SwapStatusPending
}

// invalidStateFor возвращает ошибку недопустимого состояния для
// целевого статуса
func invalidStateFor(to models.SwapStatus) error {
	if to == models.SwapStatusCompleted {
		return ErrNotAccepted
	}
	return ErrNotPending
}

// stampTransition проставляет временную метку перехода; каждая метка
// записывается ровно один раз
func stampTransition(swap *models.Swap, to models.SwapStatus, at time.Time) {
	switch to {
	case models.SwapStatusAccepted:
		swap.AcceptedAt = &at
	case models.SwapStatusRejected:
		swap.RejectedAt = &at
	case models.SwapStatusCancelled:
		swap.CancelledAt = &at
	case models.SwapStatusCompleted:
		swap.CompletedAt = &at
	}
}

// applyFeedback применяет отзыв к записи обмена и возвращает true,
// когда отзыв стал вторым и нужно пересчитать агрегированные рейтинги.
// Оценка каждой стороны записывается ровно один раз.
func applyFeedback(swap *models.Swap, callerID uuid.UUID, rating int, comment string) (bool, error) {
	if !swap.IsParticipant(callerID) {
		return false, ErrNotParticipant
	}
	if swap.Status != models.SwapStatusCompleted {
		return false, ErrNotCompleted
	}

	feedback := &swap.Feedback
	if callerID == swap.RequesterID {
		if feedback.RequesterRating != nil {
			return false, ErrFeedbackExists
		}
		feedback.RequesterRating = &rating
		feedback.RequesterComment = comment
	} else {
		if feedback.RecipientRating != nil {
			return false, ErrFeedbackExists
		}
		feedback.RecipientRating = &rating
		feedback.RecipientComment = comment
	}

	return feedback.BothPresent(), nil
}
