package swap

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
)

// SwapService представляет сервис для работы с предложениями обмена
type SwapService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	engine     *Engine
}

// NewSwapService создает новый экземпляр SwapService
func NewSwapService(cfg *config.Config, engine *Engine) *SwapService {
	return &SwapService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		engine:     engine,
	}
}

// CreateSwap создает новое предложение обмена навыками
func (s *SwapService) CreateSwap(c fiber.Ctx) error {
	callerID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	var requestData struct {
		RecipientID    string          `json:"recipient_id"`
		RequestedSkill models.SkillRef `json:"requested_skill"`
		OfferedSkill   models.SkillRef `json:"offered_skill"`
		Message        string          `json:"message"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	recipientID, err := uuid.Parse(requestData.RecipientID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID получателя"})
	}

	swap, err := s.engine.Create(c.Context(), CreateSwapParams{
		RequesterID:    callerID,
		RecipientID:    recipientID,
		RequestedSkill: requestData.RequestedSkill,
		OfferedSkill:   requestData.OfferedSkill,
		Message:        requestData.Message,
	})

	if err != nil {
		return respondSwapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Предложение обмена успешно создано",
		"swap":    swap,
	})
}

// GetMySwaps возвращает предложения обмена пользователя (входящие и
// исходящие) с фильтром по статусу и пагинацией
func (s *SwapService) GetMySwaps(c fiber.Ctx) error {
	callerID, err := callerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	status := models.SwapStatus(c.Query("status", ""))

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	swaps, total, err := s.engine.ListMine(c.Context(), callerID, status, limit, (page-1)*limit)
	if err != nil {
		return respondSwapError(c, err)
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"swaps": swaps,
		"count": len(swaps),
		"pagination": fiber.Map{
			"current":  page,
			"total":    totalPages,
			"has_next": page < totalPages,
			"has_prev": page > 1,
		},
	})
}

// GetSwap возвращает предложение обмена по ID
func (s *SwapService) GetSwap(c fiber.Ctx) error {
	callerID, swapID, err := callerAndSwapID(c)
	if err != nil {
		return err
	}

	swap, err := s.engine.GetByID(c.Context(), swapID, callerID)
	if err != nil {
		return respondSwapError(c, err)
	}

	return c.JSON(fiber.Map{"swap": swap})
}

// AcceptSwap принимает предложение обмена
func (s *SwapService) AcceptSwap(c fiber.Ctx) error {
	return s.applyTransition(c, s.engine.Accept, "Предложение обмена принято")
}

// RejectSwap отклоняет предложение обмена
func (s *SwapService) RejectSwap(c fiber.Ctx) error {
	return s.applyTransition(c, s.engine.Reject, "Предложение обмена отклонено")
}

// CancelSwap отменяет предложение обмена
func (s *SwapService) CancelSwap(c fiber.Ctx) error {
	return s.applyTransition(c, s.engine.Cancel, "Предложение обмена отменено")
}

// CompleteSwap помечает обмен завершённым
func (s *SwapService) CompleteSwap(c fiber.Ctx) error {
	return s.applyTransition(c, s.engine.Complete, "Обмен успешно завершён")
}

// SubmitFeedback записывает отзыв по завершённому обмену
func (s *SwapService) SubmitFeedback(c fiber.Ctx) error {
	callerID, swapID, err := callerAndSwapID(c)
	if err != nil {
		return err
	}

	var requestData struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	swap, err := s.engine.SubmitFeedback(c.Context(), swapID, callerID, requestData.Rating, requestData.Comment)
	if err != nil {
		return respondSwapError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Отзыв успешно сохранён",
		"swap":    swap,
	})
}

// applyTransition выполняет переход статуса и формирует ответ
func (s *SwapService) applyTransition(c fiber.Ctx, fn func(ctx context.Context, swapID, callerID uuid.UUID) (*models.Swap, error), message string) error {
	callerID, swapID, err := callerAndSwapID(c)
	if err != nil {
		return err
	}

	swap, err := fn(c.Context(), swapID, callerID)
	if err != nil {
		return respondSwapError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"swap":    swap,
	})
}

// callerID извлекает ID пользователя из контекста запроса
func callerID(c fiber.Ctx) (uuid.UUID, error) {
	userID, _ := c.Locals("userID").(string)
	return uuid.Parse(userID)
}

// callerAndSwapID извлекает ID пользователя и ID предложения обмена;
// при ошибке сразу пишет ответ клиенту
func callerAndSwapID(c fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	caller, err := callerID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	swapID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения обмена"})
	}

	return caller, swapID, nil
}

// respondSwapError транслирует ошибку движка в HTTP-ответ
func respondSwapError(c fiber.Ctx, err error) error {
	var validationErr *ValidationError

	switch {
	case errors.Is(err, ErrSwapNotFound), errors.Is(err, ErrRecipientNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotRecipient), errors.Is(err, ErrNotRequester),
		errors.Is(err, ErrNotParticipant), errors.Is(err, ErrRecipientBanned),
		errors.Is(err, ErrRecipientPrivate):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrFeedbackExists), errors.Is(err, ErrActiveSwapExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotAccepted),
		errors.Is(err, ErrNotCompleted), errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("Внутренняя ошибка сервиса обменов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Внутренняя ошибка сервера"})
	}
}
