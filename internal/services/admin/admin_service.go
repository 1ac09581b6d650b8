package admin

import (
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/storage"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
)

// AdminService представляет сервис модерации платформы
type AdminService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	users      storage.UserRepository
	messages   storage.MessageRepository
}

// NewAdminService создает новый экземпляр AdminService
func NewAdminService(cfg *config.Config, users storage.UserRepository, messages storage.MessageRepository) *AdminService {
	return &AdminService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		users:      users,
		messages:   messages,
	}
}

// BanUser блокирует пользователя
func (s *AdminService) BanUser(c fiber.Ctx) error {
	return s.setBanned(c, true, "Пользователь заблокирован")
}

// UnbanUser снимает блокировку с пользователя
func (s *AdminService) UnbanUser(c fiber.Ctx) error {
	return s.setBanned(c, false, "Блокировка снята")
}

// setBanned устанавливает статус блокировки пользователя
func (s *AdminService) setBanned(c fiber.Ctx, banned bool, message string) error {
	userUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	if err := s.users.SetBanned(c.Context(), userUUID, banned); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пользователь не найден"})
		}
		log.Printf("Ошибка обновления блокировки %s: %v", userUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления блокировки"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

// BroadcastMessage публикует сообщение платформы для всех пользователей
func (s *AdminService) BroadcastMessage(c fiber.Ctx) error {
	adminID, _ := c.Locals("userID").(string)

	adminUUID, err := uuid.Parse(adminID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	var requestData struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	requestData.Title = strings.TrimSpace(requestData.Title)
	requestData.Body = strings.TrimSpace(requestData.Body)

	if requestData.Title == "" || requestData.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать заголовок и текст сообщения"})
	}
	if utf8.RuneCountInString(requestData.Title) > 200 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Заголовок не должен превышать 200 символов"})
	}

	message := &models.PlatformMessage{
		ID:        uuid.New(),
		Title:     requestData.Title,
		Body:      requestData.Body,
		CreatedBy: adminUUID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	if err := s.messages.Create(c.Context(), message); err != nil {
		log.Printf("Ошибка сохранения сообщения платформы: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения сообщения"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Сообщение опубликовано",
		"data":    message,
	})
}

// ListMessages возвращает активные сообщения платформы
func (s *AdminService) ListMessages(c fiber.Ctx) error {
	messages, err := s.messages.ListActive(c.Context())
	if err != nil {
		log.Printf("Ошибка получения сообщений платформы: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщений"})
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}
