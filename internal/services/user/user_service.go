package user

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/storage"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
)

// AssetRemover удаляет загруженные медиафайлы, которые больше не нужны
type AssetRemover interface {
	DeleteAsset(ctx context.Context, publicID string) error
}

// UserService представляет сервис для работы с профилями пользователей
type UserService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	users      storage.UserRepository
	assets     AssetRemover
}

// NewUserService создает новый экземпляр UserService
func NewUserService(cfg *config.Config, users storage.UserRepository, assets AssetRemover) *UserService {
	return &UserService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		users:      users,
		assets:     assets,
	}
}

// BrowseUsers возвращает публичных пользователей с фильтрами по навыку
// и городу
func (s *UserService) BrowseUsers(c fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	users, total, err := s.users.Browse(c.Context(), storage.BrowseParams{
		Skill:    strings.TrimSpace(c.Query("skill")),
		Location: strings.TrimSpace(c.Query("location")),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})

	if err != nil {
		log.Printf("Ошибка поиска пользователей: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения пользователей"})
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"users": users,
		"pagination": fiber.Map{
			"current":  page,
			"total":    totalPages,
			"has_next": page < totalPages,
			"has_prev": page > 1,
		},
	})
}

// GetUser возвращает профиль пользователя по ID. Закрытый профиль
// виден только его владельцу.
func (s *UserService) GetUser(c fiber.Ctx) error {
	userUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	user, err := s.users.GetByID(c.Context(), userUUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пользователь не найден"})
		}
		log.Printf("Ошибка получения пользователя %s: %v", userUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения пользователя"})
	}

	callerID, _ := c.Locals("userID").(string)
	if !user.IsPublic && callerID != user.ID.String() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Профиль пользователя закрыт"})
	}

	return c.JSON(fiber.Map{"user": user})
}

// UpdateMe обновляет профиль текущего пользователя
func (s *UserService) UpdateMe(c fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var requestData struct {
		Name           *string `json:"name"`
		Location       *string `json:"location"`
		Bio            *string `json:"bio"`
		IsPublic       *bool   `json:"is_public"`
		AvatarURL      *string `json:"avatar_url"`
		AvatarPublicID *string `json:"avatar_public_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Name != nil {
		name := strings.TrimSpace(*requestData.Name)
		if name == "" || utf8.RuneCountInString(name) > 50 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Имя должно быть от 1 до 50 символов"})
		}
		user.Name = name
	}

	if requestData.Location != nil {
		location := strings.TrimSpace(*requestData.Location)
		if utf8.RuneCountInString(location) > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Город не должен превышать 100 символов"})
		}
		user.Location = location
	}

	if requestData.Bio != nil {
		user.Bio = strings.TrimSpace(*requestData.Bio)
	}

	if requestData.IsPublic != nil {
		user.IsPublic = *requestData.IsPublic
	}

	oldAvatarPublicID := user.AvatarPublicID
	if requestData.AvatarURL != nil {
		user.AvatarURL = *requestData.AvatarURL
	}
	if requestData.AvatarPublicID != nil {
		user.AvatarPublicID = *requestData.AvatarPublicID
	}

	if err := s.users.UpdateProfile(c.Context(), user); err != nil {
		log.Printf("Ошибка обновления профиля %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
	}

	// Старый аватар больше не нужен — удаляем из хранилища
	if oldAvatarPublicID != "" && oldAvatarPublicID != user.AvatarPublicID {
		if err := s.assets.DeleteAsset(c.Context(), oldAvatarPublicID); err != nil {
			log.Printf("Ошибка удаления старого аватара %s: %v", oldAvatarPublicID, err)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Профиль успешно обновлён",
		"user":    user,
	})
}

// UpdateAvailability обновляет расписание доступности пользователя
func (s *UserService) UpdateAvailability(c fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var availability models.Availability
	if err := c.Bind().Body(&availability); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if utf8.RuneCountInString(availability.CustomSchedule) > 200 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Описание расписания не должно превышать 200 символов"})
	}

	if err := s.users.UpdateAvailability(c.Context(), user.ID, availability); err != nil {
		log.Printf("Ошибка обновления доступности %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления доступности"})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Доступность успешно обновлена",
		"availability": availability,
	})
}

// currentUser загружает профиль текущего пользователя; при ошибке
// сразу пишет ответ клиенту
func (s *UserService) currentUser(c fiber.Ctx) (*models.User, error) {
	userID, _ := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	user, err := s.users.GetByID(c.Context(), userUUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пользователь не найден"})
		}
		log.Printf("Ошибка получения пользователя %s: %v", userID, err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения пользователя"})
	}

	return user, nil
}
