package middleware

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/storage"
)

// AdminMiddleware создаёт middleware для проверки роли администратора.
// Должен стоять после AuthMiddleware.
func AdminMiddleware(users storage.UserRepository) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)

		userUUID, err := uuid.Parse(userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Пользователь не авторизован",
			})
		}

		user, err := users.GetByID(c.Context(), userUUID)
		if err != nil {
			log.Printf("Ошибка получения пользователя %s: %v", userID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Пользователь не авторизован",
			})
		}

		if user.Role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Требуются права администратора",
			})
		}

		return c.Next()
	}
}
