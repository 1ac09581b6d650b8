package user

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API пользователей
func (s *UserService) SetupRoutes(app *fiber.App) {
	// Группа для API пользователей
	api := app.Group("/api/users")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Поиск пользователей
	api.Get("/browse", s.BrowseUsers)

	// Обновление своего профиля и доступности
	api.Put("/me", s.UpdateMe)
	api.Put("/availability", s.UpdateAvailability)

	// Навыки: предлагаемые и желаемые
	api.Post("/skills/offered", s.AddSkillOffered)
	api.Put("/skills/offered/:skillId", s.UpdateSkillOffered)
	api.Delete("/skills/offered/:skillId", s.DeleteSkillOffered)

	api.Post("/skills/wanted", s.AddSkillWanted)
	api.Put("/skills/wanted/:skillId", s.UpdateSkillWanted)
	api.Delete("/skills/wanted/:skillId", s.DeleteSkillWanted)

	// Профиль пользователя по ID (регистрируется последним, чтобы не
	// перехватывать остальные маршруты)
	api.Get("/:id", s.GetUser)
}
