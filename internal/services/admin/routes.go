package admin

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API модерации
func (s *AdminService) SetupRoutes(app *fiber.App) {
	// Сообщения платформы доступны всем авторизованным пользователям
	messages := app.Group("/api/messages")
	messages.Use(middleware.AuthMiddleware(s.jwtService))
	messages.Get("/", s.ListMessages)

	// Административные маршруты
	api := app.Group("/api/admin")
	api.Use(middleware.AuthMiddleware(s.jwtService))
	api.Use(middleware.AdminMiddleware(s.users))

	// Блокировка пользователей
	api.Put("/users/:id/ban", s.BanUser)
	api.Put("/users/:id/unban", s.UnbanUser)

	// Публикация сообщения платформы
	api.Post("/messages", s.BroadcastMessage)
}
