package swap

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API обменов
func (s *SwapService) SetupRoutes(app *fiber.App) {
	// Группа для API обменов
	api := app.Group("/api/swaps")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания предложения обмена
	api.Post("/", s.CreateSwap)

	// Маршрут для получения списка своих предложений обмена
	api.Get("/mine", s.GetMySwaps)

	// Маршрут для получения предложения обмена по ID
	api.Get("/:id", s.GetSwap)

	// Маршруты переходов статуса
	api.Put("/:id/accept", s.AcceptSwap)
	api.Put("/:id/reject", s.RejectSwap)
	api.Put("/:id/cancel", s.CancelSwap)
	api.Put("/:id/complete", s.CompleteSwap)

	// Маршрут для отзыва по завершённому обмену
	api.Post("/:id/feedback", s.SubmitFeedback)
}
