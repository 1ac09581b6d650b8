package main

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/db"
	"github.com/rajivgeraev/skillswap-api/internal/services/admin"
	"github.com/rajivgeraev/skillswap-api/internal/services/auth"
	"github.com/rajivgeraev/skillswap-api/internal/services/cloudinary"
	"github.com/rajivgeraev/skillswap-api/internal/services/swap"
	"github.com/rajivgeraev/skillswap-api/internal/services/user"
	"github.com/rajivgeraev/skillswap-api/internal/storage"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	pool, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer pool.Close()

	// Создаём репозитории
	userRepo := storage.NewUserRepo(pool)
	swapRepo := storage.NewSwapRepo(pool)
	messageRepo := storage.NewMessageRepo(pool)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "SkillSwap API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы
	authService := auth.NewAuthService(cfg, userRepo)

	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации Cloudinary: %v", err)
	}

	swapEngine := swap.NewEngine(swapRepo, userRepo)
	swapService := swap.NewSwapService(cfg, swapEngine)
	userService := user.NewUserService(cfg, userRepo, cloudinaryService)
	adminService := admin.NewAdminService(cfg, userRepo, messageRepo)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	swapService.SetupRoutes(app)
	userService.SetupRoutes(app)
	adminService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	// Запускаем сервер
	log.Printf("✅ SkillSwap API запущен на порту %s", cfg.ServerPort)
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
