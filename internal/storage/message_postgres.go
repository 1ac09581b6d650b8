package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

// MessageRepo реализует MessageRepository поверх PostgreSQL
type MessageRepo struct {
	pool *pgxpool.Pool
}

// NewMessageRepo создает новый экземпляр MessageRepo
func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Create сохраняет новое сообщение платформы
func (r *MessageRepo) Create(ctx context.Context, msg *models.PlatformMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO platform_messages (id, title, body, created_by, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.Title, msg.Body, msg.CreatedBy, msg.IsActive, msg.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка при сохранении сообщения платформы: %w", err)
	}

	return nil
}

// ListActive возвращает активные сообщения платформы, новые первыми
func (r *MessageRepo) ListActive(ctx context.Context) ([]models.PlatformMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, body, created_by, is_active, created_at
		FROM platform_messages
		WHERE is_active = true
		ORDER BY created_at DESC
	`)

	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе сообщений платформы: %w", err)
	}
	defer rows.Close()

	var messages []models.PlatformMessage
	for rows.Next() {
		var msg models.PlatformMessage
		if err := rows.Scan(&msg.ID, &msg.Title, &msg.Body, &msg.CreatedBy, &msg.IsActive, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании сообщения: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при чтении сообщений: %w", err)
	}

	return messages, nil
}
