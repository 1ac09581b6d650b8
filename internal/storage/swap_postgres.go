package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

const swapColumns = `
	id, requester_id, recipient_id, requested_skill, offered_skill,
	status, message, created_at, accepted_at, rejected_at, cancelled_at, completed_at,
	requester_rating, requester_comment, recipient_rating, recipient_comment`

// SwapRepo реализует SwapRepository поверх PostgreSQL
type SwapRepo struct {
	pool *pgxpool.Pool
}

// NewSwapRepo создает новый экземпляр SwapRepo
func NewSwapRepo(pool *pgxpool.Pool) *SwapRepo {
	return &SwapRepo{pool: pool}
}

// Create сохраняет новое предложение обмена
func (r *SwapRepo) Create(ctx context.Context, swap *models.Swap) error {
	requestedSkill, err := json.Marshal(swap.RequestedSkill)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации запрашиваемого навыка: %w", err)
	}

	offeredSkill, err := json.Marshal(swap.OfferedSkill)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации предлагаемого навыка: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO swaps (id, requester_id, recipient_id, requested_skill, offered_skill, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, swap.ID, swap.RequesterID, swap.RecipientID, requestedSkill, offeredSkill, swap.Status, swap.Message, swap.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка при сохранении предложения обмена: %w", err)
	}

	return nil
}

// GetByID получает предложение обмена по ID
func (r *SwapRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Swap, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = $1`, id)

	swap, err := scanSwap(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при получении предложения обмена: %w", err)
	}

	return swap, nil
}

// ListForUser возвращает предложения обмена пользователя (входящие и
// исходящие) с фильтром по статусу и пагинацией
func (r *SwapRepo) ListForUser(ctx context.Context, userID uuid.UUID, status models.SwapStatus, limit, offset int) ([]models.Swap, int, error) {
	query := `SELECT ` + swapColumns + `
		FROM swaps
		WHERE (requester_id = $1 OR recipient_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, userID, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при запросе предложений обмена: %w", err)
	}
	defer rows.Close()

	var swaps []models.Swap
	for rows.Next() {
		swap, err := scanSwap(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка при сканировании предложения обмена: %w", err)
		}
		swaps = append(swaps, *swap)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка при чтении предложений обмена: %w", err)
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM swaps
		WHERE (requester_id = $1 OR recipient_id = $1) AND ($2 = '' OR status = $2)
	`, userID, string(status)).Scan(&total)

	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при подсчете предложений обмена: %w", err)
	}

	return swaps, total, nil
}

// ExistsActiveBetween проверяет наличие активного обмена между парой
// пользователей в любом направлении
func (r *SwapRepo) ExistsActiveBetween(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM swaps
			WHERE ((requester_id = $1 AND recipient_id = $2) OR (requester_id = $2 AND recipient_id = $1))
			  AND status IN ('pending', 'accepted')
		)
	`, userA, userB).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("ошибка при проверке активных обменов: %w", err)
	}

	return exists, nil
}

// Transition переводит обмен из ожидаемого статуса в новый. Условие на
// текущий статус в самом UPDATE защищает от параллельного перехода
// между чтением и записью.
func (r *SwapRepo) Transition(ctx context.Context, id uuid.UUID, from, to models.SwapStatus, at time.Time) error {
	var column string
	switch to {
	case models.SwapStatusAccepted:
		column = "accepted_at"
	case models.SwapStatusRejected:
		column = "rejected_at"
	case models.SwapStatusCancelled:
		column = "cancelled_at"
	case models.SwapStatusCompleted:
		column = "completed_at"
	default:
		return fmt.Errorf("недопустимый целевой статус: %s", to)
	}

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE swaps SET status = $1, %s = $2 WHERE id = $3 AND status = $4`, column),
		to, at, id, from)

	if err != nil {
		return fmt.Errorf("ошибка при обновлении статуса предложения: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}

	return nil
}

// UpdateFeedback выполняет mutate над записью обмена под блокировкой
// строки и применяет возвращённые обновления рейтинга в той же
// транзакции. Так два параллельных отзыва по одному обмену не могут
// одновременно увидеть "вторая сторона отсутствует" и применить
// агрегацию дважды.
func (r *SwapRepo) UpdateFeedback(ctx context.Context, id uuid.UUID, mutate func(*models.Swap) ([]RatingUpdate, error)) (*models.Swap, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = $1 FOR UPDATE`, id)

	swap, err := scanSwap(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при получении предложения обмена: %w", err)
	}

	updates, err := mutate(swap)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE swaps
		SET requester_rating = $1, requester_comment = $2, recipient_rating = $3, recipient_comment = $4
		WHERE id = $5
	`, swap.Feedback.RequesterRating, swap.Feedback.RequesterComment,
		swap.Feedback.RecipientRating, swap.Feedback.RecipientComment, id)

	if err != nil {
		return nil, fmt.Errorf("ошибка при сохранении отзыва: %w", err)
	}

	for _, update := range updates {
		if err := applyRating(ctx, tx, update); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return swap, nil
}

// applyRating пересчитывает агрегированный рейтинг пользователя внутри
// транзакции. Строка пользователя блокируется на время пересчёта.
func applyRating(ctx context.Context, tx pgx.Tx, update RatingUpdate) error {
	var rating models.Rating
	err := tx.QueryRow(ctx, `
		SELECT rating_average, rating_count FROM users WHERE id = $1 FOR UPDATE
	`, update.UserID).Scan(&rating.Average, &rating.Count)

	if err != nil {
		return fmt.Errorf("ошибка при получении рейтинга пользователя: %w", err)
	}

	rating = rating.Add(update.Rating)

	_, err = tx.Exec(ctx, `
		UPDATE users SET rating_average = $1, rating_count = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3
	`, rating.Average, rating.Count, update.UserID)

	if err != nil {
		return fmt.Errorf("ошибка при обновлении рейтинга пользователя: %w", err)
	}

	return nil
}

// scanSwap читает строку таблицы swaps в модель
func scanSwap(row pgx.Row) (*models.Swap, error) {
	var swap models.Swap
	var requestedSkill, offeredSkill []byte

	err := row.Scan(
		&swap.ID,
		&swap.RequesterID,
		&swap.RecipientID,
		&requestedSkill,
		&offeredSkill,
		&swap.Status,
		&swap.Message,
		&swap.CreatedAt,
		&swap.AcceptedAt,
		&swap.RejectedAt,
		&swap.CancelledAt,
		&swap.CompletedAt,
		&swap.Feedback.RequesterRating,
		&swap.Feedback.RequesterComment,
		&swap.Feedback.RecipientRating,
		&swap.Feedback.RecipientComment,
	)

	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(requestedSkill, &swap.RequestedSkill); err != nil {
		return nil, fmt.Errorf("ошибка при разборе запрашиваемого навыка: %w", err)
	}

	if err := json.Unmarshal(offeredSkill, &swap.OfferedSkill); err != nil {
		return nil, fmt.Errorf("ошибка при разборе предлагаемого навыка: %w", err)
	}

	return &swap, nil
}
