package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

const userColumns = `
	id, name, username, location, bio, avatar_url, avatar_public_id,
	skills_offered, skills_wanted, availability, is_public, role,
	rating_average, rating_count, is_banned, created_at, updated_at`

// UserRepo реализует UserRepository поверх PostgreSQL
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo создает новый экземпляр UserRepo
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// GetByID получает пользователя по ID
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}

	return user, nil
}

// UpsertTelegramUser создает нового пользователя по данным из Telegram
// или обновляет привязку существующего
func (r *UserRepo) UpsertTelegramUser(ctx context.Context, profile TelegramProfile) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT user_id FROM telegram_users WHERE telegram_id = $1
	`, profile.TelegramID).Scan(&userID)

	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка при проверке существования пользователя Telegram: %w", err)
	}

	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)

	if errors.Is(err, pgx.ErrNoRows) {
		// Создаем запись в users
		err = tx.QueryRow(ctx, `
			INSERT INTO users (id, name, username, avatar_url, skills_offered, skills_wanted, availability)
			VALUES ($1, $2, $3, $4, '[]', '[]', '{}')
			RETURNING id
		`, uuid.New(), name, profile.Username, profile.PhotoURL).Scan(&userID)

		if err != nil {
			return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
		}

		// Создаем запись в telegram_users
		_, err = tx.Exec(ctx, `
			INSERT INTO telegram_users (id, user_id, telegram_id, username, first_name, last_name, photo_url, is_premium, language_code, raw_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.New(), userID, profile.TelegramID, profile.Username, profile.FirstName,
			profile.LastName, profile.PhotoURL, profile.IsPremium, profile.LanguageCode, profile.RawData)

		if err != nil {
			return nil, fmt.Errorf("ошибка при создании Telegram пользователя: %w", err)
		}
	} else {
		// Обновляем данные telegram_users
		_, err = tx.Exec(ctx, `
			UPDATE telegram_users
			SET username = $1, first_name = $2, last_name = $3, photo_url = $4,
				is_premium = $5, language_code = $6, raw_data = $7, updated_at = CURRENT_TIMESTAMP
			WHERE telegram_id = $8
		`, profile.Username, profile.FirstName, profile.LastName, profile.PhotoURL,
			profile.IsPremium, profile.LanguageCode, profile.RawData, profile.TelegramID)

		if err != nil {
			return nil, fmt.Errorf("ошибка при обновлении Telegram пользователя: %w", err)
		}
	}

	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return user, nil
}

// UpdateProfile обновляет основные поля профиля пользователя
func (r *UserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, location = $2, bio = $3, avatar_url = $4, avatar_public_id = $5,
			is_public = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
	`, user.Name, user.Location, user.Bio, user.AvatarURL, user.AvatarPublicID, user.IsPublic, user.ID)

	if err != nil {
		return fmt.Errorf("ошибка при обновлении профиля: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateSkills сохраняет списки навыков пользователя
func (r *UserRepo) UpdateSkills(ctx context.Context, userID uuid.UUID, offered, wanted []models.Skill) error {
	offeredData, err := json.Marshal(offered)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации навыков: %w", err)
	}

	wantedData, err := json.Marshal(wanted)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации навыков: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET skills_offered = $1, skills_wanted = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3
	`, offeredData, wantedData, userID)

	if err != nil {
		return fmt.Errorf("ошибка при обновлении навыков: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateAvailability сохраняет расписание доступности пользователя
func (r *UserRepo) UpdateAvailability(ctx context.Context, userID uuid.UUID, availability models.Availability) error {
	data, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации доступности: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET availability = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, data, userID)

	if err != nil {
		return fmt.Errorf("ошибка при обновлении доступности: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetBanned устанавливает или снимает блокировку пользователя
func (r *UserRepo) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_banned = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, banned, userID)

	if err != nil {
		return fmt.Errorf("ошибка при обновлении блокировки: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Browse возвращает публичных незаблокированных пользователей с
// фильтрами по навыку и городу, отсортированных по рейтингу
func (r *UserRepo) Browse(ctx context.Context, params BrowseParams) ([]models.User, int, error) {
	where := `
		is_public = true AND is_banned = false
		AND ($1 = '' OR EXISTS (
				SELECT 1 FROM jsonb_array_elements(skills_offered) AS s
				WHERE s->>'name' ILIKE '%' || $1 || '%')
			OR EXISTS (
				SELECT 1 FROM jsonb_array_elements(skills_wanted) AS s
				WHERE s->>'name' ILIKE '%' || $1 || '%'))
		AND ($2 = '' OR COALESCE(location, '') ILIKE '%' || $2 || '%')`

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE `+where+`
		ORDER BY rating_average DESC, created_at DESC
		LIMIT $3 OFFSET $4
	`, params.Skill, params.Location, params.Limit, params.Offset)

	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при запросе пользователей: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка при сканировании пользователя: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка при чтении пользователей: %w", err)
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, params.Skill, params.Location).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при подсчете пользователей: %w", err)
	}

	return users, total, nil
}

// scanUser читает строку таблицы users в модель
func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var username, location, bio, avatarURL, avatarPublicID pgtype.Text
	var skillsOffered, skillsWanted, availability []byte

	err := row.Scan(
		&user.ID,
		&user.Name,
		&username,
		&location,
		&bio,
		&avatarURL,
		&avatarPublicID,
		&skillsOffered,
		&skillsWanted,
		&availability,
		&user.IsPublic,
		&user.Role,
		&user.Rating.Average,
		&user.Rating.Count,
		&user.IsBanned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	// Преобразуем nullable поля
	if username.Valid {
		user.Username = username.String
	}
	if location.Valid {
		user.Location = location.String
	}
	if bio.Valid {
		user.Bio = bio.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	if avatarPublicID.Valid {
		user.AvatarPublicID = avatarPublicID.String
	}

	if err := json.Unmarshal(skillsOffered, &user.SkillsOffered); err != nil {
		return nil, fmt.Errorf("ошибка при разборе навыков: %w", err)
	}

	if err := json.Unmarshal(skillsWanted, &user.SkillsWanted); err != nil {
		return nil, fmt.Errorf("ошибка при разборе навыков: %w", err)
	}

	if err := json.Unmarshal(availability, &user.Availability); err != nil {
		return nil, fmt.Errorf("ошибка при разборе доступности: %w", err)
	}

	return &user, nil
}
