package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Уровни владения предлагаемым навыком
const (
	SkillLevelBeginner     = "Beginner"
	SkillLevelIntermediate = "Intermediate"
	SkillLevelAdvanced     = "Advanced"
	SkillLevelExpert       = "Expert"
)

// Приоритеты желаемых навыков
const (
	SkillPriorityLow    = "Low"
	SkillPriorityMedium = "Medium"
	SkillPriorityHigh   = "High"
)

// Skill представляет навык в профиле пользователя. У каждого навыка
// есть собственный стабильный идентификатор, чтобы редактирование и
// удаление не зависели от позиции в списке.
type Skill struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Level       string    `json:"level,omitempty"`    // для предлагаемых навыков
	Priority    string    `json:"priority,omitempty"` // для желаемых навыков
}

// Availability описывает, когда пользователь доступен для обмена
type Availability struct {
	Weekdays       bool   `json:"weekdays"`
	Weekends       bool   `json:"weekends"`
	Evenings       bool   `json:"evenings"`
	CustomSchedule string `json:"custom_schedule,omitempty"`
}

// Rating представляет агрегированный рейтинг пользователя
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Add возвращает рейтинг с учтённой новой оценкой. Взвешенная сумма
// считается по значению счётчика до инкремента — иначе оценка
// размывается на один лишний отзыв.
func (r Rating) Add(rating int) Rating {
	total := r.Average*float64(r.Count) + float64(rating)
	return Rating{
		Average: total / float64(r.Count+1),
		Count:   r.Count + 1,
	}
}

// User представляет пользователя в системе
type User struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Username       string       `json:"username,omitempty"`
	Location       string       `json:"location,omitempty"`
	Bio            string       `json:"bio,omitempty"`
	AvatarURL      string       `json:"avatar_url,omitempty"`
	AvatarPublicID string       `json:"avatar_public_id,omitempty"`
	SkillsOffered  []Skill      `json:"skills_offered"`
	SkillsWanted   []Skill      `json:"skills_wanted"`
	Availability   Availability `json:"availability"`
	IsPublic       bool         `json:"is_public"`
	Role           string       `json:"role"`
	Rating         Rating       `json:"rating"`
	IsBanned       bool         `json:"is_banned"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// UserSummary представляет минимальную информацию о пользователе для API
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Rating    Rating    `json:"rating"`
}

// Summary возвращает краткую карточку пользователя
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Rating:    u.Rating,
	}
}

// HasSkillNamed проверяет наличие навыка с указанным именем
// (без учёта регистра)
func HasSkillNamed(skills []Skill, name string) bool {
	for _, s := range skills {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// FindSkillByID находит навык по идентификатору; возвращает nil, если
// навыка нет в списке
func FindSkillByID(skills []Skill, id uuid.UUID) *Skill {
	for i := range skills {
		if skills[i].ID == id {
			return &skills[i]
		}
	}
	return nil
}
