package user

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

// skillKind различает списки предлагаемых и желаемых навыков
type skillKind string

const (
	skillKindOffered skillKind = "offered"
	skillKindWanted  skillKind = "wanted"
)

// skillInput — тело запроса на добавление или изменение навыка
type skillInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Level       *string `json:"level"`
	Priority    *string `json:"priority"`
}

// AddSkillOffered добавляет навык в список предлагаемых
func (s *UserService) AddSkillOffered(c fiber.Ctx) error {
	return s.addSkill(c, skillKindOffered)
}

// AddSkillWanted добавляет навык в список желаемых
func (s *UserService) AddSkillWanted(c fiber.Ctx) error {
	return s.addSkill(c, skillKindWanted)
}

// UpdateSkillOffered изменяет навык из списка предлагаемых
func (s *UserService) UpdateSkillOffered(c fiber.Ctx) error {
	return s.updateSkill(c, skillKindOffered)
}

// UpdateSkillWanted изменяет навык из списка желаемых
func (s *UserService) UpdateSkillWanted(c fiber.Ctx) error {
	return s.updateSkill(c, skillKindWanted)
}

// DeleteSkillOffered удаляет навык из списка предлагаемых
func (s *UserService) DeleteSkillOffered(c fiber.Ctx) error {
	return s.deleteSkill(c, skillKindOffered)
}

// DeleteSkillWanted удаляет навык из списка желаемых
func (s *UserService) DeleteSkillWanted(c fiber.Ctx) error {
	return s.deleteSkill(c, skillKindWanted)
}

// addSkill добавляет навык в указанный список пользователя. Дубликаты
// имён (без учёта регистра) отклоняются.
func (s *UserService) addSkill(c fiber.Ctx, kind skillKind) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var input skillInput
	if err := c.Bind().Body(&input); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	skill := models.Skill{ID: uuid.New()}
	if input.Name != nil {
		skill.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		skill.Description = strings.TrimSpace(*input.Description)
	}

	if skill.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не указано имя навыка"})
	}
	if utf8.RuneCountInString(skill.Description) > 500 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Описание навыка не должно превышать 500 символов"})
	}

	if kind == skillKindOffered {
		skill.Level = models.SkillLevelIntermediate
		if input.Level != nil {
			if !validSkillLevel(*input.Level) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый уровень навыка"})
			}
			skill.Level = *input.Level
		}
	} else {
		skill.Priority = models.SkillPriorityMedium
		if input.Priority != nil {
			if !validSkillPriority(*input.Priority) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый приоритет навыка"})
			}
			skill.Priority = *input.Priority
		}
	}

	list := s.skillList(user, kind)
	if models.HasSkillNamed(list, skill.Name) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Такой навык уже добавлен"})
	}

	list = append(list, skill)
	if err := s.saveSkills(c, user, kind, list); err != nil {
		return err
	}

	return c.JSON(s.skillsResponse(user, kind, "Навык успешно добавлен"))
}

// updateSkill изменяет навык с указанным ID
func (s *UserService) updateSkill(c fiber.Ctx, kind skillKind) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	skillID, err := uuid.Parse(c.Params("skillId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID навыка"})
	}

	var input skillInput
	if err := c.Bind().Body(&input); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	list := s.skillList(user, kind)
	skill := models.FindSkillByID(list, skillID)
	if skill == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Навык не найден"})
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Имя навыка не может быть пустым"})
		}
		// Переименование не должно создавать дубликат
		if !strings.EqualFold(skill.Name, name) && models.HasSkillNamed(list, name) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Такой навык уже добавлен"})
		}
		skill.Name = name
	}

	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if utf8.RuneCountInString(description) > 500 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Описание навыка не должно превышать 500 символов"})
		}
		skill.Description = description
	}

	if kind == skillKindOffered && input.Level != nil {
		if !validSkillLevel(*input.Level) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый уровень навыка"})
		}
		skill.Level = *input.Level
	}

	if kind == skillKindWanted && input.Priority != nil {
		if !validSkillPriority(*input.Priority) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый приоритет навыка"})
		}
		skill.Priority = *input.Priority
	}

	if err := s.saveSkills(c, user, kind, list); err != nil {
		return err
	}

	return c.JSON(s.skillsResponse(user, kind, "Навык успешно обновлён"))
}

// deleteSkill удаляет навык с указанным ID
func (s *UserService) deleteSkill(c fiber.Ctx, kind skillKind) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	skillID, err := uuid.Parse(c.Params("skillId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID навыка"})
	}

	list, removed := removeSkillByID(s.skillList(user, kind), skillID)
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Навык не найден"})
	}

	if err := s.saveSkills(c, user, kind, list); err != nil {
		return err
	}

	return c.JSON(s.skillsResponse(user, kind, "Навык успешно удалён"))
}

// skillList возвращает нужный список навыков пользователя
func (s *UserService) skillList(user *models.User, kind skillKind) []models.Skill {
	if kind == skillKindOffered {
		return user.SkillsOffered
	}
	return user.SkillsWanted
}

// saveSkills сохраняет обновлённый список навыков; при ошибке сразу
// пишет ответ клиенту
func (s *UserService) saveSkills(c fiber.Ctx, user *models.User, kind skillKind, list []models.Skill) error {
	if kind == skillKindOffered {
		user.SkillsOffered = list
	} else {
		user.SkillsWanted = list
	}

	if err := s.users.UpdateSkills(c.Context(), user.ID, user.SkillsOffered, user.SkillsWanted); err != nil {
		log.Printf("Ошибка обновления навыков %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления навыков"})
	}

	return nil
}

// skillsResponse формирует ответ с актуальным списком навыков
func (s *UserService) skillsResponse(user *models.User, kind skillKind, message string) fiber.Map {
	response := fiber.Map{
		"success": true,
		"message": message,
	}
	if kind == skillKindOffered {
		response["skills_offered"] = user.SkillsOffered
	} else {
		response["skills_wanted"] = user.SkillsWanted
	}
	return response
}

// removeSkillByID возвращает список без навыка с указанным ID
func removeSkillByID(skills []models.Skill, id uuid.UUID) ([]models.Skill, bool) {
	for i := range skills {
		if skills[i].ID == id {
			return append(skills[:i], skills[i+1:]...), true
		}
	}
	return skills, false
}

// validSkillLevel проверяет уровень владения навыком
func validSkillLevel(level string) bool {
	switch level {
	case models.SkillLevelBeginner, models.SkillLevelIntermediate,
		models.SkillLevelAdvanced, models.SkillLevelExpert:
		return true
	}
	return false
}

// validSkillPriority проверяет приоритет желаемого навыка
func validSkillPriority(priority string) bool {
	switch priority {
	case models.SkillPriorityLow, models.SkillPriorityMedium, models.SkillPriorityHigh:
		return true
	}
	return false
}
