package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

func TestRemoveSkillByID(t *testing.T) {
	guitar := models.Skill{ID: uuid.New(), Name: "Гитара"}
	cooking := models.Skill{ID: uuid.New(), Name: "Кулинария"}
	skills := []models.Skill{guitar, cooking}

	t.Run("удаление существующего навыка", func(t *testing.T) {
		result, removed := removeSkillByID(skills, guitar.ID)
		assert.True(t, removed)
		require.Len(t, result, 1)
		assert.Equal(t, cooking.ID, result[0].ID)
	})

	t.Run("навык не найден", func(t *testing.T) {
		list := []models.Skill{guitar, cooking}
		result, removed := removeSkillByID(list, uuid.New())
		assert.False(t, removed)
		assert.Len(t, result, 2)
	})

	t.Run("пустой список", func(t *testing.T) {
		result, removed := removeSkillByID(nil, guitar.ID)
		assert.False(t, removed)
		assert.Empty(t, result)
	})
}

func TestValidSkillLevel(t *testing.T) {
	for _, level := range []string{
		models.SkillLevelBeginner, models.SkillLevelIntermediate,
		models.SkillLevelAdvanced, models.SkillLevelExpert,
	} {
		assert.True(t, validSkillLevel(level), level)
	}
	assert.False(t, validSkillLevel("Master"))
	assert.False(t, validSkillLevel(""))
}

func TestValidSkillPriority(t *testing.T) {
	for _, priority := range []string{
		models.SkillPriorityLow, models.SkillPriorityMedium, models.SkillPriorityHigh,
	} {
		assert.True(t, validSkillPriority(priority), priority)
	}
	assert.False(t, validSkillPriority("Urgent"))
	assert.False(t, validSkillPriority(""))
}
