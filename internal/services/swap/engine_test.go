package swap

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/storage"
)

// fakeUserRepo хранит пользователей в памяти для тестов движка
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) UpsertTelegramUser(_ context.Context, _ storage.TelegramProfile) (*models.User, error) {
	return nil, storage.ErrNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) UpdateSkills(_ context.Context, userID uuid.UUID, offered, wanted []models.Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.SkillsOffered = offered
	user.SkillsWanted = wanted
	return nil
}

func (r *fakeUserRepo) UpdateAvailability(_ context.Context, userID uuid.UUID, availability models.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.Availability = availability
	return nil
}

func (r *fakeUserRepo) SetBanned(_ context.Context, userID uuid.UUID, banned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.IsBanned = banned
	return nil
}

func (r *fakeUserRepo) Browse(_ context.Context, _ storage.BrowseParams) ([]models.User, int, error) {
	return nil, 0, nil
}

// fakeSwapRepo хранит предложения обмена в памяти. Обновления рейтингов
// применяются к fakeUserRepo так же, как postgres-реализация применяет
// их в одной транзакции с отзывом.
type fakeSwapRepo struct {
	mu    sync.Mutex
	swaps map[uuid.UUID]*models.Swap
	users *fakeUserRepo
}

func newFakeSwapRepo(users *fakeUserRepo) *fakeSwapRepo {
	return &fakeSwapRepo{
		swaps: make(map[uuid.UUID]*models.Swap),
		users: users,
	}
}

func (r *fakeSwapRepo) Create(_ context.Context, swap *models.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *swap
	r.swaps[swap.ID] = &copied
	return nil
}

func (r *fakeSwapRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	swap, ok := r.swaps[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *swap
	return &copied, nil
}

func (r *fakeSwapRepo) ListForUser(_ context.Context, userID uuid.UUID, status models.SwapStatus, limit, offset int) ([]models.Swap, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Swap
	for _, swap := range r.swaps {
		if !swap.IsParticipant(userID) {
			continue
		}
		if status != "" && swap.Status != status {
			continue
		}
		matched = append(matched, *swap)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *fakeSwapRepo) ExistsActiveBetween(_ context.Context, userA, userB uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, swap := range r.swaps {
		if swap.Status != models.SwapStatusPending && swap.Status != models.SwapStatusAccepted {
			continue
		}
		direct := swap.RequesterID == userA && swap.RecipientID == userB
		reverse := swap.RequesterID == userB && swap.RecipientID == userA
		if direct || reverse {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSwapRepo) Transition(_ context.Context, id uuid.UUID, from, to models.SwapStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	swap, ok := r.swaps[id]
	if !ok {
		return storage.ErrNotFound
	}
	if swap.Status != from {
		return storage.ErrStaleStatus
	}
	swap.Status = to
	stampTransition(swap, to, at)
	return nil
}

func (r *fakeSwapRepo) UpdateFeedback(_ context.Context, id uuid.UUID, mutate func(*models.Swap) ([]storage.RatingUpdate, error)) (*models.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	swap, ok := r.swaps[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copied := *swap
	updates, err := mutate(&copied)
	if err != nil {
		return nil, err
	}
	r.swaps[id] = &copied

	for _, update := range updates {
		user, ok := r.users.users[update.UserID]
		if !ok {
			return nil, storage.ErrNotFound
		}
		user.Rating = user.Rating.Add(update.Rating)
	}

	result := copied
	return &result, nil
}

// testUser создает пользователя с открытым профилем и набором
// предлагаемых навыков
func testUser(name string, skills ...string) *models.User {
	user := &models.User{
		ID:       uuid.New(),
		Name:     name,
		IsPublic: true,
		Role:     models.RoleUser,
	}
	for _, skill := range skills {
		user.SkillsOffered = append(user.SkillsOffered, models.Skill{
			ID:   uuid.New(),
			Name: skill,
		})
	}
	return user
}

type engineFixture struct {
	engine    *Engine
	users     *fakeUserRepo
	swaps     *fakeSwapRepo
	requester *models.User
	recipient *models.User
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	requester := testUser("Алиса", "Гитара")
	recipient := testUser("Борис", "Кулинария")

	users := newFakeUserRepo(requester, recipient)
	swaps := newFakeSwapRepo(users)

	return &engineFixture{
		engine:    NewEngine(swaps, users),
		users:     users,
		swaps:     swaps,
		requester: requester,
		recipient: recipient,
	}
}

func (f *engineFixture) createParams() CreateSwapParams {
	return CreateSwapParams{
		RequesterID:    f.requester.ID,
		RecipientID:    f.recipient.ID,
		RequestedSkill: models.SkillRef{Name: "Кулинария"},
		OfferedSkill:   models.SkillRef{Name: "Гитара"},
		Message:        "Научу играть на гитаре в обмен на уроки кулинарии",
	}
}

// mustCreate создает предложение обмена и опционально доводит его до
// нужного статуса
func (f *engineFixture) mustCreate(t *testing.T, status models.SwapStatus) *models.Swap {
	t.Helper()
	ctx := context.Background()

	swap, err := f.engine.Create(ctx, f.createParams())
	require.NoError(t, err)

	switch status {
	case models.SwapStatusAccepted:
		swap, err = f.engine.Accept(ctx, swap.ID, f.recipient.ID)
		require.NoError(t, err)
	case models.SwapStatusCompleted:
		_, err = f.engine.Accept(ctx, swap.ID, f.recipient.ID)
		require.NoError(t, err)
		swap, err = f.engine.Complete(ctx, swap.ID, f.requester.ID)
		require.NoError(t, err)
	}
	return swap
}

func TestCreateSwap(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	swap, err := f.engine.Create(ctx, f.createParams())
	require.NoError(t, err)

	assert.Equal(t, models.SwapStatusPending, swap.Status)
	assert.Equal(t, f.requester.ID, swap.RequesterID)
	assert.Equal(t, f.recipient.ID, swap.RecipientID)
	assert.Equal(t, "Кулинария", swap.RequestedSkill.Name)
	assert.Equal(t, "Гитара", swap.OfferedSkill.Name)
	assert.False(t, swap.CreatedAt.IsZero())
	assert.Nil(t, swap.AcceptedAt)

	// Карточки сторон прикреплены к ответу
	require.NotNil(t, swap.Requester)
	assert.Equal(t, "Алиса", swap.Requester.Name)
	require.NotNil(t, swap.Recipient)
	assert.Equal(t, "Борис", swap.Recipient.Name)
}

func TestCreateSwap_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("самому себе", func(t *testing.T) {
		f := newEngineFixture(t)
		params := f.createParams()
		params.RecipientID = params.RequesterID

		_, err := f.engine.Create(ctx, params)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("пустое имя навыка", func(t *testing.T) {
		f := newEngineFixture(t)
		params := f.createParams()
		params.RequestedSkill.Name = "   "

		_, err := f.engine.Create(ctx, params)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("слишком длинное сообщение", func(t *testing.T) {
		f := newEngineFixture(t)
		params := f.createParams()
		params.Message = string(make([]rune, 1001))

		_, err := f.engine.Create(ctx, params)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("отправитель не владеет предлагаемым навыком", func(t *testing.T) {
		f := newEngineFixture(t)
		params := f.createParams()
		params.OfferedSkill.Name = "Фотография"

		_, err := f.engine.Create(ctx, params)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("у получателя нет запрашиваемого навыка", func(t *testing.T) {
		f := newEngineFixture(t)
		params := f.createParams()
		params.RequestedSkill.Name = "Фотография"

		_, err := f.engine.Create(ctx, params)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("имена навыков сравниваются без учета регистра", func(t *testing.T) {
		f := newEngineFixture(t)
		params := f.createParams()
		params.RequestedSkill.Name = "кулинария"
		params.OfferedSkill.Name = "ГИТАРА"

		_, err := f.engine.Create(ctx, params)
		require.NoError(t, err)
	})

	t.Run("получатель не найден", func(t *testing.T) {
		f := newEngineFixture(t)
		params := f.createParams()
		params.RecipientID = uuid.New()

		_, err := f.engine.Create(ctx, params)
		require.ErrorIs(t, err, ErrRecipientNotFound)
	})

	t.Run("получатель заблокирован", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.users.SetBanned(ctx, f.recipient.ID, true))

		_, err := f.engine.Create(ctx, f.createParams())
		require.ErrorIs(t, err, ErrRecipientBanned)
	})

	t.Run("профиль получателя закрыт", func(t *testing.T) {
		f := newEngineFixture(t)
		f.recipient.IsPublic = false

		_, err := f.engine.Create(ctx, f.createParams())
		require.ErrorIs(t, err, ErrRecipientPrivate)
	})
}

func TestCreateSwap_DuplicateActive(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, f.createParams())
	require.NoError(t, err)

	// Повторное предложение той же паре отклоняется
	_, err = f.engine.Create(ctx, f.createParams())
	require.ErrorIs(t, err, ErrActiveSwapExists)

	// И встречное предложение тоже: пара проверяется без учета направления
	reverse := CreateSwapParams{
		RequesterID:    f.recipient.ID,
		RecipientID:    f.requester.ID,
		RequestedSkill: models.SkillRef{Name: "Гитара"},
		OfferedSkill:   models.SkillRef{Name: "Кулинария"},
	}
	_, err = f.engine.Create(ctx, reverse)
	require.ErrorIs(t, err, ErrActiveSwapExists)
}

func TestSwapLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	swap, err := f.engine.Create(ctx, f.createParams())
	require.NoError(t, err)

	swap, err = f.engine.Accept(ctx, swap.ID, f.recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusAccepted, swap.Status)
	require.NotNil(t, swap.AcceptedAt)

	swap, err = f.engine.Complete(ctx, swap.ID, f.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusCompleted, swap.Status)
	require.NotNil(t, swap.CompletedAt)
	assert.NotNil(t, swap.AcceptedAt)
}

func TestTransition_Authorization(t *testing.T) {
	ctx := context.Background()
	stranger := uuid.New()

	t.Run("принять может только получатель", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusPending)

		_, err := f.engine.Accept(ctx, swap.ID, f.requester.ID)
		require.ErrorIs(t, err, ErrNotRecipient)
	})

	t.Run("отклонить может только получатель", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusPending)

		_, err := f.engine.Reject(ctx, swap.ID, f.requester.ID)
		require.ErrorIs(t, err, ErrNotRecipient)
	})

	t.Run("отменить может только отправитель", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusPending)

		_, err := f.engine.Cancel(ctx, swap.ID, f.recipient.ID)
		require.ErrorIs(t, err, ErrNotRequester)
	})

	t.Run("посторонний получает отказ даже на терминальном обмене", func(t *testing.T) {
		// Проверка прав идет раньше проверки состояния: посторонний
		// не должен по ошибке узнавать статус чужого обмена
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusCompleted)

		_, err := f.engine.Complete(ctx, swap.ID, stranger)
		require.ErrorIs(t, err, ErrNotParticipant)

		_, err = f.engine.SubmitFeedback(ctx, swap.ID, stranger, 5, "")
		require.ErrorIs(t, err, ErrNotParticipant)

		_, err = f.engine.GetByID(ctx, swap.ID, stranger)
		require.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("несуществующий обмен", func(t *testing.T) {
		f := newEngineFixture(t)

		_, err := f.engine.Accept(ctx, uuid.New(), f.recipient.ID)
		require.ErrorIs(t, err, ErrSwapNotFound)
	})
}

func TestTransition_InvalidState(t *testing.T) {
	ctx := context.Background()

	t.Run("повторное принятие", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusAccepted)

		_, err := f.engine.Accept(ctx, swap.ID, f.recipient.ID)
		require.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("отмена после принятия", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusAccepted)

		_, err := f.engine.Cancel(ctx, swap.ID, f.requester.ID)
		require.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("завершение без принятия", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusPending)

		_, err := f.engine.Complete(ctx, swap.ID, f.requester.ID)
		require.ErrorIs(t, err, ErrNotAccepted)
	})

	t.Run("повторное завершение", func(t *testing.T) {
		// Первый вызов завершает обмен, второй получает ошибку
		// состояния, а не повторяет переход
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusAccepted)

		_, err := f.engine.Complete(ctx, swap.ID, f.requester.ID)
		require.NoError(t, err)

		_, err = f.engine.Complete(ctx, swap.ID, f.recipient.ID)
		require.ErrorIs(t, err, ErrNotAccepted)
	})

	t.Run("отклонение после отклонения", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusPending)

		_, err := f.engine.Reject(ctx, swap.ID, f.recipient.ID)
		require.NoError(t, err)

		_, err = f.engine.Reject(ctx, swap.ID, f.recipient.ID)
		require.ErrorIs(t, err, ErrNotPending)
	})
}

func TestSubmitFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("до завершения обмена", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusAccepted)

		_, err := f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 5, "")
		require.ErrorIs(t, err, ErrNotCompleted)
	})

	t.Run("недопустимая оценка", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusCompleted)

		var vErr *ValidationError
		_, err := f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 0, "")
		require.ErrorAs(t, err, &vErr)

		_, err = f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 6, "")
		require.ErrorAs(t, err, &vErr)

		_, err = f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 4, string(make([]rune, 501)))
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("первый отзыв не меняет рейтинги", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusCompleted)

		updated, err := f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 5, "Отличный обмен")
		require.NoError(t, err)

		require.NotNil(t, updated.Feedback.RequesterRating)
		assert.Equal(t, 5, *updated.Feedback.RequesterRating)
		assert.Equal(t, "Отличный обмен", updated.Feedback.RequesterComment)
		assert.Nil(t, updated.Feedback.RecipientRating)

		// Агрегация ждет второй стороны
		assert.Equal(t, models.Rating{}, f.requester.Rating)
		assert.Equal(t, models.Rating{}, f.recipient.Rating)
	})

	t.Run("второй отзыв пересчитывает рейтинги обеих сторон", func(t *testing.T) {
		f := newEngineFixture(t)
		// У получателя уже накоплен рейтинг 4.0 из двух оценок
		f.recipient.Rating = models.Rating{Average: 4.0, Count: 2}

		swap := f.mustCreate(t, models.SwapStatusCompleted)

		_, err := f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 5, "")
		require.NoError(t, err)

		updated, err := f.engine.SubmitFeedback(ctx, swap.ID, f.recipient.ID, 3, "Нормально")
		require.NoError(t, err)
		assert.True(t, updated.Feedback.BothPresent())

		// Рейтинг получателя обновлен оценкой отправителя: (4*2+5)/3
		assert.InDelta(t, 13.0/3.0, f.recipient.Rating.Average, 1e-9)
		assert.Equal(t, 3, f.recipient.Rating.Count)

		// Рейтинг отправителя обновлен оценкой получателя
		assert.InDelta(t, 3.0, f.requester.Rating.Average, 1e-9)
		assert.Equal(t, 1, f.requester.Rating.Count)
	})

	t.Run("отзыв записывается ровно один раз", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusCompleted)

		_, err := f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 5, "")
		require.NoError(t, err)

		_, err = f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 1, "Передумал")
		require.ErrorIs(t, err, ErrFeedbackExists)

		// Сохраненная оценка не изменилась
		stored, err := f.swaps.GetByID(ctx, swap.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Feedback.RequesterRating)
		assert.Equal(t, 5, *stored.Feedback.RequesterRating)
	})

	t.Run("повторный отзыв после агрегации не трогает рейтинги", func(t *testing.T) {
		f := newEngineFixture(t)
		swap := f.mustCreate(t, models.SwapStatusCompleted)

		_, err := f.engine.SubmitFeedback(ctx, swap.ID, f.requester.ID, 5, "")
		require.NoError(t, err)
		_, err = f.engine.SubmitFeedback(ctx, swap.ID, f.recipient.ID, 4, "")
		require.NoError(t, err)

		before := f.recipient.Rating

		_, err = f.engine.SubmitFeedback(ctx, swap.ID, f.recipient.ID, 1, "")
		require.ErrorIs(t, err, ErrFeedbackExists)
		assert.Equal(t, before, f.recipient.Rating)
	})
}

func TestListMine(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first := f.mustCreate(t, models.SwapStatusPending)
	_, err := f.engine.Reject(ctx, first.ID, f.recipient.ID)
	require.NoError(t, err)

	// После отклонения пара свободна для нового предложения
	second := f.mustCreate(t, models.SwapStatusPending)

	t.Run("без фильтра", func(t *testing.T) {
		swaps, total, err := f.engine.ListMine(ctx, f.requester.ID, "", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, swaps, 2)
	})

	t.Run("фильтр по статусу", func(t *testing.T) {
		swaps, total, err := f.engine.ListMine(ctx, f.requester.ID, models.SwapStatusPending, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, swaps, 1)
		assert.Equal(t, second.ID, swaps[0].ID)
	})

	t.Run("недопустимый статус", func(t *testing.T) {
		var vErr *ValidationError
		_, _, err := f.engine.ListMine(ctx, f.requester.ID, "unknown", 10, 0)
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("пагинация", func(t *testing.T) {
		swaps, total, err := f.engine.ListMine(ctx, f.requester.ID, "", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, swaps, 1)
	})

	t.Run("посторонний видит пустой список", func(t *testing.T) {
		swaps, total, err := f.engine.ListMine(ctx, uuid.New(), "", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, swaps)
	})
}

func TestGetByID(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	swap := f.mustCreate(t, models.SwapStatusPending)

	got, err := f.engine.GetByID(ctx, swap.ID, f.recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, swap.ID, got.ID)
	require.NotNil(t, got.Requester)
	assert.Equal(t, f.requester.ID, got.Requester.ID)

	_, err = f.engine.GetByID(ctx, uuid.New(), f.recipient.ID)
	require.ErrorIs(t, err, ErrSwapNotFound)
}
