package swap

import "errors"

// Ошибки жизненного цикла предложения обмена. Обработчики транслируют
// их в HTTP-статусы: не найдено — 404, нет прав — 403, недопустимое
// состояние или данные — 400, конфликт — 409.
var (
	ErrSwapNotFound      = errors.New("предложение обмена не найдено")
	ErrRecipientNotFound = errors.New("получатель не найден")

	ErrNotRecipient     = errors.New("только получатель предложения может его принять или отклонить")
	ErrNotRequester     = errors.New("только отправитель предложения может его отменить")
	ErrNotParticipant   = errors.New("вы не являетесь участником этого обмена")
	ErrRecipientBanned  = errors.New("нельзя отправить предложение заблокированному пользователю")
	ErrRecipientPrivate = errors.New("нельзя отправить предложение пользователю с закрытым профилем")

	ErrNotPending   = errors.New("предложение уже не находится в ожидании")
	ErrNotAccepted  = errors.New("завершить можно только принятый обмен")
	ErrNotCompleted = errors.New("оставить отзыв можно только по завершённому обмену")

	ErrFeedbackExists   = errors.New("вы уже оставили отзыв по этому обмену")
	ErrActiveSwapExists = errors.New("между вами уже есть активное предложение обмена")
)

// ValidationError описывает ошибку входных данных
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
