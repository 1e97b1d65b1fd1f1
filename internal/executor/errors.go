package executor

import "errors"

// Ошибки executor'ов.
var (
	// ErrUnknownTaskKind — нет executor'а для данного типа задачи.
	ErrUnknownTaskKind = errors.New("unknown task kind")

	// ErrInvalidConfig — конфигурация задачи не проходит проверку.
	ErrInvalidConfig = errors.New("invalid task config")

	// ErrAPICall — вызов внешнего API завершился ошибкой.
	ErrAPICall = errors.New("api call failed")

	// ErrDataCheck — проверка данных не прошла.
	ErrDataCheck = errors.New("data check failed")

	// ErrDatabaseQuery — запрос к БД завершился ошибкой.
	ErrDatabaseQuery = errors.New("database query failed")

	// ErrConnectionNotFound — именованное подключение не зарегистрировано.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrConditionNotMet — условие conditional-задачи не выполнено.
	ErrConditionNotMet = errors.New("condition not met")

	// ErrNoBrowserDriver — драйвер браузера не сконфигурирован.
	ErrNoBrowserDriver = errors.New("no browser driver configured")
)
