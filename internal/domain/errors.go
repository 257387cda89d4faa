package domain

import "errors"

// Ошибки доменного уровня. Хендлеры транслируют их в HTTP статусы,
// при этом на неаутентифицированной поверхности выдачи файлов все
// токен-ошибки схлопываются в один общий ответ.
var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("access denied")

	ErrTokenInvalid         = errors.New("token not found")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenAlreadyUsed     = errors.New("token already used")
	ErrTokenPurposeMismatch = errors.New("token purpose mismatch")

	ErrInvalidFolderName   = errors.New("invalid folder name")
	ErrDuplicateFolderName = errors.New("folder with this name already exists")
	ErrCyclicMove          = errors.New("cannot move folder into its own subtree")
)

// IsTokenError сообщает, относится ли ошибка к проверке delivery-токена.
// Используется шлюзом выдачи, чтобы не раскрывать причину отказа.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenAlreadyUsed) ||
		errors.Is(err, ErrTokenPurposeMismatch)
}
