package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации
	ErrValidationFailed = errors.New("validation failed")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrNicknameInvalid  = errors.New("nickname must be 2 to 32 characters")
	ErrInvalidScore     = errors.New("invalid match score")
	ErrInvalidStats     = errors.New("invalid player stats")
	ErrInvalidAvatar    = errors.New("avatar must be a jpeg, png or webp image up to 2 MB")

	// Ошибки аутентификации
	ErrInvalidCredentials = errors.New("invalid nickname or password")

	// Не найдено
	ErrPlayerNotFound    = errors.New("player not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrBPSessionNotFound = errors.New("ban/pick session not found")
	ErrMatchNotFound     = errors.New("match not found")

	// Конфликты
	ErrNicknameConflict = errors.New("nickname is already in use")
	ErrSteamIDConflict  = errors.New("steam id is already linked to another player")
	ErrAlreadyInRoom    = errors.New("player is already in another active room")

	// Недопустимое состояние
	ErrInvalidState       = errors.New("operation not allowed in the current state")
	ErrNotInRoom          = errors.New("player is not in this room")
	ErrMatchAlreadyClosed = errors.New("match is already finished")
	ErrNotOnTeam          = errors.New("player is not on the acting team")

	// Сбои внешних зависимостей, запрос можно повторить
	ErrUnavailable      = errors.New("service temporarily unavailable")
	ErrStorageDisabled  = errors.New("file storage is not configured")
	ErrConcurrentUpdate = errors.New("resource was modified concurrently, retry the request")
)
