package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены
	// (например, приглашение с неизвестным токеном).
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда токен сессии истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния
	// (например, приглашение уже принято другим пользователем).
	ErrConflict = errors.New("resource state conflict")

	// ErrUniqueViolation используется, когда хранилище отклонило запись из-за
	// уникального индекса (гонка конкурентных логинов с одним external id).
	// Вызывающая сторона может повторить запрос как обычный lookup.
	ErrUniqueViolation = errors.New("unique constraint violation")
)
