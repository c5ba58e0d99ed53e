package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden у пользователя нет доступа к ресурсу
	ErrForbidden = errors.New("forbidden")
)

// ValidationError неверные данные запроса (400)
type ValidationError struct {
	Field   string
	Message string
}

// Error реализует интерфейс error
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError создает ошибку валидации
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError не заданы обязательные секреты или настройки (500)
type ConfigurationError struct {
	Message string
}

// Error реализует интерфейс error
func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationError создает ошибку конфигурации
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

// SignatureError подпись вебхука не прошла проверку (400)
type SignatureError struct {
	Reason string
}

// Error реализует интерфейс error
func (e *SignatureError) Error() string {
	return "Webhook signature verification failed"
}

// ProviderError Square вернул неуспешный HTTP статус.
// StatusCode пробрасывается клиенту как есть.
type ProviderError struct {
	Service     string
	StatusCode  int
	Message     string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ProviderError) Error() string {
	return e.Message
}

// Unwrap возвращает оригинальную ошибку
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// Describe возвращает подробное описание для логов
func (e *ProviderError) Describe() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s error [%d]: %s: %v", e.Service, e.StatusCode, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s error [%d]: %s", e.Service, e.StatusCode, e.Message)
}

// NewProviderError создает ошибку провайдера
func NewProviderError(service string, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Service:     service,
		StatusCode:  statusCode,
		Message:     message,
		OriginalErr: err,
	}
}

// MalformedEventError тело вебхука не удалось разобрать (500)
type MalformedEventError struct {
	Reason      string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *MalformedEventError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("malformed webhook event: %s: %v", e.Reason, e.OriginalErr)
	}
	return "malformed webhook event: " + e.Reason
}

// Unwrap возвращает оригинальную ошибку
func (e *MalformedEventError) Unwrap() error {
	return e.OriginalErr
}

// NewMalformedEventError создает ошибку разбора события
func NewMalformedEventError(reason string, err error) *MalformedEventError {
	return &MalformedEventError{Reason: reason, OriginalErr: err}
}
