package repository

import (
	"errors"

	"github.com/ditch-app/billing-service/internal/domain"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = domain.ErrNotFound

	// ErrInvalidData неверные данные
	ErrInvalidData = errors.New("invalid data")
)
