package gateway

import (
	"context"

	"github.com/udisondev/gsgo/internal/model"
)

// AccountRepository определяет интерфейс для работы с аккаунтами.
// Используется для dependency injection в тестах.
type AccountRepository interface {
	// GetAccount возвращает аккаунт по логину.
	// Возвращает nil, nil если аккаунт не найден.
	GetAccount(ctx context.Context, login string) (*model.Account, error)

	// GetOrCreateAccount атомарно получает существующий или создаёт новый аккаунт.
	GetOrCreateAccount(ctx context.Context, login, passwordHash, ip string) (*model.Account, error)

	// UpdateLastLogin обновляет last_active, last_service и last_ip при успешном логине.
	UpdateLastLogin(ctx context.Context, login, service, ip string) error
}
