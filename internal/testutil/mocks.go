package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/udisondev/gsgo/internal/model"
)

// MockAccounts — in-memory имплементация AccountRepository для unit тестов.
// Не требует реальной базы.
type MockAccounts struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account

	// Err, если задан, возвращается всеми методами.
	Err error
}

// NewMockAccounts создаёт пустой MockAccounts.
func NewMockAccounts() *MockAccounts {
	return &MockAccounts{
		accounts: make(map[string]*model.Account),
	}
}

// GetAccount получает аккаунт по логину или nil, nil.
func (m *MockAccounts) GetAccount(_ context.Context, login string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	acc, exists := m.accounts[strings.ToLower(login)]
	if !exists {
		return nil, nil
	}
	// копия, чтобы избежать гонок
	cp := *acc
	return &cp, nil
}

// CreateAccount создаёт новый аккаунт.
func (m *MockAccounts) CreateAccount(_ context.Context, login, passwordHash, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	login = strings.ToLower(login)
	if _, exists := m.accounts[login]; exists {
		return fmt.Errorf("account %q already exists", login)
	}
	m.accounts[login] = &model.Account{
		Login:        login,
		PasswordHash: passwordHash,
		LastIP:       ip,
		LastActive:   time.Now(),
	}
	return nil
}

// GetOrCreateAccount получает или создаёт аккаунт.
func (m *MockAccounts) GetOrCreateAccount(_ context.Context, login, passwordHash, ip string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	login = strings.ToLower(login)
	acc, exists := m.accounts[login]
	if !exists {
		acc = &model.Account{
			Login:        login,
			PasswordHash: passwordHash,
			LastIP:       ip,
			LastActive:   time.Now(),
		}
		m.accounts[login] = acc
	}
	cp := *acc
	return &cp, nil
}

// UpdateLastLogin обновляет last_service и last_ip.
func (m *MockAccounts) UpdateLastLogin(_ context.Context, login, service, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	acc, exists := m.accounts[strings.ToLower(login)]
	if !exists {
		return nil
	}
	acc.LastService = service
	acc.LastIP = ip
	acc.LastActive = time.Now()
	return nil
}

// BanAccount банит аккаунт.
func (m *MockAccounts) BanAccount(login string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, exists := m.accounts[strings.ToLower(login)]; exists {
		acc.AccessLevel = -100
	}
}

// Count возвращает количество аккаунтов.
func (m *MockAccounts) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
