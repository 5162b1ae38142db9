package model

import "time"

// Account is a Game Service player account.
type Account struct {
	Login        string
	PasswordHash string
	AccessLevel  int
	// LastService is the gateway service of the last successful LOGIN.
	LastService string
	LastIP      string
	LastActive  time.Time
}

// Banned reports whether the account is locked out.
func (a *Account) Banned() bool {
	return a.AccessLevel < 0
}
