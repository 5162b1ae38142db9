package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/udisondev/gsgo/internal/constants"
)

// ContextWithTimeout создаёт context с timeout и отменяет его при завершении теста.
func ContextWithTimeout(t testing.TB, duration time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx
}

// ServeInBackground запускает serve в отдельной горутине. При завершении теста
// context отменяется и тест ждёт возврата serve.
func ServeInBackground(t testing.TB, serve func(ctx context.Context) error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve returned: %v", err)
			}
		case <-time.After(constants.TestServeStopTimeout):
			t.Errorf("serve did not stop after cancel")
		}
	})
}
