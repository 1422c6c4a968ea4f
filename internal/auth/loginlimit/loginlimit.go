// Package loginlimit contém o limitador de tentativas de login, por username.
// O estado fica atrás da interface Store para permitir trocar o mapa em memória
// por Redis quando o backend roda com mais de um processo.
package loginlimit

import (
	"context"
	"sync"
	"time"
)

const (
	// MaxAttempts failures inside the window block further logins.
	MaxAttempts = 5
	// Window is the lockout window; counters decay after it.
	Window = 15 * time.Minute
)

// Store tracks failed login attempts per username.
type Store interface {
	// Fail records a failed attempt and returns the current count.
	Fail(ctx context.Context, username string) (int, error)
	// Blocked reports whether the username reached MaxAttempts inside the window.
	Blocked(ctx context.Context, username string) (bool, error)
	// Reset clears the counter (called on successful login).
	Reset(ctx context.Context, username string) error
}

type entry struct {
	count int
	first time.Time
}

// Memory is the process-local Store. Counters reset on restart.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Fail(_ context.Context, username string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[username]
	if !ok || m.now().Sub(e.first) > Window {
		e = entry{first: m.now()}
	}
	e.count++
	m.entries[username] = e
	return e.count, nil
}

func (m *Memory) Blocked(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[username]
	if !ok {
		return false, nil
	}
	if m.now().Sub(e.first) > Window {
		delete(m.entries, username)
		return false, nil
	}
	return e.count >= MaxAttempts, nil
}

func (m *Memory) Reset(_ context.Context, username string) error {
	m.mu.Lock()
	delete(m.entries, username)
	m.mu.Unlock()
	return nil
}

// Disabled never blocks. Used outside production.
type Disabled struct{}

func (Disabled) Fail(context.Context, string) (int, error)     { return 0, nil }
func (Disabled) Blocked(context.Context, string) (bool, error) { return false, nil }
func (Disabled) Reset(context.Context, string) error           { return nil }
