package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dgenny/conecta/internal/pkg/ratelimiter"
)

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu      sync.Mutex
	limit   int
	span    time.Duration
	windows map[string]*window
	now     func() time.Time
}

func New(limit int, span time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		span:    span,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *Limiter) Allow(_ context.Context, key string) (ratelimiter.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.span)}
		l.sweep(now)
		return ratelimiter.Decision{Allowed: true, Remaining: l.limit - 1}, nil
	}

	w.count++
	remaining := l.limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return ratelimiter.Decision{
		Allowed:    w.count <= l.limit,
		Remaining:  remaining,
		RetryAfter: w.resetAt.Sub(now),
	}, nil
}

// sweep descarta janelas expiradas aproveitando o lock já adquirido;
// dispensa goroutine de limpeza no volume de um estande.
func (l *Limiter) sweep(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
