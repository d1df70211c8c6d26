package ratelimiter

import (
	"context"
	"time"
)

// Decision é o resultado de uma tentativa de admissão.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter protege o endpoint público de captura contra rajadas no
// estande (QR code compartilhado, tablets em loop). Janela fixa, limite
// configurado na construção.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
