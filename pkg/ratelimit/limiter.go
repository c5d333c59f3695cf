package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - token bucket для вызовов API биржи.
//
// Ведро пополняется со скоростью rate токенов в секунду до ёмкости burst,
// каждый вызов забирает один токен.
//
//	limiter := NewRateLimiter(10, 20)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
type RateLimiter struct {
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewRateLimiter создаёт limiter. Нулевые значения заменяются дефолтами:
// 10 req/sec, burst = 2x rate.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = rate * 2
	}
	if burst < rate {
		burst = rate
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// refill вызывается под lock'ом
func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed > 0 {
		rl.tokens += elapsed * rl.rate
		if rl.tokens > rl.burst {
			rl.tokens = rl.burst
		}
	}
	rl.lastRefill = now
}

// take пытается забрать токен и возвращает время ожидания, если токенов нет
func (rl *RateLimiter) take() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true, 0
	}
	return false, time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
}

// Wait блокирует до получения токена или отмены контекста
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		ok, wait := rl.take()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// ============================================================
// Registry - общие лимиты по биржам
// ============================================================

// Registry хранит по одному limiter'у на биржу.
// Клиенты бирж создаются на каждого пользователя, а лимит биржи общий
// для всего процесса, поэтому limiter берётся из реестра по имени.
type Registry struct {
	rate     float64
	burst    float64
	limiters map[string]*RateLimiter
	mu       sync.Mutex
}

// NewRegistry создаёт реестр с лимитами по умолчанию для всех бирж
func NewRegistry(rate, burst float64) *Registry {
	return &Registry{
		rate:     rate,
		burst:    burst,
		limiters: make(map[string]*RateLimiter),
	}
}

// Get возвращает limiter биржи, создавая его при первом обращении
func (r *Registry) Get(venue string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[venue]
	if !ok {
		l = NewRateLimiter(r.rate, r.burst)
		r.limiters[venue] = l
	}
	return l
}

// Wait ожидает токен указанной биржи. nil-реестр не ограничивает.
func (r *Registry) Wait(ctx context.Context, venue string) error {
	if r == nil {
		return nil
	}
	return r.Get(venue).Wait(ctx)
}
