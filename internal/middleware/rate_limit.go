package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter придерживает прокси геокодирования: публичный Nominatim
// требует честного темпа запросов, а поиск дергается на каждый Enter в
// строке поиска. Скользящее окно на клиента.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}

	go func() {
		for range time.Tick(5 * time.Minute) {
			rl.sweep()
		}
	}()

	return rl
}

// allow регистрирует запрос клиента и сообщает, укладывается ли тот в окно.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := trimBefore(rl.seen[key], time.Now().Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.seen[key] = recent
		return false
	}
	rl.seen[key] = append(recent, time.Now())
	return true
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, stamps := range rl.seen {
		recent := trimBefore(stamps, cutoff)
		if len(recent) == 0 {
			delete(rl.seen, key)
			continue
		}
		rl.seen[key] = recent
	}
}

func trimBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, ts := range stamps {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	return recent
}
