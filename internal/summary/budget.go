package summary

import (
	"sync"
	"time"

	"aidigest/internal/logger"
)

// budget caps API requests per day. Zero or negative max means unlimited.
type budget struct {
	mu        sync.Mutex
	used      int
	max       int
	resetTime time.Time
}

func newBudget(max int) *budget {
	return &budget{max: max, resetTime: time.Now().Add(24 * time.Hour)}
}

// take consumes one request slot if available.
func (b *budget) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Now().After(b.resetTime) {
		b.used = 0
		b.resetTime = time.Now().Add(24 * time.Hour)
	}

	if b.max > 0 && b.used >= b.max {
		logger.Warn("AI request budget spent", "used", b.used, "max", b.max)
		return false
	}
	b.used++
	return true
}

func (b *budget) remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max <= 0 {
		return -1
	}
	left := b.max - b.used
	if left < 0 {
		left = 0
	}
	return left
}
