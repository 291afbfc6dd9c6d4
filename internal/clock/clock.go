// Package clock предоставляет источник текущего времени, который можно подменить в тестах.
package clock

import (
	"sync"
	"time"
)

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// System использует системные часы.
type System struct{}

// Now возвращает текущее время в UTC.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed возвращает заданное время, пока его не сдвинут.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed создаёт часы, остановленные на t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Now возвращает зафиксированное время.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set переставляет часы на t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance сдвигает часы на d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
