// throttle.go — ограничение частоты отправок с публичных форм.
// Фиксированное окно на ключ (IP клиента) поверх expirable LRU:
// TTL записи задаётся при первом запросе окна и не продлевается.
package service

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Throttle — счётчик отправок по ключу в пределах окна.
// Каждый экземпляр сервиса считает отправки независимо.
type Throttle struct {
	limit   int
	mu      sync.Mutex
	windows *expirable.LRU[string, *throttleWindow]
}

type throttleWindow struct {
	count int
}

// NewThrottle создаёт ограничитель: не более limit отправок за window на ключ.
// limit <= 0 отключает ограничение. size — максимальное число отслеживаемых ключей.
func NewThrottle(limit int, window time.Duration, size int) *Throttle {
	if limit <= 0 {
		return &Throttle{}
	}
	return &Throttle{
		limit:   limit,
		windows: expirable.NewLRU[string, *throttleWindow](size, nil, window),
	}
}

// Allow учитывает отправку по ключу и сообщает, разрешена ли она.
func (t *Throttle) Allow(key string) bool {
	if t == nil || t.limit <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows.Get(key)
	if !ok {
		t.windows.Add(key, &throttleWindow{count: 1})
		return true
	}
	if w.count >= t.limit {
		return false
	}
	w.count++
	return true
}
