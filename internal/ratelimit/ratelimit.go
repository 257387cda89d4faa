package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store выдает решение "пропустить или нет" для ключа (обычно IP).
// Хранилище инжектируется: для одного инстанса достаточно памяти
// процесса, для нескольких подставляется разделяемое хранилище.
type Store interface {
	Allow(key string) bool
}

// MemoryStore хранит limiter на ключ в памяти процесса
type MemoryStore struct {
	mu       sync.Mutex
	limiters map[string]*entry

	limit rate.Limit
	burst int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryStore(rps float64, burst int) *MemoryStore {
	return &MemoryStore{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (s *MemoryStore) Allow(key string) bool {
	s.mu.Lock()
	e, ok := s.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = e
	}
	e.lastSeen = time.Now()
	s.mu.Unlock()

	return e.limiter.Allow()
}

// Cleanup удаляет ключи, не появлявшиеся дольше maxIdle.
// Вызывается фоновой задачей из main.
func (s *MemoryStore) Cleanup(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for key, e := range s.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

// clientKey извлекает клиентский IP запроса
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware ограничивает частоту запросов по клиентскому IP.
// Вешается на неаутентифицированные маршруты выдачи файлов.
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.Allow(clientKey(r)) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
