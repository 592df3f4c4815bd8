// Package ratelimit ограничивает частоту изменяющих запросов на пользователя или IP.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/UkralStul/matjip-discussion/internal/auth"
)

// Limiter решает, можно ли пропустить ещё один запрос с ключом key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Policy - скорость пополнения и ёмкость ведра.
type Policy struct {
	RPS   float64
	Burst int
}

const idleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local - ведро токенов в памяти процесса.
type Local struct {
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*entry
	lastSweep time.Time
}

func NewLocal(policy Policy) *Local {
	return &Local{
		policy:  policy,
		now:     time.Now,
		buckets: make(map[string]*entry),
	}
}

func (l *Local) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > idleTTL {
		for k, e := range l.buckets {
			if now.Sub(e.lastSeen) > idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.policy.RPS), l.policy.Burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// KeyFor - пользователь, если он известен, иначе адрес клиента.
func KeyFor(r *http.Request) string {
	if p := auth.FromContext(r.Context()); p != nil {
		return "user:" + p.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func readOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// Middleware ограничивает только изменяющие методы. Ошибка лимитера пропускает запрос.
func Middleware(l Limiter, log *slog.Logger, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || readOnly(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := l.Allow(r.Context(), KeyFor(r))
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
