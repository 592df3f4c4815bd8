package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/UkralStul/matjip-discussion/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenValidator - всё, что нужно middleware от валидатора.
type TokenValidator interface {
	Validate(token string) (*domain.Principal, error)
}

// ErrorWriter отвечает клиенту, когда токен неверен.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext возвращает принципала или nil для анонимного запроса.
func FromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}

// Middleware аутентифицирует запрос, если есть заголовок Authorization.
// Без заголовка запрос идёт дальше анонимно; решение о доступе принимает сервис.
func Middleware(v TokenValidator, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				fail(w, r, unauthorized("invalid Authorization header format (expected 'Bearer <token>')"))
				return
			}
			if v == nil {
				fail(w, r, unauthorized("authentication not configured"))
				return
			}

			p, err := v.Validate(parts[1])
			if err != nil {
				fail(w, r, errors.Join(unauthorized("invalid or expired token"), err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func unauthorized(msg string) error {
	return &domain.Error{Code: domain.CodeAuthentication, Message: msg}
}
