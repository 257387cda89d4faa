package auth

import (
	"context"
	"log"
	"net/http"

	"docvault/internal/domain"
)

type contextKey struct{}

var principalKey contextKey

// Middleware проверяет bearer-токен и кладет принципала в контекст.
// Запросы без валидного токена дальше по цепочке не проходят.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := v.VerifyRequest(r)
			if err != nil {
				log.Printf("[Auth] Отклонен запрос %s %s: %v", r.Method, r.URL.Path, err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext достает принципала, положенного Middleware
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}
