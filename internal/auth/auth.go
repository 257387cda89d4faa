package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"docvault/internal/domain"
)

// Verifier проверяет bearer-токены запросов и извлекает принципала.
// Аутентификация — внешний коллаборатор: сервис доверяет подписанным
// им JWT и не ведет собственных пользователей.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg *Config) *Verifier {
	return &Verifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// VerifyRequest извлекает принципала из заголовка Authorization.
// Токен обязан быть подписан HMAC-секретом и содержать subject и роль
// из закрытого набора.
func (v *Verifier) VerifyRequest(r *http.Request) (domain.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.Principal{}, fmt.Errorf("no authorization header")
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == header {
		return domain.Principal{}, fmt.Errorf("invalid authorization header format")
	}

	return v.VerifyToken(tokenStr)
}

// VerifyToken проверяет подпись и срок JWT и возвращает принципала
func (v *Verifier) VerifyToken(tokenStr string) (domain.Principal, error) {
	var c claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return domain.Principal{}, fmt.Errorf("invalid token")
	}

	if c.Subject == "" {
		return domain.Principal{}, fmt.Errorf("token has no subject")
	}

	role := domain.Role(c.Role)
	if !role.IsValid() {
		return domain.Principal{}, fmt.Errorf("unknown role: %q", c.Role)
	}

	return domain.Principal{ID: c.Subject, Role: role}, nil
}
