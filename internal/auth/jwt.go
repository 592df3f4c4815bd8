// Package auth - коллаборатор аутентификации: HS256 bearer-токены превращаются в domain.Principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/UkralStul/matjip-discussion/internal/domain"
)

const issuer = "matjip-discussion"

// Claims - ожидаемые поля токена.
type Claims struct {
	jwt.RegisteredClaims
	Nickname string      `json:"nickname"`
	Role     domain.Role `json:"role"`
}

// Validator проверяет и выпускает токены общим секретом.
type Validator struct {
	secret []byte
	now    func() time.Time
}

func NewValidator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("auth: empty jwt secret")
	}
	return &Validator{secret: []byte(secret), now: time.Now}, nil
}

// Validate разбирает токен и возвращает принципала.
func (v *Validator) Validate(tokenStr string) (*domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject is required")
	}

	role := claims.Role
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return &domain.Principal{UserID: claims.Subject, Nickname: claims.Nickname, Role: role}, nil
}

// Sign выпускает токен для принципала; используется сидом и -mint-token.
func (v *Validator) Sign(p *domain.Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Nickname: p.Nickname,
		Role:     p.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
