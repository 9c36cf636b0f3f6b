package token

import (
	"context"
	"errors"
	"time"

	"fulfillment-service/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HSParser проверяет access-токены магазина (HS256, claims id и isAdmin).
type HSParser struct {
	secret []byte
	now    func() time.Time
}

var _ service.TokenParser = (*HSParser)(nil)

func NewHSParser(secret string) *HSParser {
	return &HSParser{secret: []byte(secret), now: time.Now}
}

type customClaims struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Sign нужен для тестов и служебных токенов.
func (p *HSParser) Sign(userID uuid.UUID, isAdmin bool, ttl time.Duration) (string, error) {
	now := p.now()
	claims := customClaims{
		ID:      userID.String(),
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *HSParser) ParseAccess(ctx context.Context, token string) (*service.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	sub := cc.ID
	if sub == "" {
		sub = cc.Subject
	}
	uid, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}
	return &service.Claims{UserID: uid, IsAdmin: cc.IsAdmin}, nil
}
