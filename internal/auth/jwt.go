package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/moody/internal/model"
)

// DefaultIssuer はトークン発行者のデフォルト値。
const DefaultIssuer = "moody"

// DefaultTokenDuration はトークン有効期間のデフォルト値。
const DefaultTokenDuration = 24 * time.Hour

// ErrInvalidToken はトークンが不正または期限切れであることを表す。
var ErrInvalidToken = errors.New("invalid token")

// tokenClaims はトークンに含めるクレーム。
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager はHS256署名のBearerトークンを発行・検証する。
type TokenManager struct {
	secret   []byte
	issuer   string
	duration time.Duration
	now      func() time.Time
}

// NewTokenManager はTokenManagerを生成する。secretは必須。
func NewTokenManager(secret, issuer string, duration time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if duration <= 0 {
		duration = DefaultTokenDuration
	}
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		duration: duration,
		now:      time.Now,
	}, nil
}

// Issue はメールアドレスを主体とするトークンを発行する。
func (m *TokenManager) Issue(email string) (string, *model.TokenClaims, error) {
	issuedAt := m.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.duration)

	claims := &tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, &model.TokenClaims{
		Email:     email,
		Issuer:    m.issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate はトークンの署名、発行者、有効期限を検証してクレームを返す。
// 失敗した場合は ErrInvalidToken をラップして返す。
func (m *TokenManager) Validate(tokenString string) (*model.TokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Email == "" {
		return nil, ErrInvalidToken
	}

	out := &model.TokenClaims{
		Email:  claims.Email,
		Issuer: claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
