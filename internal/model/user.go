// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// パスワードはbcryptハッシュのみを保持し、平文は保存しない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenClaims は発行済みBearerトークンから取り出した検証済みの情報を表す。
type TokenClaims struct {
	Email     string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
