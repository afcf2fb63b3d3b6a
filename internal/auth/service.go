// Package auth はユーザー登録、パスワード認証、Bearerトークンの発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/moody/internal/model"
	"github.com/hitoshi/moody/internal/repository"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 8

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
// マルチバイト文字では文字数より先にこの上限に達する。
const MaxPasswordBytes = 72

// invalidCredentialsMessage はメールアドレス不一致とパスワード不一致で共通のメッセージ。
const invalidCredentialsMessage = "User with email does not exist or password is incorrect."

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo   repository.UserRepository
	tokens     *TokenManager
	bcryptCost int
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenManager) *Service {
	return &Service{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// ValidateCredentials はメールアドレスとパスワードの形式を検証する。
func ValidateCredentials(email, password string) error {
	if !strings.Contains(email, "@") {
		return model.NewValidationError("email", "有効なメールアドレスを指定してください")
	}
	if len(password) < MinPasswordLength {
		return model.NewValidationError("password",
			fmt.Sprintf("%d文字以上で指定してください", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return model.NewValidationError("password",
			fmt.Sprintf("UTF-8で%dバイト以内で指定してください", MaxPasswordBytes))
	}
	return nil
}

// Register はユーザーを登録する。パスワードはbcryptハッシュのみを保存する。
// メールアドレスが登録済みの場合はEMAIL_ALREADY_REGISTEREDを返す。
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewEmailAlreadyRegisteredError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
	)
	return user, nil
}

// IssueToken はメールアドレスとパスワードを照合してトークンを発行する。
// どちらが不一致でも同じ認証エラーを返す。
func (s *Service) IssueToken(ctx context.Context, email, password string) (string, *model.TokenClaims, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", nil, model.NewUnauthorizedError(invalidCredentialsMessage)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, model.NewUnauthorizedError(invalidCredentialsMessage)
	}

	return s.tokens.Issue(user.Email)
}

// ValidateToken はトークンを検証してクレームを返す。DBにはアクセスしない。
func (s *Service) ValidateToken(token string) (*model.TokenClaims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, model.NewUnauthorizedError("Invalid or expired token.")
	}
	return claims, nil
}

// Authenticate はトークンを検証し、対応するユーザーを返す。
// トークンが有効でもユーザーが存在しない場合は認証エラーとする。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("Token subject no longer exists.")
	}
	return user, nil
}
