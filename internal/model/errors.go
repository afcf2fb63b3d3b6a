// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, place, system
	Action   string // ユーザー向け対処方法
	Field    string // 検証エラーの対象フィールド（検証エラー以外は空）
	Err      error  // 原因となったエラー（ログ用、レスポンスには含めない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeResolutionUnavailable  = "RESOLUTION_UNAVAILABLE"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
)

// NewValidationError は入力検証エラーを生成する。
// fieldには違反したフィールド名（sentiment, latitude, longitude 等）を指定する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s が不正です: %s", field, reason),
		Category: "validation",
		Action:   "入力値を確認して再度お試しください。",
		Field:    field,
	}
}

// NewResolutionUnavailableError は周辺スポット検索サービスの障害エラーを生成する。
// イベントは作成されていないため、呼び出し元は操作全体を後で再試行できる。
func NewResolutionUnavailableError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeResolutionUnavailable,
		Message:  "周辺スポットの取得に失敗しました。",
		Category: "place",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNotFoundError は指定リソースが見つからない場合のエラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s が見つかりません。", resource),
		Category: "system",
		Action:   "指定したIDを確認してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  reason,
		Category: "auth",
		Action:   "有効なトークンを 'Authorization: Bearer {token}' 形式で指定してください。",
	}
}

// NewEmailAlreadyRegisteredError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、トークンを発行してください。",
	}
}

// IsValidationError はerrが入力検証エラーかどうかを返す。
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsResolutionUnavailable はerrが周辺スポット検索の障害エラーかどうかを返す。
func IsResolutionUnavailable(err error) bool {
	return hasCode(err, ErrCodeResolutionUnavailable)
}

func hasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
