// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/moody/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenAuthenticator はBearerトークンからユーザーを特定するインターフェース。
// auth.Serviceが満たす。
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// ExtractBearerToken はAuthorizationヘッダーの値からトークンを取り出す。
// ヘッダーが空、または "Bearer {token}" 形式でない場合は認証エラーを返す。
func ExtractBearerToken(header string) (string, *model.APIError) {
	if header == "" {
		return "", model.NewUnauthorizedError("Missing 'Authorization' header.")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", model.NewUnauthorizedError("Must set 'Authorization' header to 'Bearer {token}'.")
	}
	return token, nil
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証済みユーザーのIDをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401を返す。
func NewBearerAuthMiddleware(authenticator TokenAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, apiErr := ExtractBearerToken(r.Header.Get("Authorization"))
			if apiErr != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				var authErr *model.APIError
				if errors.As(err, &authErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, authErr)
					return
				}
				slog.Error("failed to authenticate request",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			recordUserIDForLog(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), user.ID)))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
