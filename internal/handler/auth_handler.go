package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/moody/internal/middleware"
	"github.com/hitoshi/moody/internal/model"
)

// TokenServiceInterface はトークンハンドラーが必要とするサービスインターフェース。
type TokenServiceInterface interface {
	// IssueToken はメールアドレスとパスワードを照合してトークンを発行する。
	IssueToken(ctx context.Context, email, password string) (string, *model.TokenClaims, error)
	// ValidateToken はトークンを検証してクレームを返す。DBにはアクセスしない。
	ValidateToken(token string) (*model.TokenClaims, error)
}

// AuthHandler はトークン発行と検証のHTTPハンドラー。
type AuthHandler struct {
	service TokenServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service TokenServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// createTokenRequest はトークン発行リクエストのボディ。
type createTokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// tokenResponse は発行したトークンのAPIレスポンス。
type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenInfoResponse は検証済みトークンのペイロード。
type tokenInfoResponse struct {
	Email     string `json:"email"`
	Issuer    string `json:"iss"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IssueToken はトークン発行を処理する。
// POST /tokens
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	token, claims, err := h.service.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataResponse(w, http.StatusCreated, tokenResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
	})
}

// TokenInfo はBearerトークンを検証し、そのペイロードを返す。
// ユーザーの存在確認は行わない。
// GET /tokeninfo
func (h *AuthHandler) TokenInfo(w http.ResponseWriter, r *http.Request) {
	token, apiErr := middleware.ExtractBearerToken(r.Header.Get("Authorization"))
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, apiErr)
		return
	}

	claims, err := h.service.ValidateToken(token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataResponse(w, http.StatusOK, tokenInfoResponse{
		Email:     claims.Email,
		Issuer:    claims.Issuer,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}
