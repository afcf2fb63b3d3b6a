package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/moody/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register はユーザーを登録する。
	Register(ctx context.Context, email, password string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// createUserRequest はユーザー登録リクエストのボディ。
// passwordのmaxは文字数の上限。bcryptの72バイト制限はauth.ValidateCredentialsで検証する。
type createUserRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DateCreated time.Time `json:"date_created"`
	DateUpdated time.Time `json:"date_updated"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DateCreated: u.CreatedAt,
		DateUpdated: u.UpdatedAt,
	}
}

// Register はユーザー登録を処理する。
// POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataResponse(w, http.StatusCreated, toUserResponse(user))
}
