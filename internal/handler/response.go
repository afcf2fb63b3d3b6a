// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/moody/internal/middleware"
	"github.com/hitoshi/moody/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// dataResponse は成功レスポンスの共通エンベロープ。
type dataResponse struct {
	Data   any `json:"data"`
	Status int `json:"status"`
}

// writeDataResponse は成功レスポンスを {"data": ..., "status": ...} 形式で書き込む。
func writeDataResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data, Status: statusCode}); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一フォーマットのエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		if statusCode >= http.StatusInternalServerError {
			slog.Error("service unavailable",
				slog.String("code", apiErr.Code),
				slog.String("error", err.Error()),
			)
		}
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailAlreadyRegistered:
		return http.StatusConflict
	case model.ErrCodeResolutionUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSONBody はリクエストボディをdstにデコードし、構造体タグで検証する。
// 失敗した場合は検証エラーを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) *model.APIError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return model.NewValidationError("body", "JSONとして解析できません")
	}
	return validateRequest(dst)
}

// unauthorizedResponse は認証ミドルウェアを通過していないリクエストに返すエラー。
func unauthorizedResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("認証が必要です。"))
}

func notFoundError() *model.APIError {
	return model.NewNotFoundError("リソース")
}

func methodNotAllowedError() *model.APIError {
	return &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "このメソッドは許可されていません。",
		Category: "system",
		Action:   "APIドキュメントを確認してください。",
	}
}
