package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/moody/internal/middleware"
	"github.com/hitoshi/moody/internal/model"
)

// InsightServiceInterface は集計ハンドラーが必要とするサービスインターフェース。
type InsightServiceInterface interface {
	FrequencyDistribution(ctx context.Context, userID string, createdAfter, createdBefore *time.Time) (map[model.Sentiment]int, error)
	PlaceCounts(ctx context.Context, userID string, sentiment model.Sentiment) (map[string]int, error)
}

// InsightHandler は集計結果のHTTPハンドラー。
type InsightHandler struct {
	service InsightServiceInterface
}

// NewInsightHandler はInsightHandlerを生成する。
func NewInsightHandler(service InsightServiceInterface) *InsightHandler {
	return &InsightHandler{
		service: service,
	}
}

// placesQuery は感情別スポット集計のクエリパラメータ。
type placesQuery struct {
	Sentiment string `json:"sentiment" validate:"required,oneof=happy sad neutral"`
}

// Frequency は期間内の感情ラベルごとの件数を返す。
// GET /insights/frequency?created_after=...&created_before=...
func (h *InsightHandler) Frequency(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w)
		return
	}

	q := r.URL.Query()
	after, apiErr := parseTimeParam(q.Get("created_after"), "created_after")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	before, apiErr := parseTimeParam(q.Get("created_before"), "created_before")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	counts, err := h.service.FrequencyDistribution(r.Context(), userID, after, before)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataResponse(w, http.StatusOK, counts)
}

// Places は指定した感情のイベントに関連するスポット名ごとの件数を返す。
// GET /insights/places?sentiment=happy
func (h *InsightHandler) Places(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w)
		return
	}

	query := placesQuery{Sentiment: r.URL.Query().Get("sentiment")}
	if apiErr := validateRequest(&query); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	counts, err := h.service.PlaceCounts(r.Context(), userID, model.Sentiment(query.Sentiment))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataResponse(w, http.StatusOK, counts)
}
