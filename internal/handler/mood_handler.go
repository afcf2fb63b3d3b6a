package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/moody/internal/middleware"
	"github.com/hitoshi/moody/internal/model"
)

// MoodServiceInterface はムードイベントハンドラーが必要とするサービスインターフェース。
type MoodServiceInterface interface {
	// Ingest はムードイベントを1件取り込む。
	Ingest(ctx context.Context, userID string, sentiment model.Sentiment, latitude, longitude float64) (*model.MoodEvent, error)
	// List はフィルタ条件に一致するユーザーのイベントを返す。
	List(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error)
}

// MoodHandler はムードイベントのHTTPハンドラー。
type MoodHandler struct {
	service MoodServiceInterface
}

// NewMoodHandler はMoodHandlerを生成する。
func NewMoodHandler(service MoodServiceInterface) *MoodHandler {
	return &MoodHandler{
		service: service,
	}
}

// createMoodEventRequest はムードイベント作成リクエストのボディ。
// 座標の0は有効な値のため、未指定と区別できるようポインタで受け取る。
type createMoodEventRequest struct {
	Sentiment string   `json:"sentiment" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// placeResponse は関連スポットのAPIレスポンス。
type placeResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Types     []string `json:"types"`
}

// moodEventResponse はムードイベントのAPIレスポンス。
type moodEventResponse struct {
	ID        string          `json:"id"`
	Sentiment string          `json:"sentiment"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	CreatedAt time.Time       `json:"created_at"`
	UserID    string          `json:"user_id"`
	Places    []placeResponse `json:"places"`
}

func toMoodEventResponse(e *model.MoodEvent) moodEventResponse {
	places := make([]placeResponse, len(e.Places))
	for i, p := range e.Places {
		types := p.Categories
		if types == nil {
			types = []string{}
		}
		places[i] = placeResponse{
			ID:        p.ID,
			Name:      p.Name,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Types:     types,
		}
	}
	return moodEventResponse{
		ID:        e.ID,
		Sentiment: string(e.Sentiment),
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		CreatedAt: e.CreatedAt,
		UserID:    e.UserID,
		Places:    places,
	}
}

// CreateMoodEvent はムードイベントの作成を処理する。
// POST /mood_events
func (h *MoodHandler) CreateMoodEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w)
		return
	}

	var req createMoodEventRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	event, err := h.service.Ingest(r.Context(), userID, model.Sentiment(req.Sentiment), *req.Latitude, *req.Longitude)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataResponse(w, http.StatusCreated, toMoodEventResponse(event))
}

// ListMoodEvents は認証ユーザーのムードイベント一覧を返す。
// GET /mood_events?created_after=...&created_before=...&sentiment=...
func (h *MoodHandler) ListMoodEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w)
		return
	}

	filter, apiErr := parseEventFilter(r, userID)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	events, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]moodEventResponse, len(events))
	for i, e := range events {
		results[i] = toMoodEventResponse(e)
	}
	writeDataResponse(w, http.StatusOK, results)
}

// parseEventFilter はクエリパラメータから検索条件を組み立てる。
// 時刻はRFC3339形式で受け付ける。
func parseEventFilter(r *http.Request, userID string) (model.EventFilter, *model.APIError) {
	q := r.URL.Query()
	filter := model.EventFilter{UserID: userID}

	after, apiErr := parseTimeParam(q.Get("created_after"), "created_after")
	if apiErr != nil {
		return filter, apiErr
	}
	filter.CreatedAfter = after

	before, apiErr := parseTimeParam(q.Get("created_before"), "created_before")
	if apiErr != nil {
		return filter, apiErr
	}
	filter.CreatedBefore = before

	if s := q.Get("sentiment"); s != "" {
		sentiment := model.Sentiment(s)
		filter.Sentiment = &sentiment
	}
	return filter, nil
}

func parseTimeParam(value, field string) (*time.Time, *model.APIError) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, model.NewValidationError(field, "RFC3339形式で指定してください (例: 2024-01-02T15:04:05Z)")
	}
	return &t, nil
}
