package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/moody/internal/model"
)

func sampleMoodEvent() *model.MoodEvent {
	return &model.MoodEvent{
		ID:        "event-1",
		Sentiment: model.SentimentHappy,
		Latitude:  40.7829,
		Longitude: -73.9654,
		CreatedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		UserID:    "user-123",
		Places: []model.Place{
			{ID: "place-1", Name: "Central Park", Latitude: 40.7829, Longitude: -73.9654, Categories: []string{"park"}},
			{ID: "place-2", Name: "Bench"},
		},
	}
}

// --- POST /mood_events テスト ---

func TestMoodHandler_CreateMoodEvent_Success(t *testing.T) {
	svc := &mockMoodService{
		ingestFn: func(ctx context.Context, userID string, sentiment model.Sentiment, lat, lon float64) (*model.MoodEvent, error) {
			if userID != "user-123" || sentiment != model.SentimentHappy || lat != 40.7829 || lon != -73.9654 {
				t.Errorf("Ingest(%q, %q, %v, %v)", userID, sentiment, lat, lon)
			}
			return sampleMoodEvent(), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/mood_events",
		strings.NewReader(`{"sentiment":"happy","latitude":40.7829,"longitude":-73.9654}`))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()
	NewMoodHandler(svc).CreateMoodEvent(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var got moodEventResponse
	decodeData(t, w, &got)
	if got.ID != "event-1" || got.Sentiment != "happy" || got.UserID != "user-123" {
		t.Errorf("response = %+v", got)
	}
	if len(got.Places) != 2 || got.Places[0].Name != "Central Park" || got.Places[0].Types[0] != "park" {
		t.Errorf("places = %+v", got.Places)
	}
	if got.Places[1].Types == nil {
		t.Error("カテゴリなしのスポットはtypesを空配列で返すべき")
	}
}

// TestMoodHandler_CreateMoodEvent_ZeroCoordinates は座標0が未指定と区別されることを検証する。
func TestMoodHandler_CreateMoodEvent_ZeroCoordinates(t *testing.T) {
	called := false
	svc := &mockMoodService{
		ingestFn: func(ctx context.Context, userID string, sentiment model.Sentiment, lat, lon float64) (*model.MoodEvent, error) {
			called = true
			return &model.MoodEvent{ID: "e", Sentiment: sentiment, UserID: userID, Places: []model.Place{}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/mood_events",
		strings.NewReader(`{"sentiment":"neutral","latitude":0,"longitude":0}`))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()
	NewMoodHandler(svc).CreateMoodEvent(w, req)

	if w.Code != http.StatusCreated || !called {
		t.Errorf("status = %d, called = %v", w.Code, called)
	}
	if !strings.Contains(w.Body.String(), `"places":[]`) {
		t.Errorf("スポットなしは空配列で返すべき: %s", w.Body.String())
	}
}

func TestMoodHandler_CreateMoodEvent_MissingFields(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"感情なし", `{"latitude":1,"longitude":2}`, "sentiment"},
		{"緯度なし", `{"sentiment":"sad","longitude":2}`, "latitude"},
		{"経度なし", `{"sentiment":"sad","latitude":1}`, "longitude"},
		{"型不正", `{"sentiment":"sad","latitude":"north","longitude":2}`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMoodService{}
			req := withUserID(httptest.NewRequest(http.MethodPost, "/mood_events", strings.NewReader(tt.body)), "user-123")
			w := httptest.NewRecorder()
			NewMoodHandler(svc).CreateMoodEvent(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if body := parseAPIErrorResponse(t, w); body["field"] != tt.wantField {
				t.Errorf("field = %q, want %q", body["field"], tt.wantField)
			}
		})
	}
}

func TestMoodHandler_CreateMoodEvent_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"範囲外", model.NewValidationError("latitude", "範囲外です"), http.StatusBadRequest, model.ErrCodeValidation},
		{"ユーザーなし", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
		{"検索障害", model.NewResolutionUnavailableError(errors.New("timeout")), http.StatusServiceUnavailable, model.ErrCodeResolutionUnavailable},
		{"内部エラー", errors.New("tx aborted"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMoodService{
				ingestFn: func(context.Context, string, model.Sentiment, float64, float64) (*model.MoodEvent, error) {
					return nil, tt.err
				},
			}
			req := withUserID(httptest.NewRequest(http.MethodPost, "/mood_events",
				strings.NewReader(`{"sentiment":"sad","latitude":91,"longitude":2}`)), "user-123")
			w := httptest.NewRecorder()
			NewMoodHandler(svc).CreateMoodEvent(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
		})
	}
}

func TestMoodHandler_CreateMoodEvent_NoUserID_ReturnsUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mood_events", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	NewMoodHandler(&mockMoodService{}).CreateMoodEvent(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- GET /mood_events テスト ---

func TestMoodHandler_ListMoodEvents_PassesFilter(t *testing.T) {
	var got model.EventFilter
	svc := &mockMoodService{
		listFn: func(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error) {
			got = filter
			return []*model.MoodEvent{sampleMoodEvent()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/mood_events?created_after=2024-05-01T00:00:00Z&created_before=2024-05-02T00:00:00%2B09:00&sentiment=happy", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()
	NewMoodHandler(svc).ListMoodEvents(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", got.UserID)
	}
	if got.CreatedAfter == nil || !got.CreatedAfter.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAfter = %v", got.CreatedAfter)
	}
	if got.CreatedBefore == nil || !got.CreatedBefore.Equal(time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedBefore = %v", got.CreatedBefore)
	}
	if got.Sentiment == nil || *got.Sentiment != model.SentimentHappy {
		t.Errorf("Sentiment = %v", got.Sentiment)
	}

	var events []moodEventResponse
	decodeData(t, w, &events)
	if len(events) != 1 || events[0].ID != "event-1" {
		t.Errorf("events = %+v", events)
	}
}

func TestMoodHandler_ListMoodEvents_NoFilterReturnsEmptyArray(t *testing.T) {
	svc := &mockMoodService{
		listFn: func(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error) {
			if filter.CreatedAfter != nil || filter.CreatedBefore != nil || filter.Sentiment != nil {
				t.Errorf("unexpected filter: %+v", filter)
			}
			return nil, nil
		},
	}

	w := httptest.NewRecorder()
	NewMoodHandler(svc).ListMoodEvents(w, withUserID(httptest.NewRequest(http.MethodGet, "/mood_events", nil), "user-123"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty data array", w.Body.String())
	}
}

func TestMoodHandler_ListMoodEvents_InvalidTime(t *testing.T) {
	svc := &mockMoodService{}
	req := withUserID(httptest.NewRequest(http.MethodGet, "/mood_events?created_before=yesterday", nil), "user-123")
	w := httptest.NewRecorder()
	NewMoodHandler(svc).ListMoodEvents(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["field"] != "created_before" {
		t.Errorf("field = %q, want created_before", body["field"])
	}
}

func TestMoodHandler_ListMoodEvents_ServiceValidationError(t *testing.T) {
	svc := &mockMoodService{
		listFn: func(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error) {
			return nil, model.ValidateEventFilter(filter)
		},
	}
	req := withUserID(httptest.NewRequest(http.MethodGet, "/mood_events?sentiment=furious", nil), "user-123")
	w := httptest.NewRecorder()
	NewMoodHandler(svc).ListMoodEvents(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["field"] != "sentiment" {
		t.Errorf("field = %q, want sentiment", body["field"])
	}
}
