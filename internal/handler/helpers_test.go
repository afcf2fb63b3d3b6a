package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/moody/internal/middleware"
	"github.com/hitoshi/moody/internal/model"
)

// --- モック定義 ---

type mockUserService struct {
	registerFn func(ctx context.Context, email, password string) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, email, password string) (*model.User, error) {
	return m.registerFn(ctx, email, password)
}

type mockTokenService struct {
	issueTokenFn    func(ctx context.Context, email, password string) (string, *model.TokenClaims, error)
	validateTokenFn func(token string) (*model.TokenClaims, error)
}

func (m *mockTokenService) IssueToken(ctx context.Context, email, password string) (string, *model.TokenClaims, error) {
	return m.issueTokenFn(ctx, email, password)
}

func (m *mockTokenService) ValidateToken(token string) (*model.TokenClaims, error) {
	return m.validateTokenFn(token)
}

type mockMoodService struct {
	ingestFn func(ctx context.Context, userID string, sentiment model.Sentiment, lat, lon float64) (*model.MoodEvent, error)
	listFn   func(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error)
}

func (m *mockMoodService) Ingest(ctx context.Context, userID string, sentiment model.Sentiment, lat, lon float64) (*model.MoodEvent, error) {
	return m.ingestFn(ctx, userID, sentiment, lat, lon)
}

func (m *mockMoodService) List(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error) {
	return m.listFn(ctx, filter)
}

type mockInsightService struct {
	frequencyFn   func(ctx context.Context, userID string, after, before *time.Time) (map[model.Sentiment]int, error)
	placeCountsFn func(ctx context.Context, userID string, sentiment model.Sentiment) (map[string]int, error)
}

func (m *mockInsightService) FrequencyDistribution(ctx context.Context, userID string, after, before *time.Time) (map[model.Sentiment]int, error) {
	return m.frequencyFn(ctx, userID, after, before)
}

func (m *mockInsightService) PlaceCounts(ctx context.Context, userID string, sentiment model.Sentiment) (map[string]int, error) {
	return m.placeCountsFn(ctx, userID, sentiment)
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeData は {"data": ..., "status": ...} 形式のレスポンスからdataをデコードするヘルパー。
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Status int             `json:"status"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if envelope.Status != w.Code {
		t.Errorf("envelope status = %d, want %d", envelope.Status, w.Code)
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v\nraw: %s", err, envelope.Data)
	}
}
