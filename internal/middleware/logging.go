package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// StatusRecorder はレスポンスのステータスコードの記録先。
// metrics.Collectorが満たす。
type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// requestInfoContextKey はログ用のリクエスト情報を格納するためのキー。
var requestInfoContextKey = contextKey("request_info")

// requestInfo は内側のミドルウェアが判明させた情報をログ出力まで持ち回る。
// 認証はロギングより内側で行われるため、ユーザーIDはここに書き戻される。
type requestInfo struct {
	userID string
}

// recordUserIDForLog はロギングミドルウェア配下であればユーザーIDを書き戻す。
func recordUserIDForLog(ctx context.Context, userID string) {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.userID = userID
	}
}

// statusWriter はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}
	return sw.ResponseWriter.Write(b)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id（認証済みの場合）を含む。
// recorderがnilでなければステータスコードも記録する。
func NewLoggingMiddleware(logger *slog.Logger, recorder StatusRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			info := &requestInfo{}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), requestInfoContextKey, info)))

			durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.statusCode),
				slog.Float64("duration_ms", durationMs),
			}
			if info.userID != "" {
				args = append(args, slog.String("user_id", info.userID))
			} else if userID, err := UserIDFromContext(r.Context()); err == nil {
				args = append(args, slog.String("user_id", userID))
			}

			level := slog.LevelInfo
			if sw.statusCode >= 500 {
				level = slog.LevelError
			} else if sw.statusCode >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http_request", args...)

			if recorder != nil {
				recorder.RecordHTTPStatus(sw.statusCode)
			}
		})
	}
}
