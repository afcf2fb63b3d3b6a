// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Sentiment はムードイベントに付与する感情ラベルを表す。
type Sentiment string

const (
	// SentimentHappy は「楽しい」を表す。
	SentimentHappy Sentiment = "happy"
	// SentimentSad は「悲しい」を表す。
	SentimentSad Sentiment = "sad"
	// SentimentNeutral は「普通」を表す。
	SentimentNeutral Sentiment = "neutral"
)

// Sentiments は有効な感情ラベルの一覧。
var Sentiments = []Sentiment{SentimentHappy, SentimentSad, SentimentNeutral}

// Valid は感情ラベルが定義済みの値かどうかを返す。
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentHappy, SentimentSad, SentimentNeutral:
		return true
	default:
		return false
	}
}

// MoodEvent はユーザーが記録した感情・座標・時刻の組を表す。
// 作成後は不変で、更新・削除の操作は存在しない。
type MoodEvent struct {
	ID        string
	Sentiment Sentiment
	Latitude  float64
	Longitude float64
	CreatedAt time.Time // サーバー側で付与する
	UserID    string
	Places    []Place // mood_events_places 経由の関連スポット
}

// Place は名前付きの地点（周辺スポット）を表す。
// (name, latitude, longitude) が同一性キーとなり、ストレージ側の一意制約で重複を防ぐ。
type Place struct {
	ID         string
	ExternalID string // 検索プロバイダー側のID（参考情報、同一性キーには含めない）
	Name       string
	Latitude   float64
	Longitude  float64
	Categories []string
	CreatedAt  time.Time
}

// PlaceDescriptor は周辺スポット検索の結果1件を表す。
type PlaceDescriptor struct {
	ExternalID string
	Name       string
	Categories []string
	Latitude   float64
	Longitude  float64
}

// IdentityKey は同一性判定に使うキー文字列を返す。
func (d PlaceDescriptor) IdentityKey() string {
	return fmt.Sprintf("%s|%v|%v", d.Name, d.Latitude, d.Longitude)
}

// EventFilter はムードイベント検索の条件を表す。
// UserID は必須で、それ以外のnilフィールドは絞り込みを行わない。
type EventFilter struct {
	UserID        string
	CreatedAfter  *time.Time // この時刻以降（境界を含む）
	CreatedBefore *time.Time // この時刻以前（境界を含む）
	Sentiment     *Sentiment
}

// ValidateMoodInput は感情ラベルと座標を検証する。
// 違反したフィールド名を含む検証エラーを返す。
func ValidateMoodInput(sentiment Sentiment, latitude, longitude float64) error {
	if !sentiment.Valid() {
		return NewValidationError("sentiment",
			fmt.Sprintf("%s のいずれかを指定してください (given: %q)", joinSentiments(), string(sentiment)))
	}
	if err := ValidateCoordinates(latitude, longitude); err != nil {
		return err
	}
	return nil
}

// ValidateCoordinates は緯度経度が有効範囲内かを検証する。
func ValidateCoordinates(latitude, longitude float64) error {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return NewValidationError("latitude",
			fmt.Sprintf("-90 から 90 の範囲で指定してください (given: %v)", latitude))
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || longitude < -180 || longitude > 180 {
		return NewValidationError("longitude",
			fmt.Sprintf("-180 から 180 の範囲で指定してください (given: %v)", longitude))
	}
	return nil
}

// ValidateEventFilter は検索条件を検証する。
func ValidateEventFilter(f EventFilter) error {
	if f.UserID == "" {
		return NewValidationError("user_id", "必須です")
	}
	if f.Sentiment != nil && !f.Sentiment.Valid() {
		return NewValidationError("sentiment",
			fmt.Sprintf("%s のいずれかを指定してください (given: %q)", joinSentiments(), string(*f.Sentiment)))
	}
	if f.CreatedAfter != nil && f.CreatedBefore != nil && f.CreatedAfter.After(*f.CreatedBefore) {
		return NewValidationError("created_after", "created_before より前の時刻を指定してください")
	}
	return nil
}

func joinSentiments() string {
	names := make([]string, len(Sentiments))
	for i, s := range Sentiments {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
