// Package insight は記録済みムードイベントの集計を提供する。
package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/moody/internal/model"
)

// EventLister はムードイベントの検索インターフェース。
// ユーザーによる絞り込みは実装側で保証される。
type EventLister interface {
	List(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error)
}

// Service は集計のサービス層。
type Service struct {
	events EventLister
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(events EventLister) *Service {
	return &Service{events: events}
}

// FrequencyDistribution は期間内のイベントを感情ラベルごとに数える。
// 出現しなかった感情ラベルはマップに含まれない。
// createdAfter / createdBefore はnilで無制限、指定時は境界を含む。
func (s *Service) FrequencyDistribution(ctx context.Context, userID string, createdAfter, createdBefore *time.Time) (map[model.Sentiment]int, error) {
	filter := model.EventFilter{
		UserID:        userID,
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
	}
	if err := model.ValidateEventFilter(filter); err != nil {
		return nil, err
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("集計対象イベントの取得に失敗しました: %w", err)
	}

	counts := make(map[model.Sentiment]int)
	for _, e := range events {
		counts[e.Sentiment]++
	}
	return counts, nil
}

// PlaceCounts は指定した感情ラベルのイベントに関連するスポットを名前ごとに数える。
// 別のスポットでも名前が同じ場合は同じキーに合算される。
func (s *Service) PlaceCounts(ctx context.Context, userID string, sentiment model.Sentiment) (map[string]int, error) {
	filter := model.EventFilter{
		UserID:    userID,
		Sentiment: &sentiment,
	}
	if err := model.ValidateEventFilter(filter); err != nil {
		return nil, err
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("集計対象イベントの取得に失敗しました: %w", err)
	}

	counts := make(map[string]int)
	for _, e := range events {
		for _, p := range e.Places {
			counts[p.Name]++
		}
	}
	return counts, nil
}
