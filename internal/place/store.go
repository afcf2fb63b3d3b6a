// Package place は周辺スポットの永続化と重複排除を提供する。
package place

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/moody/internal/metrics"
	"github.com/hitoshi/moody/internal/model"
	"github.com/hitoshi/moody/internal/repository"
)

// DefaultConflictRetries は一意制約競合時の最大試行回数のデフォルト値。
const DefaultConflictRetries = 3

// ErrConflictRetriesExhausted は競合の再試行が上限に達したことを表す。
var ErrConflictRetriesExhausted = errors.New("place conflict retries exhausted")

// Store はスポットの取得または作成を行う。
// 同一性キー (name, latitude, longitude) の一意制約に依存し、
// 並行する作成との競合は再読み込みと再試行で解決する。
type Store struct {
	repo        repository.PlaceRepository
	metrics     metrics.MetricsCollector
	maxAttempts int
}

// NewStore はStoreの新しいインスタンスを生成する。
// maxAttemptsが0以下の場合はDefaultConflictRetriesを使用する。collectorはnilでもよい。
func NewStore(repo repository.PlaceRepository, collector metrics.MetricsCollector, maxAttempts int) *Store {
	if maxAttempts <= 0 {
		maxAttempts = DefaultConflictRetries
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Store{
		repo:        repo,
		metrics:     collector,
		maxAttempts: maxAttempts,
	}
}

// ValidateDescriptor はスポット候補の名前と座標を検証する。
func ValidateDescriptor(desc model.PlaceDescriptor) error {
	if strings.TrimSpace(desc.Name) == "" {
		return model.NewValidationError("place.name", "必須です")
	}
	return model.ValidateCoordinates(desc.Latitude, desc.Longitude)
}

// GetOrCreate は同一性キーに一致するスポットを返す。存在しない場合は作成する。
// 既存のスポットは変更せずにそのまま返す。
func (s *Store) GetOrCreate(ctx context.Context, desc model.PlaceDescriptor) (*model.Place, error) {
	if err := ValidateDescriptor(desc); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		existing, err := s.repo.FindByIdentity(ctx, desc.Name, desc.Latitude, desc.Longitude)
		if err != nil {
			return nil, fmt.Errorf("スポットの検索に失敗: %w", err)
		}
		if existing != nil {
			return existing, nil
		}

		p := &model.Place{
			ID:         uuid.New().String(),
			ExternalID: desc.ExternalID,
			Name:       desc.Name,
			Latitude:   desc.Latitude,
			Longitude:  desc.Longitude,
			Categories: append([]string{}, desc.Categories...),
		}
		err = s.repo.Create(ctx, p)
		if err == nil {
			s.metrics.RecordPlaceCreated()
			return p, nil
		}
		if !errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("スポットの作成に失敗: %w", err)
		}

		// 並行する作成処理が先に挿入した。次の試行で勝者の行を読み直す。
		s.metrics.RecordPlaceConflict()
		slog.Debug("スポット作成で一意制約競合",
			"name", desc.Name,
			"attempt", attempt,
		)
	}

	slog.Error("スポット作成の再試行が上限に達しました",
		"name", desc.Name,
		"max_attempts", s.maxAttempts,
	)
	return nil, fmt.Errorf("%w: %s", ErrConflictRetriesExhausted, desc.IdentityKey())
}

// GetOrCreateAll は検索結果の各候補に対してGetOrCreateを適用する。
// 結果は入力順を保ち、同一性キーが重複する候補は1件にまとめる。
// 検証に失敗した候補は警告ログを出してスキップする。
func (s *Store) GetOrCreateAll(ctx context.Context, descs []model.PlaceDescriptor) ([]model.Place, error) {
	places := make([]model.Place, 0, len(descs))
	seen := make(map[string]struct{}, len(descs))

	for _, desc := range descs {
		key := desc.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if err := ValidateDescriptor(desc); err != nil {
			slog.Warn("不正なスポット候補をスキップしました",
				"external_id", desc.ExternalID,
				"error", err,
			)
			continue
		}

		p, err := s.GetOrCreate(ctx, desc)
		if err != nil {
			return nil, err
		}
		places = append(places, *p)
	}

	return places, nil
}
