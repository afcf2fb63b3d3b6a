// Package mood はムードイベントの取り込みと検索を提供する。
package mood

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/moody/internal/geo"
	"github.com/hitoshi/moody/internal/metrics"
	"github.com/hitoshi/moody/internal/model"
	"github.com/hitoshi/moody/internal/repository"
)

// DefaultResolveTimeout は周辺スポット検索のタイムアウトのデフォルト値。
const DefaultResolveTimeout = 5 * time.Second

// UserFinder はユーザーの存在確認インターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// PlaceStore は検索結果をスポットの行に変換するインターフェース。
// place.Storeが満たす。
type PlaceStore interface {
	GetOrCreateAll(ctx context.Context, descs []model.PlaceDescriptor) ([]model.Place, error)
}

// Service はムードイベントのサービス層。
// 検証、周辺スポット検索、スポットの取得または作成、イベントの作成を順に行う。
type Service struct {
	users          UserFinder
	resolver       geo.Resolver
	places         PlaceStore
	events         repository.MoodEventRepository
	metrics        metrics.MetricsCollector
	resolveTimeout time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
// resolveTimeoutが0以下の場合はDefaultResolveTimeoutを使用する。collectorはnilでもよい。
func NewService(
	users UserFinder,
	resolver geo.Resolver,
	places PlaceStore,
	events repository.MoodEventRepository,
	collector metrics.MetricsCollector,
	resolveTimeout time.Duration,
) *Service {
	if resolveTimeout <= 0 {
		resolveTimeout = DefaultResolveTimeout
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		users:          users,
		resolver:       resolver,
		places:         places,
		events:         events,
		metrics:        collector,
		resolveTimeout: resolveTimeout,
	}
}

// Ingest はムードイベントを1件取り込む。
// 周辺スポット検索に失敗した場合はイベントを作成せずResolutionUnavailableを返す。
// イベントと関連は同一トランザクションで作成され、途中で失敗しても部分的な行は残らない。
// 作成済みで未使用となったスポットは共有リソースとして残る。
func (s *Service) Ingest(ctx context.Context, userID string, sentiment model.Sentiment, latitude, longitude float64) (*model.MoodEvent, error) {
	// 1. I/Oの前に入力を検証
	if err := model.ValidateMoodInput(sentiment, latitude, longitude); err != nil {
		s.metrics.RecordIngestFailure(metrics.ReasonValidation)
		return nil, err
	}

	// 2. ユーザー存在確認
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.metrics.RecordIngestFailure(metrics.ReasonStorage)
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		s.metrics.RecordIngestFailure(metrics.ReasonUserNotFound)
		return nil, model.NewUserNotFoundError()
	}

	// 3. 周辺スポット検索（タイムアウト付き）
	descs, err := s.resolve(ctx, latitude, longitude)
	if err != nil {
		s.metrics.RecordIngestFailure(metrics.ReasonResolutionUnavailable)
		slog.Warn("周辺スポットの取得に失敗したためイベントを作成しません",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	// 4. スポットの取得または作成
	places, err := s.places.GetOrCreateAll(ctx, descs)
	if err != nil {
		s.metrics.RecordIngestFailure(metrics.ReasonStorage)
		return nil, fmt.Errorf("スポットの保存に失敗しました: %w", err)
	}

	// 5. イベントと関連を作成
	event := &model.MoodEvent{
		ID:        uuid.New().String(),
		Sentiment: sentiment,
		Latitude:  latitude,
		Longitude: longitude,
		UserID:    user.ID,
	}
	placeIDs := make([]string, len(places))
	for i, p := range places {
		placeIDs[i] = p.ID
	}

	if err := s.events.CreateWithPlaces(ctx, event, placeIDs); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			s.metrics.RecordIngestFailure(metrics.ReasonUserNotFound)
			return nil, model.NewUserNotFoundError()
		}
		s.metrics.RecordIngestFailure(metrics.ReasonStorage)
		return nil, fmt.Errorf("ムードイベントの作成に失敗しました: %w", err)
	}

	// 6. 関連スポット付きで返す
	event.Places = places
	s.metrics.RecordIngestSuccess()
	s.metrics.RecordPlacesLinked(len(places))

	slog.Info("ムードイベントを作成しました",
		slog.String("event_id", event.ID),
		slog.String("user_id", event.UserID),
		slog.String("sentiment", string(event.Sentiment)),
		slog.Int("places", len(places)),
	)
	return event, nil
}

// resolve はタイムアウト付きで周辺スポットを検索する。
// すべての失敗はResolutionUnavailableとして返す。
func (s *Service) resolve(ctx context.Context, latitude, longitude float64) ([]model.PlaceDescriptor, error) {
	rctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	start := time.Now()
	descs, err := s.resolver.Resolve(rctx, latitude, longitude)
	s.metrics.RecordResolveLatency(time.Since(start))

	if err == nil && rctx.Err() != nil {
		// 期限切れ後に返った結果は採用しない
		err = rctx.Err()
	}
	if err != nil {
		if model.IsResolutionUnavailable(err) {
			return nil, err
		}
		return nil, model.NewResolutionUnavailableError(err)
	}
	if descs == nil {
		descs = []model.PlaceDescriptor{}
	}
	return descs, nil
}

// List は条件に一致するユーザーのムードイベントを返す。
// 結果は常に指定ユーザーのイベントに限定される。
func (s *Service) List(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error) {
	if err := model.ValidateEventFilter(filter); err != nil {
		return nil, err
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ムードイベントの取得に失敗しました: %w", err)
	}
	return events, nil
}
