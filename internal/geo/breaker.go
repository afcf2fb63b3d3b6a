package geo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/hitoshi/moody/internal/model"
)

// BreakerStateRecorder はブレーカー状態の記録先。
// metrics.Collectorが満たす。
type BreakerStateRecorder interface {
	SetBreakerState(name string, state float64)
}

// BreakerSettings はサーキットブレーカーの設定。
type BreakerSettings struct {
	Name string
	// MaxRequests はhalf-open状態で許可する同時リクエスト数。
	MaxRequests uint32
	// Interval はclosed状態でカウントをリセットする周期。
	Interval time.Duration
	// Timeout はopenからhalf-openへ遷移するまでの待ち時間。
	Timeout time.Duration
	// MinRequests はopen判定に必要な最小リクエスト数。
	MinRequests uint32
	// FailureRatio はopenに遷移する失敗率（0〜1）。
	FailureRatio float64
}

// DefaultBreakerSettings はデフォルトのブレーカー設定を返す。
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "places-api",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerResolver はResolverをサーキットブレーカーで包む。
// open状態では下位のResolverを呼ばずにResolutionUnavailableを返す。
type BreakerResolver struct {
	next   Resolver
	cb     *gobreaker.CircuitBreaker[[]model.PlaceDescriptor]
	logger *slog.Logger
}

// NewBreakerResolver はBreakerResolverを生成する。recorderはnilでもよい。
func NewBreakerResolver(next Resolver, settings BreakerSettings, logger *slog.Logger, recorder BreakerStateRecorder) *BreakerResolver {
	if recorder != nil {
		recorder.SetBreakerState(settings.Name, stateToFloat(gobreaker.StateClosed))
	}

	cb := gobreaker.NewCircuitBreaker[[]model.PlaceDescriptor](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= settings.FailureRatio
		},
		// 呼び出し元の切断はプロバイダーの障害ではないため失敗に数えない。
		// タイムアウト（DeadlineExceeded）は失敗として数える。
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("サーキットブレーカーの状態が変化しました",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if recorder != nil {
				recorder.SetBreakerState(name, stateToFloat(to))
			}
		},
	})

	return &BreakerResolver{next: next, cb: cb, logger: logger}
}

// Resolve は下位のResolverをブレーカー経由で呼び出す。
func (b *BreakerResolver) Resolve(ctx context.Context, latitude, longitude float64) ([]model.PlaceDescriptor, error) {
	descs, err := b.cb.Execute(func() ([]model.PlaceDescriptor, error) {
		return b.next.Resolve(ctx, latitude, longitude)
	})
	if err == nil {
		return descs, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("サーキットブレーカーにより周辺スポット検索を拒否しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewResolutionUnavailableError(err)
	}
	if !model.IsResolutionUnavailable(err) {
		return nil, model.NewResolutionUnavailableError(err)
	}
	return nil, err
}

// State は現在のブレーカー状態を返す。
func (b *BreakerResolver) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

var _ Resolver = (*BreakerResolver)(nil)
