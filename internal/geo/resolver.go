// Package geo は座標から周辺スポットを検索する機能を提供する。
// 外部の検索サービスの呼び出しと、その障害を遮断するサーキットブレーカーを含む。
package geo

import (
	"context"

	"github.com/hitoshi/moody/internal/model"
)

// Resolver は座標の周辺スポットを返すインターフェース。
// 取得できなかった場合はResolutionUnavailableエラーを返す。
// 該当スポットがない場合は空スライスとnilを返す。
type Resolver interface {
	Resolve(ctx context.Context, latitude, longitude float64) ([]model.PlaceDescriptor, error)
}
