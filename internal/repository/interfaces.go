// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/moody/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが重複している場合は ErrUniqueViolation をラップして返す。
	Create(ctx context.Context, user *model.User) error
}

// PlaceRepository は周辺スポットの永続化インターフェース。
// (name, latitude, longitude) の組に一意制約がある。
type PlaceRepository interface {
	// FindByIdentity は同一性キーでスポットを検索する。見つからない場合はnilを返す。
	FindByIdentity(ctx context.Context, name string, latitude, longitude float64) (*model.Place, error)

	// Create はスポットを作成し、CreatedAtを設定する。
	// 同一性キーが重複している場合は ErrUniqueViolation をラップして返す。
	Create(ctx context.Context, place *model.Place) error

	// ListByMoodEventIDs はイベントIDごとの関連スポットを返す。
	// 関連のないイベントはマップに含まれない。
	ListByMoodEventIDs(ctx context.Context, eventIDs []string) (map[string][]model.Place, error)
}

// MoodEventRepository はムードイベントの永続化インターフェース。
type MoodEventRepository interface {
	// CreateWithPlaces はイベントとスポットへの関連を同一トランザクションで作成する。
	// 成功時はevent.CreatedAtにサーバー時刻を設定する。失敗時は何も残らない。
	// 存在しないユーザーやスポットを参照した場合は ErrForeignKeyViolation をラップして返す。
	CreateWithPlaces(ctx context.Context, event *model.MoodEvent, placeIDs []string) error

	// List はフィルタ条件に一致するユーザーのイベントを関連スポット付きで返す。
	// created_at降順（同時刻はID降順）で並ぶ。
	List(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error)
}
