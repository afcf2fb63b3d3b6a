package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/moody/internal/model"
)

// queryer はsql.DBとsql.Txに共通する読み取り操作。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresPlaceRepo はPostgreSQLを使用したスポットリポジトリ。
type PostgresPlaceRepo struct {
	db *sql.DB
}

// NewPostgresPlaceRepo はPostgresPlaceRepoを生成する。
func NewPostgresPlaceRepo(db *sql.DB) *PostgresPlaceRepo {
	return &PostgresPlaceRepo{db: db}
}

// FindByIdentity は同一性キーでスポットを検索する。見つからない場合はnilを返す。
func (r *PostgresPlaceRepo) FindByIdentity(ctx context.Context, name string, latitude, longitude float64) (*model.Place, error) {
	place := &model.Place{}
	var externalID sql.NullString
	var categories pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, latitude, longitude, categories, created_at
		 FROM places
		 WHERE name = $1 AND latitude = $2 AND longitude = $3`,
		name, latitude, longitude,
	).Scan(&place.ID, &externalID, &place.Name, &place.Latitude, &place.Longitude, &categories, &place.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find place by identity: %w", err)
	}

	place.ExternalID = nullStringValue(externalID)
	place.Categories = []string(categories)
	return place, nil
}

// Create はスポットを作成する。
// 同一性キーが既に存在する場合は ErrUniqueViolation を返す。
func (r *PostgresPlaceRepo) Create(ctx context.Context, place *model.Place) error {
	categories := place.Categories
	if categories == nil {
		categories = []string{}
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO places (id, external_id, name, latitude, longitude, categories)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		place.ID, nullString(place.ExternalID), place.Name, place.Latitude, place.Longitude, pq.Array(categories),
	).Scan(&place.CreatedAt)
	if err != nil {
		return classifyError("failed to insert place", err)
	}
	return nil
}

// ListByMoodEventIDs はイベントIDごとの関連スポットを返す。
func (r *PostgresPlaceRepo) ListByMoodEventIDs(ctx context.Context, eventIDs []string) (map[string][]model.Place, error) {
	return placesByEventIDs(ctx, r.db, eventIDs)
}

// placesByEventIDs は関連テーブルを1回のクエリで引き、イベントIDでグループ化する。
// スポットは名前順で並ぶ。
func placesByEventIDs(ctx context.Context, q queryer, eventIDs []string) (map[string][]model.Place, error) {
	result := make(map[string][]model.Place)
	if len(eventIDs) == 0 {
		return result, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT mep.mood_event_id, p.id, p.external_id, p.name, p.latitude, p.longitude, p.categories, p.created_at
		 FROM mood_events_places mep
		 JOIN places p ON p.id = mep.place_id
		 WHERE mep.mood_event_id = ANY($1::uuid[])
		 ORDER BY p.name, p.id`,
		pq.Array(eventIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list places by mood events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID string
		var p model.Place
		var externalID sql.NullString
		var categories pq.StringArray
		if err := rows.Scan(&eventID, &p.ID, &externalID, &p.Name, &p.Latitude, &p.Longitude, &categories, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		p.ExternalID = nullStringValue(externalID)
		p.Categories = []string(categories)
		result[eventID] = append(result[eventID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate place rows: %w", err)
	}

	return result, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

var _ PlaceRepository = (*PostgresPlaceRepo)(nil)
