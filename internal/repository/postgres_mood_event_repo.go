package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/moody/internal/database"
	"github.com/hitoshi/moody/internal/model"
)

// PostgresMoodEventRepo はPostgreSQLを使用したムードイベントリポジトリ。
type PostgresMoodEventRepo struct {
	db *sql.DB
}

// NewPostgresMoodEventRepo はPostgresMoodEventRepoを生成する。
func NewPostgresMoodEventRepo(db *sql.DB) *PostgresMoodEventRepo {
	return &PostgresMoodEventRepo{db: db}
}

// CreateWithPlaces はイベントとスポットへの関連を同一トランザクションで作成する。
// created_atはDB側のclock_timestamp()で付与する。
// 感情ラベルと座標が不正な場合はDBに問い合わせず検証エラーを返す。
func (r *PostgresMoodEventRepo) CreateWithPlaces(ctx context.Context, event *model.MoodEvent, placeIDs []string) error {
	if err := model.ValidateMoodInput(event.Sentiment, event.Latitude, event.Longitude); err != nil {
		return err
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO mood_events (id, user_id, sentiment, latitude, longitude)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING created_at`,
			event.ID, event.UserID, string(event.Sentiment), event.Latitude, event.Longitude,
		).Scan(&event.CreatedAt)
		if err != nil {
			return classifyError("failed to insert mood event", err)
		}

		// 同一スポットの重複リンクは1件にまとめる
		seen := make(map[string]struct{}, len(placeIDs))
		for _, placeID := range placeIDs {
			if _, dup := seen[placeID]; dup {
				continue
			}
			seen[placeID] = struct{}{}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO mood_events_places (mood_event_id, place_id) VALUES ($1, $2)`,
				event.ID, placeID,
			)
			if err != nil {
				return classifyError("failed to link place to mood event", err)
			}
		}
		return nil
	})
}

// List はフィルタ条件に一致するユーザーのイベントを関連スポット付きで返す。
// created_after / created_before は境界を含む。
func (r *PostgresMoodEventRepo) List(ctx context.Context, filter model.EventFilter) ([]*model.MoodEvent, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return []*model.MoodEvent{}, nil
		}
		return nil, fmt.Errorf("failed to list mood events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.MoodEvent, 0)
	ids := make([]string, 0)
	for rows.Next() {
		e := &model.MoodEvent{}
		var sentiment string
		if err := rows.Scan(&e.ID, &e.UserID, &sentiment, &e.Latitude, &e.Longitude, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mood event row: %w", err)
		}
		e.Sentiment = model.Sentiment(sentiment)
		e.Places = []model.Place{}
		events = append(events, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood event rows: %w", err)
	}

	places, err := placesByEventIDs(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if ps, ok := places[e.ID]; ok {
			e.Places = ps
		}
	}

	return events, nil
}

// buildListQuery はフィルタ条件からSELECT文と引数を組み立てる。
// user_idの条件は常に含まれる。
func buildListQuery(filter model.EventFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{filter.UserID}

	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Sentiment != nil {
		args = append(args, string(*filter.Sentiment))
		conds = append(conds, fmt.Sprintf("sentiment = $%d", len(args)))
	}

	query := `SELECT id, user_id, sentiment, latitude, longitude, created_at
		 FROM mood_events
		 WHERE ` + strings.Join(conds, " AND ") + `
		 ORDER BY created_at DESC, id DESC`
	return query, args
}

var _ MoodEventRepository = (*PostgresMoodEventRepo)(nil)
