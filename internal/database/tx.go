package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxBeginner はトランザクション開始用のインターフェース。
// *sql.DB が満たす。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx はトランザクションを開始してfnを実行する。
// fnがnilを返した場合のみコミットし、エラーまたはpanicの場合は必ずロールバックする。
// panicはロールバック後に再送出する。
func WithTx(ctx context.Context, db TxBeginner, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
