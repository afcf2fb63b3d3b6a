package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrUniqueViolation は一意制約違反を表す。
	// 並行する作成処理と競合した場合に返るため、呼び出し元は再読み込みして再試行できる。
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation は存在しない行への参照を表す。
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

// PostgreSQLのエラーコード
const (
	pqCodeUniqueViolation     = "23505"
	pqCodeForeignKeyViolation = "23503"
	pqCodeInvalidText         = "22P02"
)

// classifyError はドライバーのエラーをリポジトリのセンチネルエラーに変換する。
// 該当しないエラーはopの文脈を付けてそのまま返す。
func classifyError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqCodeUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrUniqueViolation, pqErr.Constraint)
		case pqCodeForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrForeignKeyViolation, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isInvalidTextRepresentation はUUID等の型変換に失敗したエラーかどうかを返す。
func isInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqCodeInvalidText
}
