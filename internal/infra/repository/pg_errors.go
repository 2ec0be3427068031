package repository

import (
	"context"
	"errors"
	"strings"
	"unicode"

	repo "moviestore/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 23505 = unique_violation
const pgUniqueViolation = "23505"

// unique違反か（pgxのエラー or gormの変換済みエラー）
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// pgLedgerErrorはpostgresの失敗を台帳エラーに包む。
// 台帳の番兵エラー（ErrAccountNotFoundなど）はそのまま返す。
func pgLedgerError(op string, err error) error {
	if err == nil || errors.Is(err, repo.ErrAccountNotFound) || errors.Is(err, repo.ErrAccountExists) {
		return err
	}
	return &repo.LedgerError{Op: op, Detail: pgDetail(err), Err: err}
}

func pgDetail(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "The purchase service did not respond in time."
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return sentence(pgErr.Message)
	}
	return ""
}

// 先頭を大文字・末尾にピリオド（1行・200文字まで）
func sentence(s string) string {
	s = strings.TrimSpace(strings.SplitN(s, "\n", 2)[0])
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	if len(r) > 200 {
		r = r[:200]
	}
	r[0] = unicode.ToUpper(r[0])
	s = string(r)
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
