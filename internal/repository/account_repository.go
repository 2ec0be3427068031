package repository

import (
	"context"
	"errors"

	"moviestore/internal/domain/model"
)

var (
	// 台帳にユーザードキュメントが無い
	ErrAccountNotFound = errors.New("account not found")
	// 既に登録済み
	ErrAccountExists = errors.New("account already exists")
)

// LedgerErrorは台帳側の失敗。Detailは画面に出してよい短い説明（無ければ空）。
type LedgerError struct {
	Op     string
	Detail string
	Err    error
}

func (e *LedgerError) Error() string {
	return "ledger " + e.Op + ": " + e.Err.Error()
}

func (e *LedgerError) Unwrap() error { return e.Err }

// 購入台帳（ユーザーごとのドキュメント）を約束
type AccountRepository interface {
	Create(ctx context.Context, acct *model.Account) error
	// 購入履歴込みで1件取得
	FindByUID(ctx context.Context, uid string) (*model.Account, error)
	// 購入履歴へ和集合で追記（既にあるIDは増やさない）
	AppendPurchases(ctx context.Context, uid string, records []model.PurchaseRecord) error
	UpdateName(ctx context.Context, uid string, firstName string, lastName string) error
	UpdateFavoriteGenres(ctx context.Context, uid string, genres []int) error
}
