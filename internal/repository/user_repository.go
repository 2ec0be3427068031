package repository

import (
	"context"
	"errors"

	"moviestore/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// メール重複
var ErrEmailTaken = errors.New("email already exists")

// 認証用ユーザーの保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（メール重複はErrEmailTaken）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID string) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//外部IdPのsubjectから取得する
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)
	// パスワード・表示名・最終ログインなどの更新
	Update(ctx context.Context, user *model.User) error
}
