package model

import "time"

type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderGoogle   Provider = "google.com"
)

// 認証サービス側のユーザー（ローカル実装ではusersテーブル）
type User struct {
	ID           string   `gorm:"type:varchar(64);primaryKey"`
	Email        string   `gorm:"uniqueIndex;not null"`
	PasswordHash string   `gorm:"column:password_hash"`
	DisplayName  string   `gorm:"type:varchar(255)"`
	Provider     Provider `gorm:"type:varchar(32);not null;default:'password'"`
	// 外部IdPのsubject（federatedのみ）
	ExternalID  *string `gorm:"uniqueIndex"`
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// 認証結果として扱うID情報
type Identity struct {
	UID         string   `json:"uid"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Provider    Provider `json:"provider"`
}

// ログイン中のユーザー（ブラウザ側セッションに保存される形）
type UserSession struct {
	UID            string          `json:"uid"`
	Token          string          `json:"token"`
	TokenExpiresAt time.Time       `json:"token_expires_at"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Provider       Provider        `json:"provider"`
	FavoriteGenres []int           `json:"favorite_genres"`
	Purchases      PurchaseHistory `json:"-"`
}

func (u *UserSession) IsPasswordUser() bool {
	return u != nil && u.Provider == ProviderPassword
}
