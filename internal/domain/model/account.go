package model

import "time"

// 台帳上のユーザードキュメント（プロフィール・好きなジャンル・購入履歴）
type Account struct {
	UID            string          `gorm:"type:varchar(64);primaryKey" json:"uid" firestore:"-"`
	FirstName      string          `gorm:"type:varchar(255)" json:"first_name" firestore:"firstName"`
	LastName       string          `gorm:"type:varchar(255)" json:"last_name" firestore:"lastName"`
	Email          string          `gorm:"type:varchar(255);index" json:"email" firestore:"email"`
	FavoriteGenres []int           `gorm:"serializer:json" json:"favorite_genres" firestore:"favoriteGenres"`
	Purchases      PurchaseHistory `gorm:"-" json:"purchase_history" firestore:"purchaseHistory"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at" firestore:"updatedAt"`
}

// 購入履歴の1行（RDB用）
// (account_uid, movie_id) で一意 = 和集合
type Purchase struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	AccountUID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_purchase_account_movie"`
	MovieID    int64     `gorm:"not null;uniqueIndex:idx_purchase_account_movie"`
	Title      string    `gorm:"type:varchar(255);not null"`
	PosterPath *string   `gorm:"type:varchar(255)"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
}

func (p Purchase) ToRecord() PurchaseRecord {
	return PurchaseRecord{ID: p.MovieID, Title: p.Title, PosterPath: p.PosterPath}
}
