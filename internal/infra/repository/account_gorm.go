package repository

import (
	"context"
	"errors"
	"time"

	"moviestore/internal/domain/model"
	repo "moviestore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountGormRepository struct {
	db *gorm.DB
}

// DI
func NewAccountGormRepository(db *gorm.DB) *AccountGormRepository {
	return &AccountGormRepository{db: db}
}

var _ repo.AccountRepository = (*AccountGormRepository)(nil)

// ユーザードキュメントを作成（既にあればErrAccountExists）
func (r *AccountGormRepository) Create(ctx context.Context, acct *model.Account) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acct).Error; err != nil {
			if isUniqueViolation(err) {
				return repo.ErrAccountExists
			}
			return err
		}
		return insertPurchases(tx, acct.UID, acct.Purchases)
	})
	return err
}

// 購入履歴込みで取得
func (r *AccountGormRepository) FindByUID(ctx context.Context, uid string) (*model.Account, error) {
	var acct model.Account

	err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	//購入順に並べる
	var rows []model.Purchase
	if err := r.db.WithContext(ctx).
		Where("account_uid = ?", uid).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	acct.Purchases = make(model.PurchaseHistory, 0, len(rows))
	for _, p := range rows {
		acct.Purchases = append(acct.Purchases, p.ToRecord())
	}
	return &acct, nil
}

// 和集合で追記。既にあるIDはON CONFLICTで無視。
func (r *AccountGormRepository) AppendPurchases(ctx context.Context, uid string, records []model.PurchaseRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Account{}).Where("uid = ?", uid).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repo.ErrAccountNotFound
		}

		if err := insertPurchases(tx, uid, records); err != nil {
			return err
		}

		return tx.Model(&model.Account{}).
			Where("uid = ?", uid).
			Update("updated_at", time.Now()).Error
	})
	return pgLedgerError("append purchases", err)
}

func (r *AccountGormRepository) UpdateName(ctx context.Context, uid string, firstName string, lastName string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("uid = ?", uid).
		Updates(map[string]any{
			"first_name": firstName,
			"last_name":  lastName,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrAccountNotFound
	}
	return nil
}

func (r *AccountGormRepository) UpdateFavoriteGenres(ctx context.Context, uid string, genres []int) error {
	acct := model.Account{FavoriteGenres: genres}
	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("uid = ?", uid).
		Select("favorite_genres").
		Updates(&acct)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrAccountNotFound
	}
	return nil
}

// 1回のINSERT内でも重複しないよう先にIDで畳む
func insertPurchases(tx *gorm.DB, uid string, records []model.PurchaseRecord) error {
	merged := model.PurchaseHistory(nil).Merge(records)
	if len(merged) == 0 {
		return nil
	}

	rows := make([]model.Purchase, 0, len(merged))
	for _, rec := range merged {
		rows = append(rows, model.Purchase{
			AccountUID: uid,
			MovieID:    rec.ID,
			Title:      rec.Title,
			PosterPath: rec.PosterPath,
		})
	}

	return tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_uid"}, {Name: "movie_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}
