// Package session はクライアントのログイン状態（identity・ジャンル・購入履歴キャッシュ）を持つ。
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"moviestore/internal/domain/model"
	"moviestore/internal/localstore"
)

var ErrNotLoggedIn = errors.New("not logged in")

// 購入台帳からの読み取り
type PurchaseSource interface {
	FindByUID(ctx context.Context, uid string) (*model.Account, error)
}

// identityが変わったらカートを捨てる
type CartDiscarder interface {
	Discard(ctx context.Context) error
}

// Managerはstorefrontのロック下で使う（自前の排他は持たない）
type Manager struct {
	store  localstore.Store
	cart   CartDiscarder
	ledger PurchaseSource

	user      *model.UserSession
	genres    []int
	purchases model.PurchaseHistory
}

func NewManager(store localstore.Store, cart CartDiscarder, ledger PurchaseSource) *Manager {
	return &Manager{
		store:     store,
		cart:      cart,
		ledger:    ledger,
		genres:    []int{},
		purchases: model.PurchaseHistory{},
	}
}

// Loadはストアから復元する。壊れたキーは空扱いにして最初のエラーを返す。
func (m *Manager) Load(ctx context.Context) error {
	var errs []error

	var user *model.UserSession
	if _, err := localstore.GetJSON(ctx, m.store, localstore.KeyUser, &user); err != nil {
		errs = append(errs, err)
		user = nil
	}
	m.user = user

	genres := []int{}
	if _, err := localstore.GetJSON(ctx, m.store, localstore.KeyGenrePreferences, &genres); err != nil {
		errs = append(errs, err)
		genres = []int{}
	}
	m.genres = genres

	purchases := model.PurchaseHistory{}
	if _, err := localstore.GetJSON(ctx, m.store, localstore.KeyPreviousPurchases, &purchases); err != nil {
		errs = append(errs, err)
		purchases = model.PurchaseHistory{}
	}
	m.purchases = model.PurchaseHistory{}.Merge(purchases)

	if m.user != nil {
		m.user.Purchases = m.purchases
	}
	return errors.Join(errs...)
}

// Currentはログイン中ユーザーのコピー（未ログインはnil）
func (m *Manager) Current() *model.UserSession {
	if m.user == nil {
		return nil
	}
	u := *m.user
	u.FavoriteGenres = slices.Clone(m.user.FavoriteGenres)
	u.Purchases = m.Purchases()
	return &u
}

func (m *Manager) IsLoggedIn() bool {
	return m.user != nil && m.user.UID != ""
}

func (m *Manager) UID() string {
	if m.user == nil {
		return ""
	}
	return m.user.UID
}

func (m *Manager) Genres() []int {
	return slices.Clone(m.genres)
}

func (m *Manager) Purchases() model.PurchaseHistory {
	return slices.Clone(m.purchases)
}

// SetIdentityはログイン・ログアウト・切替を反映する。
// UIDが変わるときは先にカートを捨て、新しいidentityの履歴とジャンルを採用する。
// 同じUIDなら（プロフィール更新など）カートは残す。
func (m *Manager) SetIdentity(ctx context.Context, next *model.UserSession) error {
	return m.setIdentity(ctx, next, m.UID() != uidOf(next))
}

// Loginは同じUIDでの再ログインも切替として扱う（カートを捨てて台帳の内容を採用）
func (m *Manager) Login(ctx context.Context, user *model.UserSession) error {
	if user == nil {
		return ErrNotLoggedIn
	}
	return m.setIdentity(ctx, user, true)
}

func (m *Manager) setIdentity(ctx context.Context, next *model.UserSession, transition bool) error {
	if transition {
		if err := m.cart.Discard(ctx); err != nil {
			return err
		}
		if next == nil {
			m.genres = []int{}
			m.purchases = model.PurchaseHistory{}
		} else {
			m.genres = slices.Clone(next.FavoriteGenres)
			if m.genres == nil {
				m.genres = []int{}
			}
			m.purchases = model.PurchaseHistory{}.Merge(next.Purchases)
		}
	}

	if next == nil {
		m.user = nil
	} else {
		u := *next
		u.FavoriteGenres = slices.Clone(next.FavoriteGenres)
		u.Purchases = nil
		m.user = &u
	}

	return m.persistAll(ctx)
}

func (m *Manager) Logout(ctx context.Context) error {
	return m.SetIdentity(ctx, nil)
}

// UpdateProfileは同じidentityの名前を変える
func (m *Manager) UpdateProfile(ctx context.Context, firstName string, lastName string) error {
	if m.user == nil {
		return ErrNotLoggedIn
	}
	m.user.FirstName = firstName
	m.user.LastName = lastName
	return m.persistUser(ctx)
}

func (m *Manager) SetGenres(ctx context.Context, genres []int) error {
	if m.user == nil {
		return ErrNotLoggedIn
	}
	m.genres = slices.Clone(genres)
	m.user.FavoriteGenres = slices.Clone(genres)
	if err := m.persistUser(ctx); err != nil {
		return err
	}
	return localstore.SetJSON(ctx, m.store, localstore.KeyGenrePreferences, m.genres)
}

// MergePurchasesは和集合でキャッシュに足す
func (m *Manager) MergePurchases(ctx context.Context, records []model.PurchaseRecord) error {
	m.purchases = m.purchases.Merge(records)
	return m.persistPurchases(ctx)
}

// ApplyPurchasesは台帳から読んだ履歴を反映する。
// 読んでいる間にidentityが変わっていたら捨てる（falseを返す）。
// 台帳側に無い手元の履歴も残す（履歴は減らない）。
func (m *Manager) ApplyPurchases(ctx context.Context, uid string, history model.PurchaseHistory) (bool, error) {
	if uid == "" || uid != m.UID() {
		return false, nil
	}
	m.purchases = model.PurchaseHistory{}.Merge(history).Merge(m.purchases)
	return true, m.persistPurchases(ctx)
}

// RefreshPurchasesは台帳から履歴を取り直す
func (m *Manager) RefreshPurchases(ctx context.Context) error {
	uid := m.UID()
	if uid == "" {
		return ErrNotLoggedIn
	}
	acct, err := m.ledger.FindByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("session: refresh purchases: %w", err)
	}
	_, err = m.ApplyPurchases(ctx, uid, acct.Purchases)
	return err
}

func (m *Manager) persistAll(ctx context.Context) error {
	if err := m.persistUser(ctx); err != nil {
		return err
	}
	if err := localstore.SetJSON(ctx, m.store, localstore.KeyGenrePreferences, m.genres); err != nil {
		return err
	}
	return m.persistPurchases(ctx)
}

func (m *Manager) persistUser(ctx context.Context) error {
	return localstore.SetJSON(ctx, m.store, localstore.KeyUser, m.user)
}

func (m *Manager) persistPurchases(ctx context.Context) error {
	return localstore.SetJSON(ctx, m.store, localstore.KeyPreviousPurchases, m.purchases)
}

func uidOf(u *model.UserSession) string {
	if u == nil {
		return ""
	}
	return u.UID
}
