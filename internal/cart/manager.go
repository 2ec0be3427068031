// Package cart はクライアントごとのカート（購入前の映画リスト）を扱う。
package cart

import (
	"context"
	"fmt"

	"moviestore/internal/domain/model"
	"moviestore/internal/localstore"
)

// Managerは順序付きカートをメモリに持ち、変更のたびにストアへ書き込む。
// 排他は呼び出し側（storefront）で行う。
type Manager struct {
	store localstore.Store
	items []model.CartItem
}

func NewManager(store localstore.Store) *Manager {
	return &Manager{store: store, items: []model.CartItem{}}
}

// Loadはストアからカートを復元する。壊れた値は空として扱いエラーを返す。
func (m *Manager) Load(ctx context.Context) error {
	var items []model.CartItem
	if _, err := localstore.GetJSON(ctx, m.store, localstore.KeyCartItems, &items); err != nil {
		m.items = []model.CartItem{}
		return err
	}

	//保存値に重複があっても先勝ちで1つにする
	m.items = []model.CartItem{}
	for _, it := range items {
		if !m.IsInCart(it.ID) {
			m.items = append(m.items, it)
		}
	}
	return nil
}

// Addは同じIDが無ければ末尾に追加する。あればno-op。
func (m *Manager) Add(ctx context.Context, item model.CartItem) (bool, error) {
	if m.IsInCart(item.ID) {
		return false, nil
	}
	m.items = append(m.items, item)
	return true, m.persist(ctx)
}

// Removeは一致するIDを取り除く。無ければno-op。
func (m *Manager) Remove(ctx context.Context, itemID int64) (bool, error) {
	for i, it := range m.items {
		if it.ID == itemID {
			m.items = append(m.items[:i:i], m.items[i+1:]...)
			return true, m.persist(ctx)
		}
	}
	return false, nil
}

// Listは現在のカートのコピー
func (m *Manager) List() []model.CartItem {
	out := make([]model.CartItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) Len() int {
	return len(m.items)
}

// Clearは空にする（メモリとストア両方）
func (m *Manager) Clear(ctx context.Context) error {
	m.items = []model.CartItem{}
	return m.persist(ctx)
}

// Discardはメモリを空にしてストアのキー自体を消す（ID切替時）
func (m *Manager) Discard(ctx context.Context) error {
	m.items = []model.CartItem{}
	if err := m.store.Delete(ctx, localstore.KeyCartItems); err != nil {
		return fmt.Errorf("cart: discard: %w", err)
	}
	return nil
}

func (m *Manager) IsInCart(itemID int64) bool {
	for _, it := range m.items {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

// Eligibleは購入済みIDを除いたカート（表示・購入対象）
func (m *Manager) Eligible(history model.PurchaseHistory) []model.CartItem {
	return Eligible(m.items, history)
}

func (m *Manager) persist(ctx context.Context) error {
	if err := localstore.SetJSON(ctx, m.store, localstore.KeyCartItems, m.items); err != nil {
		return fmt.Errorf("cart: persist: %w", err)
	}
	return nil
}
