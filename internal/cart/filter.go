package cart

import "moviestore/internal/domain/model"

// 一覧画面のボタン表示
type Status string

const (
	StatusBuy       Status = "Buy"
	StatusAdded     Status = "Added"
	StatusPurchased Status = "Purchased"
)

// IsPurchasedは購入履歴にIDがあるか
func IsPurchased(itemID int64, history model.PurchaseHistory) bool {
	return history.Contains(itemID)
}

// Eligibleはitemsから購入済みを除く（順序は保持）
func Eligible(items []model.CartItem, history model.PurchaseHistory) []model.CartItem {
	purchased := history.IDs()
	out := make([]model.CartItem, 0, len(items))
	for _, it := range items {
		if _, ok := purchased[it.ID]; ok {
			continue
		}
		out = append(out, it)
	}
	return out
}

// StatusForは購入済みを優先して表示状態を返す
func StatusFor(itemID int64, inCart bool, history model.PurchaseHistory) Status {
	switch {
	case IsPurchased(itemID, history):
		return StatusPurchased
	case inCart:
		return StatusAdded
	default:
		return StatusBuy
	}
}
