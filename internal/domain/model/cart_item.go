package model

// カートの明細（映画1本）
// 追加後は変更しない。同一性はIDで判定。
type CartItem struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	PosterPath *string `json:"poster_path"`
}

// 購入時点のCartItemのスナップショット
type PurchaseRecord struct {
	ID         int64   `json:"id" firestore:"id"`
	Title      string  `json:"title" firestore:"title"`
	PosterPath *string `json:"poster_path" firestore:"poster_path"`
}

func (i CartItem) ToPurchase() PurchaseRecord {
	return PurchaseRecord{ID: i.ID, Title: i.Title, PosterPath: i.PosterPath}
}

// 購入履歴（追記のみ）
type PurchaseHistory []PurchaseRecord

// IDsは購入済みIDの集合を返す
func (h PurchaseHistory) IDs() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(h))
	for _, p := range h {
		ids[p.ID] = struct{}{}
	}
	return ids
}

// Containsは購入済みか
func (h PurchaseHistory) Contains(id int64) bool {
	for _, p := range h {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Mergeは和集合で追記する（既にあるIDは無視、順序は変えない）
func (h PurchaseHistory) Merge(records []PurchaseRecord) PurchaseHistory {
	seen := h.IDs()
	out := make(PurchaseHistory, len(h), len(h)+len(records))
	copy(out, h)
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
