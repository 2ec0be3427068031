package cart

import "moviestore/internal/domain/model"

const DefaultPageSize = 5

// Pagerはフィルタ済みカートの表示ページを持つ
type Pager struct {
	size int
	page int
}

func NewPager(size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{size: size, page: 1}
}

type PageView struct {
	Items      []model.CartItem `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	PageSize   int              `json:"page_size"`
	Count      int              `json:"count"`
}

func (p *Pager) Page() int { return p.page }

func (p *Pager) Size() int { return p.size }

// TotalPagesは最低1
func (p *Pager) TotalPages(count int) int {
	if count <= 0 {
		return 1
	}
	return (count + p.size - 1) / p.size
}

// Reconcileは件数が現在ページの下限以下に減ったら1ページ目へ戻す。
// remove・checkoutのたびに呼ぶ。
func (p *Pager) Reconcile(count int) {
	if p.page > p.TotalPages(count) {
		p.page = 1
	}
}

func (p *Pager) Reset() { p.page = 1 }

func (p *Pager) Next(count int) {
	if p.page < p.TotalPages(count) {
		p.page++
	}
}

func (p *Pager) Prev() {
	if p.page > 1 {
		p.page--
	}
}

// Viewはitems（フィルタ済み）の現在ページを切り出す
func (p *Pager) View(items []model.CartItem) PageView {
	p.Reconcile(len(items))

	start := (p.page - 1) * p.size
	end := start + p.size
	if end > len(items) {
		end = len(items)
	}
	page := make([]model.CartItem, 0, end-start)
	page = append(page, items[start:end]...)

	return PageView{
		Items:      page,
		Page:       p.page,
		TotalPages: p.TotalPages(len(items)),
		PageSize:   p.size,
		Count:      len(items),
	}
}
