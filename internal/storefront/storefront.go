// Package storefront はブラウザクライアント1つ分の状態コンテナ。
//
// カート・セッション・checkout・ページャ・検索debounceを1つのmutexで直列化する
// （ブラウザのイベントループ相当）。リモート呼び出しの間はmutexを持たない。
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moviestore/internal/cart"
	"moviestore/internal/checkout"
	"moviestore/internal/domain/model"
	"moviestore/internal/metrics"
	"moviestore/internal/search"
	"moviestore/internal/session"
)

// checkout処理中はカートを変更できない
var ErrCheckoutBusy = errors.New("cart is locked while checkout is processing")

// 検索に使うカタログ
type Catalog interface {
	Search(ctx context.Context, query string, page int) (model.MoviePage, error)
}

// 一覧に出す映画（ボタン表示つき）
type ListedMovie struct {
	model.Movie
	Status cart.Status `json:"status"`
}

// カート画面
type CartView struct {
	cart.PageView
	Checkout   checkout.Status `json:"checkout"`
	Processing bool            `json:"processing"`
}

// 最後にdispatchされた検索（遷移先）
type SearchResult struct {
	Query   string          `json:"query"`
	Results model.MoviePage `json:"results"`
	Error   string          `json:"error,omitempty"`
	At      time.Time       `json:"at"`
}

type Storefront struct {
	mu       sync.Mutex
	clientID string

	cart      *cart.Manager
	session   *session.Manager
	pager     *cart.Pager
	checkout  *checkout.Orchestrator
	debouncer *search.Debouncer

	ledger        checkout.Ledger
	catalog       Catalog
	recorder      *metrics.Recorder
	log           *slog.Logger
	searchTimeout time.Duration

	searchSeq  uint64
	lastSearch *SearchResult
	lastSeen   time.Time
}

func (s *Storefront) ClientID() string {
	return s.clientID
}

// ---- cart ----

func (s *Storefront) CartView() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartViewLocked()
}

func (s *Storefront) AddToCart(ctx context.Context, item model.CartItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout.Processing() {
		return false, ErrCheckoutBusy
	}
	return s.cart.Add(ctx, item)
}

// RemoveFromCartは削除後にページを合わせ直す
func (s *Storefront) RemoveFromCart(ctx context.Context, itemID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout.Processing() {
		return false, ErrCheckoutBusy
	}
	removed, err := s.cart.Remove(ctx, itemID)
	s.pager.Reconcile(len(s.cart.Eligible(s.session.Purchases())))
	return removed, err
}

func (s *Storefront) NextPage() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Next(len(s.cart.Eligible(s.session.Purchases())))
	return s.cartViewLocked()
}

func (s *Storefront) PrevPage() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pager.Prev()
	return s.cartViewLocked()
}

// Checkoutはorchestratorが自分でlockを取る
func (s *Storefront) Checkout(ctx context.Context) (CartView, error) {
	if _, err := s.checkout.Checkout(ctx); err != nil {
		return CartView{}, err
	}
	return s.CartView(), nil
}

func (s *Storefront) DismissCheckout() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkout.Dismiss()
	return s.cartViewLocked()
}

func (s *Storefront) cartViewLocked() CartView {
	eligible := s.cart.Eligible(s.session.Purchases())
	return CartView{
		PageView:   s.pager.View(eligible),
		Checkout:   s.checkout.Status(),
		Processing: s.checkout.Processing(),
	}
}

// ---- session ----

func (s *Storefront) Identity() *model.UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Current()
}

// SetIdentityはidentityの差し替え・ログアウト。UIDが変わればカートは捨てられる。
func (s *Storefront) SetIdentity(ctx context.Context, user *model.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.SetIdentity(ctx, user); err != nil {
		return err
	}
	s.pager.Reset()
	return nil
}

// Loginはログイン・登録の完了時。同じUIDでもカートは捨てる。
func (s *Storefront) Login(ctx context.Context, user *model.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Login(ctx, user); err != nil {
		return err
	}
	s.pager.Reset()
	return nil
}

func (s *Storefront) Logout(ctx context.Context) error {
	return s.SetIdentity(ctx, nil)
}

func (s *Storefront) UpdateProfile(ctx context.Context, firstName string, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.UpdateProfile(ctx, firstName, lastName)
}

func (s *Storefront) SetGenres(ctx context.Context, genres []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.SetGenres(ctx, genres)
}

func (s *Storefront) Genres() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Genres()
}

func (s *Storefront) Purchases() model.PurchaseHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Purchases()
}

// RefreshPurchasesは台帳から履歴を取り直す（失敗時は手元の履歴のまま）。
// 台帳を読む間はmutexを外す。読んでいる間にidentityが変わったら結果は捨てる。
func (s *Storefront) RefreshPurchases(ctx context.Context) error {
	s.mu.Lock()
	uid := s.session.UID()
	s.mu.Unlock()
	if uid == "" {
		return session.ErrNotLoggedIn
	}

	acct, err := s.ledger.FindByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("storefront: refresh purchases: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.session.ApplyPurchases(ctx, uid, acct.Purchases)
	return err
}

// ---- catalog ----

// Annotateは一覧の各映画にBuy/Added/Purchasedをつける
func (s *Storefront) Annotate(movies []model.Movie) []ListedMovie {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.session.Purchases()
	out := make([]ListedMovie, 0, len(movies))
	for _, m := range movies {
		out = append(out, ListedMovie{
			Movie:  m,
			Status: cart.StatusFor(m.ID, s.cart.IsInCart(m.ID), history),
		})
	}
	return out
}

func (s *Storefront) StatusOf(movieID int64) cart.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cart.StatusFor(movieID, s.cart.IsInCart(movieID), s.session.Purchases())
}

// ---- search ----

func (s *Storefront) TriggerSearch(query string) {
	s.debouncer.Trigger(query)
}

// SubmitSearchはすぐに検索してその結果を返す
func (s *Storefront) SubmitSearch(query string) (SearchResult, bool) {
	if !s.debouncer.Submit(query) {
		return SearchResult{}, false
	}
	return s.LastSearch()
}

func (s *Storefront) LastSearch() (SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSearch == nil {
		return SearchResult{}, false
	}
	return *s.lastSearch, true
}

// runSearchはdebouncerから呼ばれる。後からdispatchされたものが勝つ。
func (s *Storefront) runSearch(query string) {
	s.recorder.SearchDispatched()

	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	res := SearchResult{Query: query}
	if s.catalog == nil {
		res.Error = "search is unavailable"
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), s.searchTimeout)
		page, err := s.catalog.Search(ctx, query, 1)
		cancel()
		if err != nil {
			s.log.Warn("search failed", "client", s.clientID, "query", query, "err", err)
			res.Error = "Error fetching movies."
		} else {
			res.Results = page
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.searchSeq {
		return
	}
	res.At = time.Now()
	s.lastSearch = &res
}

// ---- lifecycle ----

func (s *Storefront) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// evictableは一定時間触られておらず、checkout中でもない
func (s *Storefront) evictable(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff) && !s.checkout.Processing()
}

// Closeは保留中の検索を捨てる
func (s *Storefront) Close() {
	s.debouncer.Stop()
}
