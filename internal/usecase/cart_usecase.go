package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"moviestore/internal/checkout"
	"moviestore/internal/domain/model"
	"moviestore/internal/storefront"
)

// CartUsecase は /cart の業務ロジックです。
// 状態はクライアントごとのStorefrontが持ち、ここは入力の検証とエラーの変換だけ。
type CartUsecase struct {
	log *slog.Logger
}

func NewCartUsecase(log *slog.Logger) *CartUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &CartUsecase{log: log}
}

// 追加する映画（一覧・詳細から渡される形）
type AddCartInput struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	PosterPath *string `json:"poster_path"`
}

type CartMutationResponse struct {
	storefront.CartView
	Changed bool `json:"changed"`
}

func (u *CartUsecase) View(ctx context.Context, c Cart) storefront.CartView {
	return c.CartView()
}

// Addは同じIDがあれば何もしない（Changed=false）。購入済みでも追加はできる。
func (u *CartUsecase) Add(ctx context.Context, c Cart, in AddCartInput) (CartMutationResponse, error) {
	if in.ID <= 0 {
		return CartMutationResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return CartMutationResponse{}, NewHTTPError(http.StatusBadRequest, "invalid title")
	}

	added, err := c.AddToCart(ctx, model.CartItem{ID: in.ID, Title: title, PosterPath: in.PosterPath})
	if err != nil {
		return CartMutationResponse{}, u.cartError("add", err)
	}
	return CartMutationResponse{CartView: c.CartView(), Changed: added}, nil
}

func (u *CartUsecase) Remove(ctx context.Context, c Cart, itemID int64) (CartMutationResponse, error) {
	if itemID <= 0 {
		return CartMutationResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	removed, err := c.RemoveFromCart(ctx, itemID)
	if err != nil {
		return CartMutationResponse{}, u.cartError("remove", err)
	}
	return CartMutationResponse{CartView: c.CartView(), Changed: removed}, nil
}

func (u *CartUsecase) Next(ctx context.Context, c Cart) storefront.CartView {
	return c.NextPage()
}

func (u *CartUsecase) Prev(ctx context.Context, c Cart) storefront.CartView {
	return c.PrevPage()
}

// Checkoutの失敗（未ログイン・全て購入済み・台帳エラー）は画面のメッセージで返す。
// errorになるのは処理中の2回目だけ。
func (u *CartUsecase) Checkout(ctx context.Context, c Cart) (storefront.CartView, error) {
	view, err := c.Checkout(ctx)
	if err != nil {
		return storefront.CartView{}, u.cartError("checkout", err)
	}
	return view, nil
}

func (u *CartUsecase) Dismiss(ctx context.Context, c Cart) storefront.CartView {
	return c.DismissCheckout()
}

func (u *CartUsecase) cartError(op string, err error) error {
	switch {
	case errors.Is(err, storefront.ErrCheckoutBusy):
		return newError(ErrConflict, "Checkout is in progress. Please wait.")
	case errors.Is(err, checkout.ErrInProgress):
		return newError(ErrConflict, "Checkout is already in progress.")
	}
	// 保存失敗はメモリ上の状態には反映済み
	u.log.Error("cart: persist failed", "op", op, "err", err)
	return err
}
