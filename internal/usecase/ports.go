package usecase

import (
	"context"
	"time"

	"moviestore/internal/cart"
	"moviestore/internal/domain/model"
	"moviestore/internal/storefront"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, in RegisterInput) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateProfile(ctx context.Context, firstName string, lastName string) error
	ValidatePasswordChange(ctx context.Context, in ChangePasswordInput) error
	ValidateGenres(ctx context.Context, genres []int) error
}

// 認証サービス（infra/identity.Provider）
type IdentityService interface {
	SignUp(ctx context.Context, email string, password string, displayName string) (model.Identity, error)
	SignIn(ctx context.Context, email string, password string) (model.Identity, error)
	SignInFederated(ctx context.Context, idToken string) (model.Identity, error)
	Reauthenticate(ctx context.Context, uid string, password string) error
	UpdatePassword(ctx context.Context, uid string, newPassword string) error
	UpdateDisplayName(ctx context.Context, uid string, displayName string) error
}

// identity tokenの発行
type TokenIssuer interface {
	Issue(id model.Identity, now time.Time) (string, time.Time, error)
}

// 映画カタログ（infra/catalog.Client）
type Catalog interface {
	NowPlaying(ctx context.Context, page int) (model.MoviePage, error)
	DiscoverByGenre(ctx context.Context, genreID int, page int) (model.MoviePage, error)
	Search(ctx context.Context, query string, page int) (model.MoviePage, error)
	Movie(ctx context.Context, id int64) (model.Movie, error)
	Trailers(ctx context.Context, id int64) ([]model.Video, error)
}

// Sessionはクライアント1つ分のログイン状態（*storefront.Storefront）
type Session interface {
	Identity() *model.UserSession
	Login(ctx context.Context, user *model.UserSession) error
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, firstName string, lastName string) error
	SetGenres(ctx context.Context, genres []int) error
	Genres() []int
	Purchases() model.PurchaseHistory
	RefreshPurchases(ctx context.Context) error
}

// Cartはクライアント1つ分のカート画面（*storefront.Storefront）
type Cart interface {
	CartView() storefront.CartView
	AddToCart(ctx context.Context, item model.CartItem) (bool, error)
	RemoveFromCart(ctx context.Context, itemID int64) (bool, error)
	NextPage() storefront.CartView
	PrevPage() storefront.CartView
	Checkout(ctx context.Context) (storefront.CartView, error)
	DismissCheckout() storefront.CartView
}

// 一覧にBuy/Added/Purchasedをつける（*storefront.Storefront）
type Annotator interface {
	Annotate(movies []model.Movie) []storefront.ListedMovie
	StatusOf(movieID int64) cart.Status
}

var (
	_ Session   = (*storefront.Storefront)(nil)
	_ Cart      = (*storefront.Storefront)(nil)
	_ Annotator = (*storefront.Storefront)(nil)
)
