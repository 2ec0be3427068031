package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"moviestore/internal/checkout"
	"moviestore/internal/domain/model"
	"moviestore/internal/infra/token"
	"moviestore/internal/localstore"
	"moviestore/internal/middleware"
	"moviestore/internal/repository"
	"moviestore/internal/storefront"
	"moviestore/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 追記を記録する台帳
type recordingLedger struct {
	mu       sync.Mutex
	appended map[string][]model.PurchaseRecord
}

func (l *recordingLedger) AppendPurchases(ctx context.Context, uid string, records []model.PurchaseRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appended[uid] = append(l.appended[uid], records...)
	return nil
}

func (l *recordingLedger) FindByUID(ctx context.Context, uid string) (*model.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &model.Account{UID: uid, Purchases: model.PurchaseHistory{}.Merge(l.appended[uid])}, nil
}

func (l *recordingLedger) count(uid string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.appended[uid])
}

// 認証サービス側のユーザー（IDだけ見る）
type stubUsers struct {
	ids map[string]bool
}

func (u stubUsers) Create(ctx context.Context, user *model.User) error { return nil }

func (u stubUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !u.ids[id] {
		return nil, repository.ErrUserNotFound
	}
	return &model.User{ID: id}, nil
}

func (u stubUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (u stubUsers) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (u stubUsers) Update(ctx context.Context, user *model.User) error { return nil }

type cartResponse struct {
	Items      []model.CartItem `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Count      int              `json:"count"`
	Changed    bool             `json:"changed"`
	Checkout   checkout.Status  `json:"checkout"`
}

type cartFixture struct {
	e      *echo.Echo
	reg    *storefront.Registry
	issuer *token.JWTIssuer
	ledger *recordingLedger
}

// ClientSession + /cart だけのecho
func setupCartEcho(t *testing.T) *cartFixture {
	t.Helper()
	ledger := &recordingLedger{appended: map[string][]model.PurchaseRecord{}}
	reg := storefront.NewRegistry(storefront.Deps{
		Store:  localstore.NewMemoryStore(),
		Ledger: ledger,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(reg.Close)

	issuer := token.NewJWTIssuer("test-secret", time.Hour)
	users := stubUsers{ids: map[string]bool{"u1": true}}

	e := echo.New()
	api := e.Group("/api", middleware.ClientSession(reg, false))
	NewCartHandler(usecase.NewCartUsecase(nil)).RegisterRoutes(api, issuer, users)
	return &cartFixture{e: e, reg: reg, issuer: issuer, ledger: ledger}
}

// ログイン済みのブラウザを作る。issuedAtで期限切れトークンも作れる。
func (f *cartFixture) browserAs(t *testing.T, uid string, issuedAt time.Time) (*browser, *storefront.Storefront) {
	t.Helper()
	clientID := uuid.NewString()
	sf, err := f.reg.Get(context.Background(), clientID)
	require.NoError(t, err)

	raw, exp, err := f.issuer.Issue(model.Identity{UID: uid, Provider: model.ProviderPassword}, issuedAt)
	require.NoError(t, err)
	require.NoError(t, sf.SetIdentity(context.Background(), &model.UserSession{
		UID:            uid,
		Token:          raw,
		TokenExpiresAt: exp,
		Provider:       model.ProviderPassword,
	}))

	b := &browser{t: t, e: f.e, cookies: []*http.Cookie{{Name: middleware.ClientCookieName, Value: clientID}}}
	return b, sf
}

// cookieを引き継いでリクエストするクライアント
type browser struct {
	t       *testing.T
	e       *echo.Echo
	cookies []*http.Cookie
}

func (b *browser) do(method, path, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	b.e.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var out cartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out.Error
}

func TestCart_AddPersistsAcrossRequests(t *testing.T) {
	f := setupCartEcho(t)
	b, _ := f.browserAs(t, "u1", time.Now())

	rec := b.do(http.MethodPost, "/api/cart/items", `{"id":603,"title":"The Matrix"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeCart(t, rec)
	assert.True(t, out.Changed)
	assert.Equal(t, 1, out.Count)

	rec = b.do(http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeCart(t, rec)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(603), out.Items[0].ID)

	// 別のブラウザからは見えない
	other, _ := f.browserAs(t, "u1", time.Now())
	assert.Equal(t, 0, decodeCart(t, other.do(http.MethodGet, "/api/cart", "")).Count)
}

func TestCart_RemoveAndInvalidID(t *testing.T) {
	f := setupCartEcho(t)
	b, _ := f.browserAs(t, "u1", time.Now())
	b.do(http.MethodPost, "/api/cart/items", `{"id":1,"title":"A"}`)

	rec := b.do(http.MethodDelete, "/api/cart/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decodeErr(t, rec))

	rec = b.do(http.MethodDelete, "/api/cart/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeCart(t, rec)
	assert.True(t, out.Changed)
	assert.Equal(t, 0, out.Count)

	// 無い物を消しても変化なし
	rec = b.do(http.MethodDelete, "/api/cart/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeCart(t, rec).Changed)
}

func TestCart_AddValidation(t *testing.T) {
	f := setupCartEcho(t)
	b, _ := f.browserAs(t, "u1", time.Now())

	rec := b.do(http.MethodPost, "/api/cart/items", `{"id":0,"title":"A"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.do(http.MethodPost, "/api/cart/items", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decodeErr(t, rec))
}

func TestCart_CheckoutAndDismiss(t *testing.T) {
	f := setupCartEcho(t)
	b, sf := f.browserAs(t, "u1", time.Now())
	b.do(http.MethodPost, "/api/cart/items", `{"id":1,"title":"A"}`)

	rec := b.do(http.MethodPost, "/api/cart/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeCart(t, rec)
	assert.Equal(t, checkout.StateSuccess, out.Checkout.State)
	assert.Equal(t, checkout.MsgThankYou, out.Checkout.Message)
	assert.Equal(t, 0, out.Count)
	assert.Equal(t, 1, f.ledger.count("u1"))
	assert.True(t, sf.Purchases().Contains(1))

	rec = b.do(http.MethodPost, "/api/cart/dismiss", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.StateIdle, decodeCart(t, rec).Checkout.State)
}

func TestCart_RequiresLogin(t *testing.T) {
	f := setupCartEcho(t)
	b := &browser{t: t, e: f.e}

	rec := b.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You must be logged in.", decodeErr(t, rec))

	rec = b.do(http.MethodPost, "/api/cart/checkout", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 期限切れトークンでは台帳に書かない
func TestCart_CheckoutWithExpiredTokenIsRejected(t *testing.T) {
	f := setupCartEcho(t)
	b, sf := f.browserAs(t, "u1", time.Now())
	b.do(http.MethodPost, "/api/cart/items", `{"id":1,"title":"A"}`)

	// 同じクライアントのトークンを期限切れに差し替える
	raw, exp, err := f.issuer.Issue(model.Identity{UID: "u1"}, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, sf.SetIdentity(context.Background(), &model.UserSession{UID: "u1", Token: raw, TokenExpiresAt: exp}))
	require.Equal(t, 1, sf.CartView().Count)

	rec := b.do(http.MethodPost, "/api/cart/checkout", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Your session has expired. Please log in again.", decodeErr(t, rec))

	assert.Equal(t, 0, f.ledger.count("u1"))
	assert.Empty(t, sf.Purchases())
	assert.Equal(t, checkout.StateIdle, sf.CartView().Checkout.State)
	assert.Nil(t, sf.Identity())
}

// 認証サービスから消えたユーザーも同じ
func TestCart_CheckoutForRemovedUserIsRejected(t *testing.T) {
	f := setupCartEcho(t)
	b, sf := f.browserAs(t, "ghost", time.Now())
	_, err := sf.AddToCart(context.Background(), model.CartItem{ID: 1, Title: "A"})
	require.NoError(t, err)

	rec := b.do(http.MethodPost, "/api/cart/checkout", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, f.ledger.count("ghost"))
	assert.Nil(t, sf.Identity())
}
