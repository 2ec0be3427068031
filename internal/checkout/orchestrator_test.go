package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"moviestore/internal/cart"
	"moviestore/internal/domain/model"
	"moviestore/internal/localstore"
	"moviestore/internal/metrics"
	"moviestore/internal/repository"
	"moviestore/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mock: Ledger
// =====================

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AppendPurchases(ctx context.Context, uid string, records []model.PurchaseRecord) error {
	args := m.Called(ctx, uid, records)
	return args.Error(0)
}

func (m *MockLedger) FindByUID(ctx context.Context, uid string) (*model.Account, error) {
	args := m.Called(ctx, uid)
	a, _ := args.Get(0).(*model.Account)
	return a, args.Error(1)
}

// =====================
// Mock: Recorder
// =====================

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Checkout(result string) { m.Called(result) }
func (m *MockRecorder) Purchased(n int)        { m.Called(n) }
func (m *MockRecorder) RefreshFailed()         { m.Called() }

type fixture struct {
	mu       *sync.Mutex
	cart     *cart.Manager
	session  *session.Manager
	pager    *cart.Pager
	ledger   *MockLedger
	recorder *MockRecorder
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := localstore.NewMemoryStore()
	f := &fixture{
		mu:       &sync.Mutex{},
		cart:     cart.NewManager(store),
		pager:    cart.NewPager(5),
		ledger:   new(MockLedger),
		recorder: new(MockRecorder),
	}
	f.session = session.NewManager(store, f.cart, f.ledger)
	f.recorder.On("Checkout", mock.Anything).Maybe()
	f.recorder.On("Purchased", mock.Anything).Maybe()
	f.recorder.On("RefreshFailed").Maybe()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.orch = NewOrchestrator(f.mu, f.cart, f.session, f.pager, f.ledger, f.recorder, logger)
	return f
}

func (f *fixture) login(t *testing.T, uid string, history ...int64) {
	t.Helper()
	h := model.PurchaseHistory{}
	for _, id := range history {
		h = append(h, model.PurchaseRecord{ID: id})
	}
	require.NoError(t, f.session.SetIdentity(context.Background(), &model.UserSession{UID: uid, Purchases: h}))
}

func (f *fixture) add(t *testing.T, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := f.cart.Add(context.Background(), model.CartItem{ID: id, Title: "movie"})
		require.NoError(t, err)
	}
}

func recordIDs(records []model.PurchaseRecord) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestCheckout_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	f.add(t, 1)

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, MsgLoginRequired, st.Error)
	assert.Equal(t, 1, f.cart.Len())
	f.ledger.AssertNotCalled(t, "AppendPurchases", mock.Anything, mock.Anything, mock.Anything)
	f.recorder.AssertCalled(t, "Checkout", metrics.ResultRejected)
}

// Test: 購入可能な商品が0件なら台帳を呼ばない
func TestCheckout_AllPurchasedMakesNoLedgerCall(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice", 1, 2)
	f.add(t, 1, 2)

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, MsgAllPurchased, st.Error)
	f.ledger.AssertNotCalled(t, "AppendPurchases", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_SuccessAppendsEligibleOnly(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice", 1)
	f.add(t, 1, 2, 3, 4, 5, 6, 7)
	f.pager.Next(6)

	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.MatchedBy(func(r []model.PurchaseRecord) bool {
		return assert.ObjectsAreEqual([]int64{2, 3, 4, 5, 6, 7}, recordIDs(r))
	})).Return(nil).Once()
	f.ledger.On("FindByUID", mock.Anything, "alice").Return(&model.Account{
		UID:       "alice",
		Purchases: model.PurchaseHistory{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}, {ID: 6}, {ID: 7}},
	}, nil).Once()

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st.State)
	assert.Equal(t, MsgThankYou, st.Message)
	assert.Empty(t, st.Error)
	assert.Equal(t, 0, f.cart.Len())
	assert.Equal(t, 1, f.pager.Page())
	assert.Len(t, f.session.Purchases(), 7)
	f.ledger.AssertExpectations(t)
	f.recorder.AssertCalled(t, "Purchased", 6)
	f.recorder.AssertCalled(t, "Checkout", metrics.ResultSuccess)
}

// Test: 履歴の取り直しに失敗してもカートは空になり、エラーは見せない
func TestCheckout_RefreshFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1, 2)

	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).Return(nil)
	f.ledger.On("FindByUID", mock.Anything, "alice").Return(nil, errors.New("read timeout"))

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st.State)
	assert.Equal(t, MsgThankYou, st.Message)
	assert.Empty(t, st.Error)
	assert.Equal(t, 0, f.cart.Len())
	// 追記済みの分は手元の履歴に入る
	assert.True(t, f.session.Purchases().Contains(1))
	assert.True(t, f.session.Purchases().Contains(2))
	f.recorder.AssertCalled(t, "RefreshFailed")
}

// Test: 台帳の失敗ではカートは変わらない
func TestCheckout_LedgerFailureLeavesCartUnchanged(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1, 2, 3)

	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).Return(errors.New("permission denied"))

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, MsgFailedPrefix+MsgFailedGeneric, st.Error)
	assert.Equal(t, []int64{1, 2, 3}, idsOf(f.cart.List()))
	assert.Empty(t, f.session.Purchases())
	f.ledger.AssertNotCalled(t, "FindByUID", mock.Anything, mock.Anything)
	f.recorder.AssertCalled(t, "Checkout", metrics.ResultFailed)
}

// Test: 台帳の説明があればメッセージに含める
func TestCheckout_LedgerFailureShowsDetail(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1, 2)

	ledgerErr := &repository.LedgerError{
		Op:     "append purchases",
		Detail: "Missing or insufficient permissions.",
		Err:    errors.New("rpc error: code = PermissionDenied"),
	}
	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).Return(ledgerErr)

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, "Checkout failed. Missing or insufficient permissions.", st.Error)
	assert.Equal(t, []int64{1, 2}, idsOf(f.cart.List()))
}

// Test: 説明が空なら汎用メッセージ
func TestCheckout_LedgerFailureWithoutDetail(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1)

	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).
		Return(&repository.LedgerError{Op: "append purchases", Err: errors.New("boom")})

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgFailedPrefix+MsgFailedGeneric, st.Error)
}

func TestCheckout_MissingAccountDetail(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1)

	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).Return(repository.ErrAccountNotFound)

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Contains(t, st.Error, MsgFailedPrefix)
	assert.NotEqual(t, MsgFailedPrefix+MsgFailedGeneric, st.Error)
}

// Test: 処理中の2回目は拒否され、台帳は1回だけ呼ばれる
func TestCheckout_NotReentrant(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1)

	release := make(chan struct{})
	entered := make(chan struct{})
	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(nil).Once()
	f.ledger.On("FindByUID", mock.Anything, "alice").Return(&model.Account{UID: "alice"}, nil)

	done := make(chan Status)
	go func() {
		st, _ := f.orch.Checkout(context.Background())
		done <- st
	}()

	<-entered
	f.mu.Lock()
	assert.True(t, f.orch.Processing())
	f.mu.Unlock()

	_, err := f.orch.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)

	close(release)
	select {
	case st := <-done:
		assert.Equal(t, StateSuccess, st.State)
	case <-time.After(2 * time.Second):
		t.Fatal("checkout did not finish")
	}
	f.ledger.AssertNumberOfCalls(t, "AppendPurchases", 1)
}

// Test: 呼び出し元のctxが切れても追記は続く
func TestCheckout_AppendIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(nil)
	f.ledger.On("FindByUID", mock.Anything, "alice").Return(&model.Account{UID: "alice"}, nil)

	st, err := f.orch.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st.State)
}

// Test: 処理中にidentityが変わったら取り直した履歴は捨てる
func TestCheckout_RefreshIgnoredAfterIdentityChange(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")
	f.add(t, 1)

	f.ledger.On("AppendPurchases", mock.Anything, "alice", mock.Anything).
		Run(func(args mock.Arguments) {
			f.mu.Lock()
			require.NoError(t, f.session.SetIdentity(context.Background(), &model.UserSession{UID: "bob"}))
			f.mu.Unlock()
		}).
		Return(nil)
	f.ledger.On("FindByUID", mock.Anything, "alice").Return(&model.Account{
		UID:       "alice",
		Purchases: model.PurchaseHistory{{ID: 1}},
	}, nil)

	st, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st.State)
	assert.Equal(t, "bob", f.session.UID())
	assert.Empty(t, f.session.Purchases())
}

func TestDismiss(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, f.orch.Status().State)

	f.orch.Dismiss()
	assert.Equal(t, Status{State: StateIdle}, f.orch.Status())
}

func idsOf(items []model.CartItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
