// Package checkout はカートを購入台帳へ確定する状態機械。
//
//	Idle -> Processing -> Success | Failed -> Idle
//
// 台帳への追記はリクエストのキャンセルから切り離して最後まで走らせる。
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"moviestore/internal/cart"
	"moviestore/internal/domain/model"
	"moviestore/internal/metrics"
	"moviestore/internal/repository"
	"moviestore/internal/session"
)

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

const (
	MsgLoginRequired = "You must be logged in to checkout."
	MsgAllPurchased  = "You have already purchased all movies in your cart."
	MsgThankYou      = "Thank you for your purchase!"
	MsgFailedPrefix  = "Checkout failed. "
	MsgFailedGeneric = "Please try again. Your cart has not been changed."
)

// 処理中に2回目のcheckoutが来た
var ErrInProgress = errors.New("checkout already in progress")

// 購入台帳
type Ledger interface {
	AppendPurchases(ctx context.Context, uid string, records []model.PurchaseRecord) error
	FindByUID(ctx context.Context, uid string) (*model.Account, error)
}

type Recorder interface {
	Checkout(result string)
	Purchased(n int)
	RefreshFailed()
}

// Statusは画面に出すcheckoutの状態
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Orchestrator はクライアント1つ分のcheckout。
// Checkoutだけが自分でlockを取る。それ以外はlockを持った呼び出し側から使う。
type Orchestrator struct {
	lock     sync.Locker
	cart     *cart.Manager
	session  *session.Manager
	pager    *cart.Pager
	ledger   Ledger
	recorder Recorder
	log      *slog.Logger

	state   State
	message string
	errMsg  string
}

// DI
func NewOrchestrator(
	lock sync.Locker,
	c *cart.Manager,
	s *session.Manager,
	pager *cart.Pager,
	ledger Ledger,
	recorder Recorder,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Orchestrator{
		lock:     lock,
		cart:     c,
		session:  s,
		pager:    pager,
		ledger:   ledger,
		recorder: recorder,
		log:      log,
		state:    StateIdle,
	}
}

func (o *Orchestrator) Status() Status {
	return Status{State: o.state, Message: o.message, Error: o.errMsg}
}

func (o *Orchestrator) Processing() bool {
	return o.state == StateProcessing
}

// Dismissはメッセージを消してIdleへ戻す
func (o *Orchestrator) Dismiss() {
	if o.state == StateProcessing {
		return
	}
	o.state = StateIdle
	o.message = ""
	o.errMsg = ""
}

// Checkoutは購入可能なカート商品を台帳に追記してカートを空にする。
// 事前条件の失敗・台帳の失敗はStatus（Failed）で返し、errorはErrInProgressのみ。
func (o *Orchestrator) Checkout(ctx context.Context) (Status, error) {
	o.lock.Lock()
	if o.state == StateProcessing {
		o.lock.Unlock()
		o.recorder.Checkout(metrics.ResultInProgress)
		return Status{}, ErrInProgress
	}

	o.state = StateProcessing
	o.message = ""
	o.errMsg = ""

	// 事前条件（リモート呼び出しの前）
	user := o.session.Current()
	if user == nil || user.UID == "" {
		st := o.finishLocked(StateFailed, "", MsgLoginRequired)
		o.lock.Unlock()
		o.recorder.Checkout(metrics.ResultRejected)
		return st, nil
	}

	eligible := o.cart.Eligible(o.session.Purchases())
	if len(eligible) == 0 {
		st := o.finishLocked(StateFailed, "", MsgAllPurchased)
		o.lock.Unlock()
		o.recorder.Checkout(metrics.ResultRejected)
		return st, nil
	}

	uid := user.UID
	records := make([]model.PurchaseRecord, 0, len(eligible))
	for _, it := range eligible {
		records = append(records, it.ToPurchase())
	}
	o.lock.Unlock()

	// ここからlock外。呼び出し元が切断しても追記は完了させる
	detached := context.WithoutCancel(ctx)
	if err := o.ledger.AppendPurchases(detached, uid, records); err != nil {
		o.log.Warn("checkout: ledger append failed", "uid", uid, "items", len(records), "err", err)
		o.lock.Lock()
		st := o.finishLocked(StateFailed, "", failureMessage(err))
		o.lock.Unlock()
		o.recorder.Checkout(metrics.ResultFailed)
		return st, nil
	}
	o.recorder.Purchased(len(records))

	// 履歴の取り直しはbest-effort
	var refreshed model.PurchaseHistory
	acct, rerr := o.ledger.FindByUID(detached, uid)
	if rerr != nil {
		o.log.Warn("checkout: purchase history refresh failed", "uid", uid, "err", rerr)
		o.recorder.RefreshFailed()
	} else {
		refreshed = acct.Purchases
	}

	o.lock.Lock()
	defer o.lock.Unlock()

	// 処理中にidentityが変わっていたら結果は反映しない
	if rerr == nil {
		if _, err := o.session.ApplyPurchases(detached, uid, refreshed); err != nil {
			o.log.Warn("checkout: persist purchase history failed", "uid", uid, "err", err)
		}
	} else if o.session.UID() == uid {
		// 追記は確定しているので手元だけ和集合で足す
		if err := o.session.MergePurchases(detached, records); err != nil {
			o.log.Warn("checkout: persist purchase history failed", "uid", uid, "err", err)
		}
	}

	if err := o.cart.Clear(detached); err != nil {
		o.log.Warn("checkout: clear cart failed", "uid", uid, "err", err)
	}
	o.pager.Reset()

	o.recorder.Checkout(metrics.ResultSuccess)
	return o.finishLocked(StateSuccess, MsgThankYou, ""), nil
}

func (o *Orchestrator) finishLocked(state State, message string, errMsg string) Status {
	o.state = state
	o.message = message
	o.errMsg = errMsg
	return o.Status()
}

// 台帳が説明を返していればそれを出す。無ければ再試行の案内。
func failureMessage(err error) string {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return MsgFailedPrefix + "No account record was found for this user."
	}
	var le *repository.LedgerError
	if errors.As(err, &le) && le.Detail != "" {
		return MsgFailedPrefix + le.Detail
	}
	return MsgFailedPrefix + MsgFailedGeneric
}

type noopRecorder struct{}

func (noopRecorder) Checkout(string) {}
func (noopRecorder) Purchased(int)   {}
func (noopRecorder) RefreshFailed()  {}
