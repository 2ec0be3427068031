// Package search は検索入力のdebounce。
package search

import (
	"strings"
	"sync"
	"time"
)

const DefaultWindow = 500 * time.Millisecond

// Debouncer は連続入力の最後の1つだけをwindow後にdispatchする。
// 空白だけのクエリはdispatchしない（保留中のものは取り消す）。
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	dispatch func(query string)
	timer    *time.Timer
	seq      uint64
	stopped  bool
}

func NewDebouncer(window time.Duration, dispatch func(query string)) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, dispatch: dispatch}
}

// Triggerはwindowをやり直す
func (d *Debouncer) Trigger(query string) {
	q := strings.TrimSpace(query)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.cancelLocked()
	if q == "" {
		return
	}

	id := d.seq
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped || id != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.dispatch(q)
	})
}

// Submitは保留を取り消してすぐdispatchする（Enterキー）
func (d *Debouncer) Submit(query string) bool {
	q := strings.TrimSpace(query)

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	d.mu.Unlock()

	if q == "" {
		return false
	}
	d.dispatch(q)
	return true
}

// Pendingは保留中のタイマーがあるか
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stopは保留を捨てて以後の入力を無視する
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
