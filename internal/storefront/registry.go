package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"moviestore/internal/cart"
	"moviestore/internal/checkout"
	"moviestore/internal/localstore"
	"moviestore/internal/metrics"
	"moviestore/internal/search"
	"moviestore/internal/session"

	"golang.org/x/sync/singleflight"
)

// Deps はコンテナを組み立てる部品
type Deps struct {
	Store          localstore.Store // クライアントIDでscopeする前のストア
	Ledger         checkout.Ledger
	Catalog        Catalog
	Recorder       *metrics.Recorder
	PageSize       int
	DebounceWindow time.Duration
	SearchTimeout  time.Duration
	Logger         *slog.Logger
}

// Registry はクライアントIDごとのStorefrontを作って保持する
type Registry struct {
	deps Deps
	now  func() time.Time

	mu      sync.Mutex
	clients map[string]*Storefront
	loading singleflight.Group
}

func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.PageSize <= 0 {
		deps.PageSize = cart.DefaultPageSize
	}
	if deps.DebounceWindow <= 0 {
		deps.DebounceWindow = search.DefaultWindow
	}
	if deps.SearchTimeout <= 0 {
		deps.SearchTimeout = 10 * time.Second
	}
	return &Registry{
		deps:    deps,
		now:     time.Now,
		clients: map[string]*Storefront{},
	}
}

// Getは初回アクセスでストアから復元する。
// 壊れた保存値は空として扱い、ログだけ出す。
// 復元はr.muの外で行い、同じクライアントの同時アクセスはsingleflightで1回にまとめる。
func (r *Registry) Get(ctx context.Context, clientID string) (*Storefront, error) {
	if sf := r.lookup(clientID); sf != nil {
		return sf, nil
	}

	v, err, _ := r.loading.Do(clientID, func() (any, error) {
		if sf := r.lookup(clientID); sf != nil {
			return sf, nil
		}

		sf := r.build(clientID)
		if err := r.hydrate(ctx, sf); err != nil {
			sf.Close()
			return nil, err
		}
		sf.touch(r.now())

		r.mu.Lock()
		r.clients[clientID] = sf
		n := len(r.clients)
		r.mu.Unlock()

		r.deps.Recorder.SetActiveClients(n)
		return sf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Storefront), nil
}

func (r *Registry) lookup(clientID string) *Storefront {
	r.mu.Lock()
	defer r.mu.Unlock()
	sf, ok := r.clients[clientID]
	if !ok {
		return nil
	}
	sf.touch(r.now())
	return sf
}

func (r *Registry) hydrate(ctx context.Context, sf *Storefront) error {
	if err := sf.cart.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sf.log.Warn("storefront: cart restore failed", "err", err)
	}
	if err := sf.session.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sf.log.Warn("storefront: session restore failed", "err", err)
	}
	return nil
}

func (r *Registry) build(clientID string) *Storefront {
	store := localstore.Scoped(r.deps.Store, clientID)
	log := r.deps.Logger.With("client", clientID)

	sf := &Storefront{
		clientID:      clientID,
		ledger:        r.deps.Ledger,
		catalog:       r.deps.Catalog,
		recorder:      r.deps.Recorder,
		log:           log,
		searchTimeout: r.deps.SearchTimeout,
	}
	sf.cart = cart.NewManager(store)
	sf.session = session.NewManager(store, sf.cart, r.deps.Ledger)
	sf.pager = cart.NewPager(r.deps.PageSize)
	sf.checkout = checkout.NewOrchestrator(&sf.mu, sf.cart, sf.session, sf.pager, r.deps.Ledger, r.deps.Recorder, log)
	sf.debouncer = search.NewDebouncer(r.deps.DebounceWindow, sf.runSearch)
	return sf
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// EvictIdleはmaxIdle以上触られていないコンテナをメモリから外す。
// 状態はストアにあるので次のGetで復元される。
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, sf := range r.clients {
		if !sf.evictable(cutoff) {
			continue
		}
		sf.Close()
		delete(r.clients, id)
		n++
	}
	r.deps.Recorder.SetActiveClients(len(r.clients))
	return n
}

// RunJanitorはctxが終わるまで定期的にEvictIdleする
func (r *Registry) RunJanitor(ctx context.Context, every time.Duration, maxIdle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				r.deps.Logger.Debug("evicted idle clients", "count", n)
			}
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sf := range r.clients {
		sf.Close()
		delete(r.clients, id)
	}
}
