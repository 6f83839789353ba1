package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/projectnexus/storefront/catalog"
	"github.com/projectnexus/storefront/core"
)

// Wishlist is a set of product snapshots keyed by product ID:
// no duplicates, no quantity. Membership survives catalog refreshes
// because entries are copied-by-value snapshots, not cache references.
//
// Persistence follows the cart's write-behind scheme under its own
// storage key.
type Wishlist struct {
	mu       sync.RWMutex
	products []catalog.Product
	storage  core.Storage
	logger   core.Logger
	key      string
	subs     map[int]func()
	nextSub  int
	notifyMu sync.Mutex

	// Same write-behind ordering scheme as the cart store: saves are
	// serialized and stale snapshots dropped.
	saveWG   sync.WaitGroup
	saveMu   sync.Mutex
	saveSeq  uint64
	savedSeq uint64
}

// WishlistOption customizes the wishlist.
type WishlistOption func(*Wishlist)

// WithWishlistLogger configures the logger.
func WithWishlistLogger(l core.Logger) WishlistOption {
	return func(w *Wishlist) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWishlistStorageKey overrides the persistence key.
func WithWishlistStorageKey(key string) WishlistOption {
	return func(w *Wishlist) {
		if key != "" {
			w.key = key
		}
	}
}

// NewWishlist creates a wishlist over the given storage. Call Hydrate
// before first use to revive persisted state.
func NewWishlist(storage core.Storage, opts ...WishlistOption) *Wishlist {
	w := &Wishlist{
		storage: storage,
		logger:  &core.NoOpLogger{},
		key:     core.StorageKeyWishlist,
		subs:    make(map[int]func()),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Hydrate loads persisted state; failures degrade to empty state.
func (w *Wishlist) Hydrate(ctx context.Context) {
	raw, err := w.storage.Get(ctx, w.key)
	if err != nil {
		w.logger.Error("Wishlist hydrate failed, starting empty", map[string]interface{}{
			"key":   w.key,
			"error": err.Error(),
		})
		return
	}
	if raw == "" {
		return
	}

	var products []catalog.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		w.logger.Error("Wishlist state corrupt, starting empty", map[string]interface{}{
			"key":   w.key,
			"error": err.Error(),
		})
		return
	}

	w.mu.Lock()
	w.products = products
	w.mu.Unlock()
}

// Add puts a product on the wishlist. No-op when already present.
func (w *Wishlist) Add(product catalog.Product) {
	w.mu.Lock()
	if w.indexLocked(product.ID) < 0 {
		w.products = append(w.products, product)
	}
	w.mu.Unlock()

	w.afterMutation()
}

// Remove drops a product. No-op when absent.
func (w *Wishlist) Remove(productID int) {
	w.mu.Lock()
	if i := w.indexLocked(productID); i >= 0 {
		w.products = append(w.products[:i], w.products[i+1:]...)
	}
	w.mu.Unlock()

	w.afterMutation()
}

// Toggle flips membership and reports the new state: true when the
// product is now on the wishlist. Two toggles in a row restore the
// original membership.
func (w *Wishlist) Toggle(product catalog.Product) bool {
	w.mu.Lock()
	var added bool
	if i := w.indexLocked(product.ID); i >= 0 {
		w.products = append(w.products[:i], w.products[i+1:]...)
	} else {
		w.products = append(w.products, product)
		added = true
	}
	w.mu.Unlock()

	w.afterMutation()
	return added
}

// Clear empties the wishlist.
func (w *Wishlist) Clear() {
	w.mu.Lock()
	w.products = nil
	w.mu.Unlock()

	w.afterMutation()
}

// Contains reports membership.
func (w *Wishlist) Contains(productID int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.indexLocked(productID) >= 0
}

// Products returns a snapshot in insertion order.
func (w *Wishlist) Products() []catalog.Product {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]catalog.Product(nil), w.products...)
}

// Len returns the number of wished products.
func (w *Wishlist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.products)
}

func (w *Wishlist) indexLocked(productID int) int {
	for i, p := range w.products {
		if p.ID == productID {
			return i
		}
	}
	return -1
}

// Subscribe registers a callback fired after every mutation. The
// returned function unregisters it.
func (w *Wishlist) Subscribe(fn func()) func() {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn

	return func() {
		w.notifyMu.Lock()
		defer w.notifyMu.Unlock()
		delete(w.subs, id)
	}
}

func (w *Wishlist) afterMutation() {
	w.notifyMu.Lock()
	fns := make([]func(), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.notifyMu.Unlock()
	for _, fn := range fns {
		fn()
	}

	seq, snapshot := w.snapshotForSave()
	w.saveWG.Add(1)
	go func() {
		defer w.saveWG.Done()
		w.saveOrdered(context.Background(), seq, snapshot)
	}()
}

func (w *Wishlist) snapshotForSave() (uint64, []catalog.Product) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saveSeq++
	return w.saveSeq, append([]catalog.Product(nil), w.products...)
}

func (w *Wishlist) saveOrdered(ctx context.Context, seq uint64, products []catalog.Product) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	if seq <= w.savedSeq {
		return nil
	}
	if err := w.save(ctx, products); err != nil {
		return err
	}
	w.savedSeq = seq
	return nil
}

// Flush forces a synchronous save after pending write-behind saves
// settle.
func (w *Wishlist) Flush(ctx context.Context) error {
	w.saveWG.Wait()
	seq, snapshot := w.snapshotForSave()
	return w.saveOrdered(ctx, seq, snapshot)
}

func (w *Wishlist) save(ctx context.Context, products []catalog.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		w.logger.Error("Wishlist serialize failed", map[string]interface{}{
			"key":   w.key,
			"error": err.Error(),
		})
		return err
	}
	if err := w.storage.Set(ctx, w.key, string(data), 0); err != nil {
		w.logger.Error("Wishlist save failed", map[string]interface{}{
			"key":   w.key,
			"error": err.Error(),
		})
		return err
	}
	return nil
}
