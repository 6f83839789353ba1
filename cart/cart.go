// Package cart implements the client-side cart and wishlist stores:
// explicit state objects with pure transition rules, subscription
// callbacks for readers, and write-behind persistence to the device
// storage layer.
package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/projectnexus/storefront/catalog"
	"github.com/projectnexus/storefront/core"
)

// Item is one cart line. It owns a full product snapshot rather than a
// foreign key, so catalog refreshes cannot silently mutate a user's
// saved cart contents.
type Item struct {
	ID       int64           `json:"id"` // locally generated, time-based
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"` // always >= 1 while the item exists
	AddedAt  time.Time       `json:"addedAt"`
}

// Store is the cart state machine. Per product ID:
//
//	{absent} -> Add -> {present, q=n} -> UpdateQuantity(m>0) -> {present, q=m}
//	{present} -> UpdateQuantity(0) or Remove -> {absent}
//	{present, q=1} -> Decrement -> {absent}
//
// At most one item exists per distinct product ID; adding an already
// present product increments its quantity. Totals and counts are
// derived on read, never stored, so line items and aggregates cannot
// drift apart.
//
// Every mutation schedules a write-behind save of the full item array;
// a crash between mutation and write loses at most the newest change.
// Flush forces a synchronous save for callers that need the write
// acknowledged.
type Store struct {
	mu       sync.RWMutex
	items    []Item
	storage  core.Storage
	logger   core.Logger
	key      string
	lastID   int64
	subs     map[int]func()
	nextSub  int
	notifyMu sync.Mutex

	// Write-behind bookkeeping. saveSeq orders snapshots; savedSeq is
	// the newest snapshot that reached storage. saveMu serializes the
	// storage writes so a slow older save cannot land after a newer one.
	saveWG   sync.WaitGroup
	saveMu   sync.Mutex
	saveSeq  uint64
	savedSeq uint64
}

// StoreOption customizes the cart store.
type StoreOption func(*Store)

// WithLogger configures the logger.
func WithLogger(l core.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStorageKey overrides the persistence key.
func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore creates a cart store over the given storage. Call Hydrate
// before first use to revive persisted state.
func NewStore(storage core.Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		logger:  &core.NoOpLogger{},
		key:     core.StorageKeyCart,
		subs:    make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads persisted state. Read or parse failures are logged and
// treated as "start from empty state" - never fatal to startup.
func (s *Store) Hydrate(ctx context.Context) {
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.Error("Cart hydrate failed, starting empty", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		return
	}
	if raw == "" {
		return
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Error("Cart state corrupt, starting empty", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.logger.Info("Cart hydrated", map[string]interface{}{
		"key":   s.key,
		"items": len(items),
	})
}

// newItemID generates a time-based local ID, bumping on collision so
// two adds in the same nanosecond stay distinct.
func (s *Store) newItemID() int64 {
	id := time.Now().UnixNano()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Add puts quantity n of a product in the cart. A product already
// present has its quantity incremented rather than replaced. n < 1 is
// treated as 1.
func (s *Store) Add(product catalog.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].Product.ID == product.ID {
			s.items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		s.items = append(s.items, Item{
			ID:       s.newItemID(),
			Product:  product,
			Quantity: quantity,
			AddedAt:  time.Now(),
		})
	}
	s.mu.Unlock()

	s.afterMutation()
}

// Remove deletes the product's line entirely. Removing an absent
// product is a no-op.
func (s *Store) Remove(productID int) {
	s.mu.Lock()
	s.removeLocked(productID)
	s.mu.Unlock()

	s.afterMutation()
}

func (s *Store) removeLocked(productID int) {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets the product's quantity. Zero or negative removes
// the line; quantity never rests at 0.
func (s *Store) UpdateQuantity(productID, quantity int) {
	s.mu.Lock()
	if quantity <= 0 {
		s.removeLocked(productID)
	} else {
		for i := range s.items {
			if s.items[i].Product.ID == productID {
				s.items[i].Quantity = quantity
				break
			}
		}
	}
	s.mu.Unlock()

	s.afterMutation()
}

// Increment raises the product's quantity by one. No-op when absent.
func (s *Store) Increment(productID int) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items[i].Quantity++
			break
		}
	}
	s.mu.Unlock()

	s.afterMutation()
}

// Decrement lowers the product's quantity by one. At quantity 1 the
// item is removed; the state machine never leaves a zero-quantity
// line behind.
func (s *Store) Decrement(productID int) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			if s.items[i].Quantity <= 1 {
				s.removeLocked(productID)
			} else {
				s.items[i].Quantity--
			}
			break
		}
	}
	s.mu.Unlock()

	s.afterMutation()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.afterMutation()
}

// Items returns a snapshot of the cart lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.items...)
}

// Get returns the line for a product, if present.
func (s *Store) Get(productID int) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// Contains reports whether the product has a line in the cart.
func (s *Store) Contains(productID int) bool {
	_, ok := s.Get(productID)
	return ok
}

// Total recomputes the cart total: sum over items of price*quantity.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, item := range s.items {
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}

// Count recomputes the total unit count across all lines.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Subscribe registers a callback fired after every mutation. The
// returned function unregisters it.
func (s *Store) Subscribe(fn func()) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) afterMutation() {
	s.notifySubscribers()
	s.scheduleSave()
}

func (s *Store) notifySubscribers() {
	s.notifyMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.notifyMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// scheduleSave persists asynchronously. Failures are logged and
// swallowed: loss of a cached cart is recoverable, not catastrophic.
func (s *Store) scheduleSave() {
	seq, snapshot := s.snapshotForSave()
	s.saveWG.Add(1)
	go func() {
		defer s.saveWG.Done()
		s.saveOrdered(context.Background(), seq, snapshot)
	}()
}

// snapshotForSave captures the item array and its save sequence number
// atomically, so snapshot order always matches sequence order.
func (s *Store) snapshotForSave() (uint64, []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveSeq++
	return s.saveSeq, append([]Item(nil), s.items...)
}

// saveOrdered writes one snapshot, dropping it when a newer snapshot
// already reached storage: persisted state only moves forward.
func (s *Store) saveOrdered(ctx context.Context, seq uint64, items []Item) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if seq <= s.savedSeq {
		return nil
	}
	if err := s.save(ctx, items); err != nil {
		return err
	}
	s.savedSeq = seq
	return nil
}

// Flush forces a synchronous save and waits for any pending
// write-behind saves to settle first.
func (s *Store) Flush(ctx context.Context) error {
	s.saveWG.Wait()
	seq, snapshot := s.snapshotForSave()
	return s.saveOrdered(ctx, seq, snapshot)
}

func (s *Store) save(ctx context.Context, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("Cart serialize failed", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		return err
	}
	if err := s.storage.Set(ctx, s.key, string(data), 0); err != nil {
		s.logger.Error("Cart save failed", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		return err
	}
	return nil
}
