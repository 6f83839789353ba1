package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectnexus/storefront/core"
)

func TestWishlist_AddIsSetInsert(t *testing.T) {
	w := NewWishlist(core.NewMemoryStore())
	p := product(1, 10)

	w.Add(p)
	w.Add(p) // no-op, already present

	assert.Equal(t, 1, w.Len())
	assert.True(t, w.Contains(1))
}

func TestWishlist_TogglePairIsIdempotent(t *testing.T) {
	w := NewWishlist(core.NewMemoryStore())
	p := product(1, 10)

	w.Add(product(2, 5))
	before := w.Products()

	added := w.Toggle(p)
	assert.True(t, added)
	assert.True(t, w.Contains(1))

	added = w.Toggle(p)
	assert.False(t, added)
	assert.False(t, w.Contains(1))

	assert.Equal(t, before, w.Products(), "two toggles restore the original membership")
}

func TestWishlist_RemoveAbsentIsNoop(t *testing.T) {
	w := NewWishlist(core.NewMemoryStore())
	w.Remove(404)
	assert.Equal(t, 0, w.Len())
}

func TestWishlist_InsertionOrderPreserved(t *testing.T) {
	w := NewWishlist(core.NewMemoryStore())

	w.Add(product(3, 1))
	w.Add(product(1, 1))
	w.Add(product(2, 1))

	products := w.Products()
	require.Len(t, products, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{products[0].ID, products[1].ID, products[2].ID})
}

func TestWishlist_SnapshotDecoupled(t *testing.T) {
	w := NewWishlist(core.NewMemoryStore())
	p := product(1, 10)

	w.Add(p)
	p.Price = 999

	assert.Equal(t, 10.0, w.Products()[0].Price)
}

func TestWishlist_PersistenceRoundTrip(t *testing.T) {
	storage := core.NewMemoryStore()
	ctx := context.Background()

	w := NewWishlist(storage)
	w.Add(product(1, 9.99))
	w.Add(product(2, 5))
	require.NoError(t, w.Flush(ctx))

	revived := NewWishlist(storage)
	revived.Hydrate(ctx)

	require.Equal(t, 2, revived.Len())
	assert.True(t, revived.Contains(1))
	assert.True(t, revived.Contains(2))
	assert.Equal(t, w.Products(), revived.Products())
}

func TestWishlist_SlowOlderSaveNeverOverwritesNewer(t *testing.T) {
	storage := &slowFirstWriteStorage{MemoryStore: core.NewMemoryStore()}
	ctx := context.Background()

	w := NewWishlist(storage)
	w.Add(product(1, 10)) // save stalls inside storage
	w.Add(product(2, 20))
	w.saveWG.Wait()

	revived := NewWishlist(storage)
	revived.Hydrate(ctx)
	require.Equal(t, 2, revived.Len(), "persisted state must reflect the newest mutation")
	assert.True(t, revived.Contains(2))
}

func TestWishlist_OwnStorageKey(t *testing.T) {
	storage := core.NewMemoryStore()
	ctx := context.Background()

	w := NewWishlist(storage)
	w.Add(product(1, 1))
	require.NoError(t, w.Flush(ctx))

	// Cart and wishlist never share a key
	raw, err := storage.Get(ctx, core.StorageKeyWishlist)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	cartRaw, _ := storage.Get(ctx, core.StorageKeyCart)
	assert.Empty(t, cartRaw)
}

func TestWishlist_HydrateCorruptStateStartsEmpty(t *testing.T) {
	storage := core.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, core.StorageKeyWishlist, "[broken", 0))

	w := NewWishlist(storage)
	w.Hydrate(ctx)
	assert.Equal(t, 0, w.Len())
}

func TestWishlist_SubscribersNotified(t *testing.T) {
	w := NewWishlist(core.NewMemoryStore())

	var calls int
	unsubscribe := w.Subscribe(func() { calls++ })

	w.Add(product(1, 1))
	w.Toggle(product(1, 1))
	assert.Equal(t, 2, calls)

	unsubscribe()
	w.Add(product(2, 1))
	assert.Equal(t, 2, calls)
}
