package reconcile

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIn(t *testing.T, remoteCart domain.Snapshot) *harness {
	t.Helper()
	h := newHarness(t)
	h.remote.set("u1", remoteCart)
	require.NoError(t, h.engine.SignIn(context.Background(), "u1"))
	require.Equal(t, "fetch", <-h.remote.started)
	return h
}

func TestDispatcher_SupersededWritesAreSkipped(t *testing.T) {
	ctx := context.Background()
	h := signedIn(t, nil)
	key := domain.CompositeKey("1", domain.NoVariant())

	release := h.remote.gate("upsert")
	require.NoError(t, h.engine.Add(ctx, line("1", domain.NoVariant(), 1)))
	require.Equal(t, "upsert", <-h.remote.started)

	require.NoError(t, h.engine.SetQuantity(ctx, key, 2))
	require.NoError(t, h.engine.SetQuantity(ctx, key, 3))
	close(release)
	h.drain(t)

	assert.Equal(t, []string{"upsert 1=1", "upsert 1=3"}, h.remote.recorded())
	assert.Equal(t, 3, h.remote.cart("u1")[0].Quantity)
}

func TestDispatcher_DeleteAfterUpsertWins(t *testing.T) {
	ctx := context.Background()
	h := signedIn(t, nil)
	key := domain.CompositeKey("1", domain.VariantOf("M"))

	release := h.remote.gate("upsert")
	require.NoError(t, h.engine.Add(ctx, line("1", domain.VariantOf("M"), 1)))
	require.Equal(t, "upsert", <-h.remote.started)
	require.NoError(t, h.engine.Increment(ctx, key))
	require.NoError(t, h.engine.Decrement(ctx, key))
	require.NoError(t, h.engine.Decrement(ctx, key))
	close(release)
	h.drain(t)

	assert.Equal(t, []string{"upsert 1|M=1", "delete 1|M"}, h.remote.recorded())
	assert.Empty(t, h.remote.cart("u1"))
}

func TestDispatcher_WritesAfterReplaceWaitForIt(t *testing.T) {
	ctx := context.Background()
	h := signedIn(t, domain.Snapshot{line("1", domain.NoVariant(), 1)})

	release := h.remote.gate("replace")
	h.engine.Clear(ctx)
	require.Equal(t, "replace", <-h.remote.started)

	require.NoError(t, h.engine.Add(ctx, line("2", domain.NoVariant(), 1)))
	close(release)
	h.drain(t)

	assert.Equal(t, []string{"replace 0", "upsert 2=1"}, h.remote.recorded())
	assert.Equal(t, []string{"2"}, h.remote.cart("u1").Keys())
}

func TestDispatcher_ReplaceSupersedesQueuedWrites(t *testing.T) {
	ctx := context.Background()
	h := signedIn(t, nil)
	key := domain.CompositeKey("1", domain.NoVariant())

	release := h.remote.gate("upsert")
	require.NoError(t, h.engine.Add(ctx, line("1", domain.NoVariant(), 1)))
	require.Equal(t, "upsert", <-h.remote.started)
	require.NoError(t, h.engine.SetQuantity(ctx, key, 5))
	h.engine.Clear(ctx)
	close(release)
	h.drain(t)

	assert.Equal(t, []string{"upsert 1=1", "replace 0"}, h.remote.recorded())
	assert.Empty(t, h.remote.cart("u1"))
}

func TestDispatcher_LanesAreReleased(t *testing.T) {
	ctx := context.Background()
	h := signedIn(t, nil)
	require.NoError(t, h.engine.Add(ctx, line("1", domain.NoVariant(), 1)))
	h.engine.Clear(ctx)
	h.drain(t)

	h.engine.dispatcher.mu.Lock()
	defer h.engine.dispatcher.mu.Unlock()
	assert.Empty(t, h.engine.dispatcher.lanes)
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	ctx := context.Background()
	h := signedIn(t, nil)
	h.drain(t)

	require.NoError(t, h.engine.Add(ctx, line("1", domain.NoVariant(), 1)))
	assert.Len(t, h.engine.Snapshot(), 1)
	assert.Empty(t, h.remote.recorded())
}
