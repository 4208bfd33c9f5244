package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

func newStore(buffer int) *Store {
	return New(buffer, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func receive(t *testing.T, sub document.Subscription) document.Change {
	t.Helper()
	select {
	case ch, ok := <-sub.Changes():
		require.True(t, ok, "subscription closed unexpectedly: %v", sub.Err())
		return ch
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change")
	}
	return document.Change{}
}

func TestGetQueryPut(t *testing.T) {
	s := newStore(0)
	ctx := context.Background()

	_, err := s.Get(ctx, "orders", "o1")
	require.ErrorIs(t, err, domainErrors.ErrNotFound)

	s.Put("orders", "o2", map[string]any{"producerId": "p1", "status": "approved"})
	s.Put("orders", "o1", map[string]any{"producerId": "p1", "status": "delivered"})
	s.Put("orders", "o3", map[string]any{"producerId": "p2", "status": "approved"})

	doc, err := s.Get(ctx, "orders", "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	docs, err := s.Query(ctx, "orders", document.Eq("producerId", "p1"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "o1", docs[0].ID)

	docs, err = s.Query(ctx, "orders", document.In("status", "approved"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	doc.Data["status"] = "mutated"
	again, _ := s.Get(ctx, "orders", "o1")
	assert.Equal(t, "delivered", again.Data["status"])
}

func TestVersionSurvivesDelete(t *testing.T) {
	s := newStore(0)
	ctx := context.Background()

	s.Put("orders", "o1", map[string]any{"status": "approved"})
	s.Put("orders", "o1", map[string]any{"status": "delivered"})
	before, err := s.Get(ctx, "orders", "o1")
	require.NoError(t, err)
	require.Equal(t, int64(2), before.Version)

	s.Delete("orders", "o1")
	_, err = s.Get(ctx, "orders", "o1")
	require.ErrorIs(t, err, domainErrors.ErrNotFound)

	s.Put("orders", "o1", map[string]any{"status": "approved"})
	after, err := s.Get(ctx, "orders", "o1")
	require.NoError(t, err)
	assert.Greater(t, after.Version, before.Version)

	err = s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		_, err := tx.Get(ctx, "orders", "o1")
		return err
	})
	require.NoError(t, err)
}

func TestTransactionCommitAndConflict(t *testing.T) {
	s := newStore(0)
	ctx := context.Background()
	s.Put("crops", "c1", map[string]any{"quantity": 10})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		doc, err := tx.Get(ctx, "crops", "c1")
		if err != nil {
			return err
		}
		s.Put("crops", "c1", map[string]any{"quantity": 7})
		return tx.Update("crops", "c1", map[string]any{"quantity": doc.Data["quantity"].(int) - 1})
	})
	require.ErrorIs(t, err, domainErrors.ErrConflict)

	doc, _ := s.Get(ctx, "crops", "c1")
	assert.Equal(t, 7, doc.Data["quantity"])

	err = s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		doc, err := tx.Get(ctx, "crops", "c1")
		if err != nil {
			return err
		}
		return tx.Update("crops", "c1", map[string]any{"quantity": doc.Data["quantity"].(int) - 1})
	})
	require.NoError(t, err)
	doc, _ = s.Get(ctx, "crops", "c1")
	assert.Equal(t, 6, doc.Data["quantity"])
	assert.Equal(t, int64(3), doc.Version)
}

func TestTransactionAbortWritesNothing(t *testing.T) {
	s := newStore(0)
	ctx := context.Background()
	s.Put("crops", "c1", map[string]any{"quantity": 10})
	abort := errors.New("abort")

	err := s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		if err := tx.Update("crops", "c1", map[string]any{"quantity": 0}); err != nil {
			return err
		}
		return abort
	})
	require.ErrorIs(t, err, abort)
	doc, _ := s.Get(ctx, "crops", "c1")
	assert.Equal(t, 10, doc.Data["quantity"])
}

func TestTransactionDetectsCreationOfReadAbsentDocument(t *testing.T) {
	s := newStore(0)
	ctx := context.Background()
	err := s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		if _, err := tx.Get(ctx, "crops", "c9"); !errors.Is(err, domainErrors.ErrNotFound) {
			return err
		}
		s.Put("crops", "c9", map[string]any{"quantity": 1})
		return tx.Set("crops", "c9", map[string]any{"quantity": 2})
	})
	require.ErrorIs(t, err, domainErrors.ErrConflict)
}

func TestTransactionUpdateMissingDocument(t *testing.T) {
	s := newStore(0)
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx document.Tx) error {
		return tx.Update("crops", "gone", map[string]any{"quantity": 1})
	})
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestSubscribeTracksMembership(t *testing.T) {
	s := newStore(0)
	s.Put("orders", "o1", map[string]any{"producerId": "p1", "status": "waiting_for_approval"})

	sub, err := s.Subscribe(context.Background(), "orders", document.Eq("producerId", "p1"), document.In("status", "waiting_for_approval"))
	require.NoError(t, err)
	defer sub.Close()

	s.Put("orders", "o2", map[string]any{"producerId": "p1", "status": "waiting_for_approval"})
	assert.Equal(t, document.ChangeAdded, receive(t, sub).Kind)

	s.Put("orders", "o1", map[string]any{"producerId": "p1", "status": "approved"})
	change := receive(t, sub)
	assert.Equal(t, document.ChangeRemoved, change.Kind)
	assert.Equal(t, "o1", change.Document.ID)

	s.Put("orders", "o9", map[string]any{"producerId": "p2", "status": "waiting_for_approval"})
	s.Delete("orders", "o2")
	assert.Equal(t, document.ChangeRemoved, receive(t, sub).Kind)
}

func TestSubscriptionOverflowInterrupts(t *testing.T) {
	s := newStore(1)
	sub, err := s.Subscribe(context.Background(), "orders")
	require.NoError(t, err)

	s.Put("orders", "o1", map[string]any{"status": "approved"})
	s.Put("orders", "o2", map[string]any{"status": "approved"})

	receive(t, sub)
	_, ok := <-sub.Changes()
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), document.ErrSubscriberLagging)
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	s := newStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := s.Subscribe(ctx, "orders")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-sub.Changes():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.NoError(t, sub.Err())
}

func TestInterrupt(t *testing.T) {
	s := newStore(0)
	sub, err := s.Subscribe(context.Background(), "orders")
	require.NoError(t, err)
	boom := errors.New("connection reset")
	s.Interrupt(boom)
	_, ok := <-sub.Changes()
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), boom)
	assert.NoError(t, sub.Close())
	assert.NoError(t, s.Close())
}
