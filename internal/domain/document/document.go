// Package document describes the schemaless document store the fulfillment
// core is built on: point reads, filtered queries, realtime subscriptions and
// optimistic transactions.
package document

import (
	"context"
	"time"
)

// Collections used by the marketplace.
const (
	CollectionOrders       = "orders"
	CollectionCrops        = "crops"
	CollectionReviews      = "reviews"
	CollectionCertificates = "certificates"
	CollectionProducers    = "producers"
)

// OwnerField names the producer that owns an order, crop, review or
// certificate. Queries and ownership checks use only this field.
const OwnerField = "producerId"

// Document is a weakly typed record. Version increases on every committed write
// and is zero for documents that do not exist.
type Document struct {
	ID      string
	Data    map[string]any
	Version int64
}

// ChangeKind describes how a document moved relative to a subscription's filters.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is a single subscription event.
type Change struct {
	Kind     ChangeKind
	Document Document
}

// Subscription streams changes until closed. When the channel is closed Err
// reports why; a nil Err means the subscription was closed by its owner.
type Subscription interface {
	Changes() <-chan Change
	Err() error
	Close() error
}

// Tx is an optimistic transaction. Writes are buffered and applied atomically
// on commit; every document read through Get is re-validated at commit time.
type Tx interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(collection, id string, data map[string]any) error
	Update(collection, id string, fields map[string]any) error
}

// TxFunc is the body of a transaction. Returning an error aborts without writes.
type TxFunc func(ctx context.Context, tx Tx) error

//go:generate mockgen -source=document.go -destination=mocks/store_mock.go -package=mock_document -exclude_interfaces=Subscription,Tx

// Store is the capability contract of the backing database.
type Store interface {
	// Get returns errors.ErrNotFound for missing documents.
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Subscribe(ctx context.Context, collection string, filters ...Filter) (Subscription, error)
	// RunTransaction returns errors.ErrConflict when validation fails on commit.
	RunTransaction(ctx context.Context, fn TxFunc) error
	Close() error
}

// Timestamp is the store's native timestamp type.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time returns the instant in UTC.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}
