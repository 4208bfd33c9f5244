package model

// DeltaKind describes how an order set changed.
type DeltaKind string

const (
	DeltaAdded    DeltaKind = "added"
	DeltaModified DeltaKind = "modified"
	DeltaRemoved  DeltaKind = "removed"
)

// OrderSetDelta is one membership change of a ledger view.
type OrderSetDelta struct {
	Kind  DeltaKind
	Order Order
}
