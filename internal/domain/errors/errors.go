package errors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("transaction conflict")
	ErrMalformedRecord     = errors.New("malformed record")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConcurrencyFailure  = errors.New("concurrency failure: retries exhausted")
	ErrMissingReference    = errors.New("missing inventory reference")
	ErrInvalidDecision     = errors.New("invalid decision")
	ErrSubscriptionClosed  = errors.New("subscription closed")
	ErrScoreOutOfRange     = errors.New("sustainability score out of range")
	ErrUnsupportedDocument = errors.New("unsupported document value")
	ErrInvalidID           = errors.New("invalid document id")
	ErrInvalidStatus       = errors.New("unknown order status")
)
