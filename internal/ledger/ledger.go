// Package ledger maintains live, filtered views over a producer's orders.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/normalize"
	"github.com/mdnair2344/greenbasket/internal/pkg/retry"
)

const (
	defaultBuffer        = 64
	defaultResyncBackoff = 100 * time.Millisecond
	maxResyncBackoff     = 30 * time.Second
)

// Options configure subscriptions created by a Ledger.
type Options struct {
	// Buffer bounds undelivered deltas per subscription.
	Buffer int
	// ResyncBackoff is the first delay before resubscribing after an
	// interruption; it doubles on consecutive failures.
	ResyncBackoff time.Duration
}

// Ledger opens order subscriptions on the document store.
type Ledger struct {
	store      document.Store
	normalizer *normalize.Normalizer
	opts       Options
	logger     *slog.Logger
}

// New constructs Ledger.
func New(store document.Store, normalizer *normalize.Normalizer, opts Options, logger *slog.Logger) *Ledger {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.ResyncBackoff <= 0 {
		opts.ResyncBackoff = defaultResyncBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, normalizer: normalizer, opts: opts, logger: logger}
}

// Orders returns the current accepted orders of producerID in any of statuses.
// No statuses means every status.
func (l *Ledger) Orders(ctx context.Context, producerID string, statuses ...model.OrderStatus) ([]model.Order, error) {
	docs, err := l.store.Query(ctx, document.CollectionOrders, filtersFor(producerID, statuses)...)
	if err != nil {
		return nil, fmt.Errorf("query orders of %s: %w", producerID, err)
	}
	orders, rejected := l.normalizer.Orders(docs)
	if rejected > 0 {
		l.logger.Warn("orders excluded from view", slog.String("producer", producerID), slog.Int("rejected", rejected))
	}
	return orders, nil
}

// Subscribe opens a live view of producerID's orders in statuses. The first
// deltas describe the initial set as additions. The subscription lives until
// Close is called or ctx ends.
func (l *Ledger) Subscribe(ctx context.Context, producerID string, statuses ...model.OrderStatus) (*Subscription, error) {
	if producerID == "" {
		return nil, errors.New("ledger: empty producer id")
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		ledger:   l,
		producer: producerID,
		filters:  filtersFor(producerID, statuses),
		statuses: statusSet(statuses),
		known:    make(map[string]entry),
		deltas:   make(chan model.OrderSetDelta, l.opts.Buffer),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	src, initial, err := s.open(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	go s.run(ctx, src, initial)
	return s, nil
}

func filtersFor(producerID string, statuses []model.OrderStatus) []document.Filter {
	filters := []document.Filter{document.Eq(document.OwnerField, producerID)}
	if len(statuses) > 0 {
		values := make([]any, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		filters = append(filters, document.In("status", values...))
	}
	return filters
}

func statusSet(statuses []model.OrderStatus) map[model.OrderStatus]bool {
	if len(statuses) == 0 {
		return nil
	}
	set := make(map[model.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

type entry struct {
	order   model.Order
	version int64
}

// Subscription is a live order view. Deltas are delivered in the order the
// store emitted the underlying changes.
type Subscription struct {
	ledger   *Ledger
	producer string
	filters  []document.Filter
	statuses map[model.OrderStatus]bool

	mu    sync.Mutex
	known map[string]entry
	err   error

	deltas chan model.OrderSetDelta
	cancel context.CancelFunc
	done   chan struct{}
}

// Deltas is closed when the subscription ends.
func (s *Subscription) Deltas() <-chan model.OrderSetDelta {
	return s.deltas
}

// Snapshot returns the current view ordered by order ID.
func (s *Subscription) Snapshot() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]model.Order, 0, len(s.known))
	for _, e := range s.known {
		orders = append(orders, e.order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// Err reports why the subscription ended; nil after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription and waits for its goroutine to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// open subscribes first and queries second so no change between the two is lost.
func (s *Subscription) open(ctx context.Context) (document.Subscription, []document.Document, error) {
	src, err := s.ledger.store.Subscribe(ctx, document.CollectionOrders, s.filters...)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe to orders of %s: %w", s.producer, err)
	}
	docs, err := s.ledger.store.Query(ctx, document.CollectionOrders, s.filters...)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("query orders of %s: %w", s.producer, err)
	}
	return src, docs, nil
}

func (s *Subscription) run(ctx context.Context, src document.Subscription, initial []document.Document) {
	defer close(s.done)
	defer close(s.deltas)

	err := s.loop(ctx, src, initial)
	if ctx.Err() != nil {
		err = nil
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	if err != nil {
		s.ledger.logger.Error("order subscription ended", slog.String("producer", s.producer), slog.String("error", err.Error()))
	}
}

func (s *Subscription) loop(ctx context.Context, src document.Subscription, docs []document.Document) error {
	policy := retry.Policy{BaseDelay: s.ledger.opts.ResyncBackoff, MaxDelay: maxResyncBackoff}
	for {
		if err := s.sync(ctx, docs); err != nil {
			_ = src.Close()
			return err
		}
		if err := s.consume(ctx, src); err != nil {
			return err
		}
		cause := src.Err()
		_ = src.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if cause == nil || errors.Is(cause, domainErrors.ErrSubscriptionClosed) {
			return fmt.Errorf("order stream ended: %w", domainErrors.ErrSubscriptionClosed)
		}
		s.ledger.logger.Warn("order stream interrupted, resyncing",
			slog.String("producer", s.producer), slog.String("error", cause.Error()))

		for attempt := 1; ; attempt++ {
			if err := retry.Sleep(ctx, policy.Delay(attempt)); err != nil {
				return err
			}
			var err error
			src, docs, err = s.open(ctx)
			if err == nil {
				break
			}
			s.ledger.logger.Warn("order resubscribe failed",
				slog.String("producer", s.producer), slog.Int("attempt", attempt), slog.String("error", err.Error()))
		}
	}
}

// sync diffs a full query result against the known set.
func (s *Subscription) sync(ctx context.Context, docs []document.Document) error {
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true
		if err := s.apply(ctx, doc.ID, &doc); err != nil {
			return err
		}
	}

	s.mu.Lock()
	var gone []string
	for id := range s.known {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	s.mu.Unlock()
	sort.Strings(gone)
	for _, id := range gone {
		if err := s.apply(ctx, id, nil); err != nil {
			return err
		}
	}
	return nil
}

// consume applies stream changes until the stream closes. It returns an
// error only when ctx ends.
func (s *Subscription) consume(ctx context.Context, src document.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			_ = src.Close()
			return ctx.Err()
		case change, ok := <-src.Changes():
			if !ok {
				return nil
			}
			var doc *document.Document
			if change.Kind != document.ChangeRemoved {
				doc = &change.Document
			}
			if err := s.apply(ctx, change.Document.ID, doc); err != nil {
				_ = src.Close()
				return err
			}
		}
	}
}

// apply folds one document state (nil when absent) into the known set and
// emits the resulting delta, if any.
func (s *Subscription) apply(ctx context.Context, id string, doc *document.Document) error {
	var (
		order    model.Order
		accepted bool
	)
	if doc != nil {
		o, err := s.ledger.normalizer.Order(*doc)
		switch {
		case err != nil:
			s.ledger.logger.Warn("order excluded from view", slog.String("order", id), slog.String("error", err.Error()))
		case o.ProducerID == s.producer && (s.statuses == nil || s.statuses[o.Status]):
			order, accepted = o, true
		}
	}

	s.mu.Lock()
	prev, known := s.known[id]
	var delta model.OrderSetDelta
	switch {
	case accepted && !known:
		s.known[id] = entry{order: order, version: doc.Version}
		delta = model.OrderSetDelta{Kind: model.DeltaAdded, Order: order}
	case accepted && doc.Version > prev.version:
		s.known[id] = entry{order: order, version: doc.Version}
		delta = model.OrderSetDelta{Kind: model.DeltaModified, Order: order}
	case !accepted && known:
		delete(s.known, id)
		delta = model.OrderSetDelta{Kind: model.DeltaRemoved, Order: prev.order}
	default:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	select {
	case s.deltas <- delta:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
