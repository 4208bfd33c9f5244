package memory

import (
	"context"
	"log/slog"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
)

type subscription struct {
	store      *Store
	collection string
	tracker    *document.Tracker
	ch         chan document.Change
	done       chan struct{}
	err        error
	closed     bool
}

// Subscribe streams changes to documents matching filters. Changes are
// delivered in commit order; a subscriber that falls more than the buffer
// behind is interrupted with document.ErrSubscriberLagging.
func (s *Store) Subscribe(ctx context.Context, collection string, filters ...document.Filter) (document.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	sub := &subscription{
		store:      s,
		collection: collection,
		tracker:    document.NewTracker(filters, s.queryLocked(collection, filters)),
		ch:         make(chan document.Change, s.buffer),
		done:       make(chan struct{}),
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (s *Store) notifyLocked(collection, id string, doc *document.Document) {
	for sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		var snapshot *document.Document
		if doc != nil {
			snapshot = &document.Document{ID: doc.ID, Data: document.CloneData(doc.Data), Version: doc.Version}
		}
		change, ok := sub.tracker.Observe(id, snapshot)
		if !ok {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			s.logger.Warn("subscription buffer overflow", slog.String("collection", collection))
			sub.terminateLocked(document.ErrSubscriberLagging)
		}
	}
}

func (sub *subscription) terminateLocked(err error) {
	if sub.closed {
		return
	}
	sub.closed = true
	sub.err = err
	delete(sub.store.subs, sub)
	close(sub.ch)
	close(sub.done)
}

func (sub *subscription) Changes() <-chan document.Change {
	return sub.ch
}

func (sub *subscription) Err() error {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	return sub.err
}

func (sub *subscription) Close() error {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	sub.terminateLocked(nil)
	return nil
}
