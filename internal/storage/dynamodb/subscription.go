package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

// Subscribe polls the collection every PollInterval and reports documents
// whose version moved since the previous poll.
func (s *Store) Subscribe(ctx context.Context, collection string, filters ...document.Filter) (document.Subscription, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("subscribe %s: %w", collection, domainErrors.ErrSubscriptionClosed)
	}

	initial, err := s.Query(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}

	stream := document.NewStream(filters, initial, s.opts.Buffer)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stream.Fail(domainErrors.ErrSubscriptionClosed)
		return stream, nil
	}
	s.streams[stream] = struct{}{}
	s.mu.Unlock()

	p := &poller{
		store:      s,
		collection: collection,
		filters:    filters,
		stream:     stream,
		versions:   make(map[string]int64, len(initial)),
	}
	for _, doc := range initial {
		p.versions[doc.ID] = doc.Version
	}

	pollCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-stream.Done()
		s.mu.Lock()
		delete(s.streams, stream)
		s.mu.Unlock()
		cancel()
	}()
	go p.run(pollCtx)
	return stream, nil
}

type poller struct {
	store      *Store
	collection string
	filters    []document.Filter
	stream     *document.Stream
	versions   map[string]int64
}

func (p *poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.store.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.stream.Fail(nil)
			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				if ctx.Err() != nil {
					p.stream.Fail(nil)
					return
				}
				p.store.logger.Warn("subscription poll failed",
					slog.String("collection", p.collection),
					slog.String("error", err.Error()),
				)
				p.stream.Fail(err)
				return
			}
		}
	}
}

// poll reconciles the current result set with the versions seen so far.
// Members missing from the result are re-read to tell deletion from a
// document that stopped matching.
func (p *poller) poll(ctx context.Context) error {
	docs, err := p.store.Query(ctx, p.collection, p.filters...)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		doc := docs[i]
		seen[doc.ID] = struct{}{}
		if v, ok := p.versions[doc.ID]; ok && v == doc.Version {
			continue
		}
		p.versions[doc.ID] = doc.Version
		if !p.stream.Observe(doc.ID, &doc) {
			return nil
		}
	}

	for id := range p.versions {
		if _, ok := seen[id]; ok {
			continue
		}
		delete(p.versions, id)
		doc, err := p.store.Get(ctx, p.collection, id)
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			if !p.stream.Observe(id, nil) {
				return nil
			}
		case err != nil:
			return err
		default:
			if !p.stream.Observe(id, &doc) {
				return nil
			}
		}
	}
	return nil
}
