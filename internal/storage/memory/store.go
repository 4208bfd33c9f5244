// Package memory is an in-process document store with the same optimistic
// transaction and subscription semantics as the database backends.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

const defaultBuffer = 64

type record struct {
	data    map[string]any
	version int64
}

// Store keeps documents in memory. Commits are serialized by a single mutex.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]record
	// removed holds the last version of deleted documents so a recreated
	// document continues the sequence instead of restarting at 1.
	removed     map[document.Key]int64
	subs        map[*subscription]struct{}
	buffer      int
	logger      *slog.Logger
}

var _ document.Store = (*Store)(nil)

// New creates an empty store whose subscriptions buffer up to buffer changes.
func New(buffer int, logger *slog.Logger) *Store {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		collections: make(map[string]map[string]record),
		removed:     make(map[document.Key]int64),
		subs:        make(map[*subscription]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

// Get returns a copy of the stored document.
func (s *Store) Get(ctx context.Context, collection, id string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return document.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domainErrors.ErrNotFound)
	}
	return document.Document{ID: id, Data: document.CloneData(rec.data), Version: rec.version}, nil
}

// Query returns matching documents ordered by ID.
func (s *Store) Query(ctx context.Context, collection string, filters ...document.Filter) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryLocked(collection, filters), nil
}

func (s *Store) queryLocked(collection string, filters []document.Filter) []document.Document {
	var result []document.Document
	for id, rec := range s.collections[collection] {
		if document.MatchAll(filters, rec.data) {
			result = append(result, document.Document{ID: id, Data: document.CloneData(rec.data), Version: rec.version})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Put writes a document outside of a transaction.
func (s *Store) Put(collection, id string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(document.Write{Key: document.Key{Collection: collection, ID: id}, Data: document.CloneData(data)})
}

// Delete removes a document outside of a transaction.
func (s *Store) Delete(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return
	}
	s.removed[document.Key{Collection: collection, ID: id}] = rec.version
	delete(s.collections[collection], id)
	s.notifyLocked(collection, id, nil)
}

// RunTransaction executes fn and commits its buffered writes if every
// document it read is unchanged.
func (s *Store) RunTransaction(ctx context.Context, fn document.TxFunc) error {
	tx := &memoryTx{store: s, TxBuffer: document.NewTxBuffer()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, version := range tx.Reads {
		if s.versionLocked(key) != version {
			return fmt.Errorf("%s changed since read: %w", key, domainErrors.ErrConflict)
		}
	}
	for _, w := range tx.Writes {
		if w.Merge && s.versionLocked(w.Key) == 0 {
			return fmt.Errorf("update %s: %w", w.Key, domainErrors.ErrNotFound)
		}
	}
	for _, w := range tx.Writes {
		s.applyLocked(w)
	}
	return nil
}

func (s *Store) versionLocked(key document.Key) int64 {
	return s.collections[key.Collection][key.ID].version
}

func (s *Store) applyLocked(w document.Write) {
	coll, ok := s.collections[w.Collection]
	if !ok {
		coll = make(map[string]record)
		s.collections[w.Collection] = coll
	}
	prev, ok := coll[w.ID]
	if !ok {
		prev.version = s.removed[w.Key]
		delete(s.removed, w.Key)
	}
	data := w.Data
	if w.Merge {
		data = document.MergeData(prev.data, w.Data)
	}
	rec := record{data: data, version: prev.version + 1}
	coll[w.ID] = rec
	s.notifyLocked(w.Collection, w.ID, &document.Document{ID: w.ID, Data: rec.data, Version: rec.version})
}

// Close interrupts every open subscription.
func (s *Store) Close() error {
	s.Interrupt(domainErrors.ErrSubscriptionClosed)
	return nil
}

// Interrupt terminates all subscriptions with err, as a dropped connection would.
func (s *Store) Interrupt(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		sub.terminateLocked(err)
	}
}

type memoryTx struct {
	*document.TxBuffer
	store *Store
}

func (tx *memoryTx) Get(ctx context.Context, collection, id string) (document.Document, error) {
	doc, err := tx.store.Get(ctx, collection, id)
	key := document.Key{Collection: collection, ID: id}
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			tx.RecordRead(key, 0)
		}
		return document.Document{}, err
	}
	tx.RecordRead(key, doc.Version)
	return doc, nil
}
