// Package postgres stores documents as JSONB rows with a version column and
// streams changes over LISTEN/NOTIFY.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

// notifyChannel carries "collection:id" payloads for committed writes.
const notifyChannel = "documents_changed"

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage is a document.Store backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	listen listenFunc
	buffer int
	logger *slog.Logger

	mu      sync.Mutex
	streams map[*document.Stream]struct{}
}

var _ document.Store = (*Storage)(nil)

// New connects, initializes the schema and returns the storage.
func New(ctx context.Context, dsn string, buffer int, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, buffer: buffer, logger: logger}
	if p, ok := pool.(*pgxpool.Pool); ok {
		storage.listen = poolListener(p)
	}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close ends open subscriptions and releases database resources.
func (s *Storage) Close() error {
	s.mu.Lock()
	for stream := range s.streams {
		stream.Fail(domainErrors.ErrSubscriptionClosed)
	}
	s.streams = nil
	s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            id TEXT NOT NULL,
            data JSONB NOT NULL,
            version BIGINT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (collection, id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// Get returns a single document.
func (s *Storage) Get(ctx context.Context, collection, id string) (document.Document, error) {
	const query = `SELECT data, version FROM documents WHERE collection=$1 AND id=$2`
	var (
		raw     []byte
		version int64
	)
	err := s.pool.QueryRow(ctx, query, collection, id).Scan(&raw, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return document.Document{}, fmt.Errorf("%s/%s: %w", collection, id, domainErrors.ErrNotFound)
		}
		return document.Document{}, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return document.Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return document.Document{ID: id, Data: data, Version: version}, nil
}

// Query returns matching documents ordered by ID.
func (s *Storage) Query(ctx context.Context, collection string, filters ...document.Filter) ([]document.Document, error) {
	query, args, err := buildQuery(collection, filters)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []document.Document
	for rows.Next() {
		var (
			id      string
			raw     []byte
			version int64
		)
		if err := rows.Scan(&id, &raw, &version); err != nil {
			return nil, err
		}
		data, err := decodeData(raw)
		if err != nil {
			s.logger.Warn("undecodable document skipped", slog.String("collection", collection), slog.String("id", id))
			continue
		}
		if document.MatchAll(filters, data) {
			result = append(result, document.Document{ID: id, Data: data, Version: version})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// buildQuery pushes equality filters down as JSONB containment and "in"
// filters as jsonb array membership.
func buildQuery(collection string, filters []document.Filter) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data, version FROM documents WHERE collection=$1`)
	args := []any{collection}
	for _, f := range filters {
		switch {
		case f.Op == document.OpEq && len(f.Values) == 1:
			raw, err := json.Marshal(map[string]any{f.Field: f.Values[0]})
			if err != nil {
				return "", nil, fmt.Errorf("encode filter %s: %w", f, err)
			}
			args = append(args, string(raw))
			fmt.Fprintf(&sb, ` AND data @> $%d::jsonb`, len(args))
		default:
			values := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				raw, err := json.Marshal(v)
				if err != nil {
					return "", nil, fmt.Errorf("encode filter %s: %w", f, err)
				}
				values = append(values, string(raw))
			}
			args = append(args, f.Field, values)
			fmt.Fprintf(&sb, ` AND data->$%d = ANY($%d::jsonb[])`, len(args)-1, len(args))
		}
	}
	sb.WriteString(` ORDER BY id`)
	return sb.String(), args, nil
}

// RunTransaction runs fn against optimistic reads and commits its writes in
// one SQL transaction after re-validating every read version.
func (s *Storage) RunTransaction(ctx context.Context, fn document.TxFunc) error {
	tx := &pgTx{storage: s, TxBuffer: document.NewTxBuffer()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.Writes) == 0 {
		return nil
	}
	err := s.WithinTransaction(ctx, func(sqlTx pgx.Tx) error {
		return s.commit(ctx, sqlTx, tx.TxBuffer)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "23505") {
		return fmt.Errorf("%s: %w", pgErr.Message, domainErrors.ErrConflict)
	}
	return err
}

func (s *Storage) commit(ctx context.Context, sqlTx pgx.Tx, buf *document.TxBuffer) error {
	const (
		lockQuery = `SELECT version FROM documents WHERE collection=$1 AND id=$2 FOR UPDATE`
		setQuery  = `INSERT INTO documents (collection, id, data, version) VALUES ($1, $2, $3::jsonb, 1)
                     ON CONFLICT (collection, id) DO UPDATE
                     SET data = EXCLUDED.data, version = documents.version + 1, updated_at = NOW()`
		mergeQuery = `UPDATE documents SET data = data || $3::jsonb, version = version + 1, updated_at = NOW()
                      WHERE collection=$1 AND id=$2`
		notifyQuery = `SELECT pg_notify($1, $2)`
	)

	keys := make([]document.Key, 0, len(buf.Reads))
	for key := range buf.Reads {
		keys = append(keys, key)
	}
	// Lock in a stable order so concurrent commits cannot deadlock.
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		var current int64
		err := sqlTx.QueryRow(ctx, lockQuery, key.Collection, key.ID).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if current != buf.Reads[key] {
			return fmt.Errorf("%s changed since read: %w", key, domainErrors.ErrConflict)
		}
	}

	for _, w := range buf.Writes {
		raw, err := encodeData(w.Data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", w.Key, err)
		}
		if w.Merge {
			tag, err := sqlTx.Exec(ctx, mergeQuery, w.Collection, w.ID, raw)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("update %s: %w", w.Key, domainErrors.ErrNotFound)
			}
		} else if _, err := sqlTx.Exec(ctx, setQuery, w.Collection, w.ID, raw); err != nil {
			return err
		}
		if _, err := sqlTx.Exec(ctx, notifyQuery, notifyChannel, w.Key.Collection+":"+w.Key.ID); err != nil {
			return err
		}
	}
	return nil
}

type pgTx struct {
	*document.TxBuffer
	storage *Storage
}

func (tx *pgTx) Get(ctx context.Context, collection, id string) (document.Document, error) {
	doc, err := tx.storage.Get(ctx, collection, id)
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

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domainErrors.ErrUnsupportedDocument, err)
	}
	return string(raw), nil
}

func decodeData(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}
