package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

// notificationSource yields NOTIFY payloads from a dedicated connection.
type notificationSource interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type listenFunc func(ctx context.Context) (notificationSource, error)

type pooledListener struct {
	conn *pgxpool.Conn
}

func (l *pooledListener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return l.conn.Conn().WaitForNotification(ctx)
}

func (l *pooledListener) Close(ctx context.Context) error {
	_, err := l.conn.Exec(ctx, "UNLISTEN *")
	l.conn.Release()
	return err
}

func poolListener(pool *pgxpool.Pool) listenFunc {
	return func(ctx context.Context) (notificationSource, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire listener connection: %w", err)
		}
		if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
			conn.Release()
			return nil, fmt.Errorf("listen: %w", err)
		}
		return &pooledListener{conn: conn}, nil
	}
}

// Subscribe listens for committed writes to collection. Listening starts
// before the initial query so no write in between is missed.
func (s *Storage) Subscribe(ctx context.Context, collection string, filters ...document.Filter) (document.Subscription, error) {
	if s.listen == nil {
		return nil, errors.New("postgres: notifications unavailable")
	}
	src, err := s.listen(ctx)
	if err != nil {
		return nil, err
	}
	initial, err := s.Query(ctx, collection, filters...)
	if err != nil {
		_ = src.Close(context.Background())
		return nil, err
	}

	stream := document.NewStream(filters, initial, s.buffer)
	s.track(stream)
	listenCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-stream.Done()
		s.untrack(stream)
		cancel()
	}()
	go s.pump(listenCtx, collection, src, stream)
	return stream, nil
}

func (s *Storage) pump(ctx context.Context, collection string, src notificationSource, stream *document.Stream) {
	defer func() { _ = src.Close(context.Background()) }()
	for {
		n, err := src.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				stream.Fail(nil)
				return
			}
			s.logger.Warn("notification listener failed", slog.String("error", err.Error()))
			stream.Fail(err)
			return
		}
		coll, id, ok := strings.Cut(n.Payload, ":")
		if !ok || coll != collection {
			continue
		}
		doc, err := s.Get(ctx, coll, id)
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			if !stream.Observe(id, nil) {
				return
			}
		case err != nil:
			if ctx.Err() == nil {
				stream.Fail(err)
			}
			return
		default:
			if !stream.Observe(id, &doc) {
				return
			}
		}
	}
}

func (s *Storage) track(stream *document.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streams == nil {
		s.streams = make(map[*document.Stream]struct{})
	}
	s.streams[stream] = struct{}{}
}

func (s *Storage) untrack(stream *document.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, stream)
}
