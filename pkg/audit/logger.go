package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Storage persists audit records in batches. Implementations should
// optimize for bulk inserts; a batch either fully succeeds or fully
// fails.
type Storage interface {
	StoreAuthEvents(ctx context.Context, events []AuthEvent) error
	StoreTenantAccesses(ctx context.Context, accesses []TenantAccess) error
}

// Options configures the batching and buffering behavior.
type Options struct {
	BufferSize     int           // max records queued in memory before dropping
	BatchSize      int           // target records per batch
	BatchTimeout   time.Duration // max wait before flushing a partial batch
	StorageTimeout time.Duration // per-batch storage deadline
}

type record struct {
	event  *AuthEvent
	access *TenantAccess
}

// Logger records authentication events asynchronously. Recording never
// blocks the caller and never fails the caller: storage errors are
// logged and swallowed, and a full buffer drops the record rather than
// stalling a login. Auditing is best-effort by contract; only Close
// reports whether the final flush made it out.
type Logger struct {
	storage Storage
	log     *slog.Logger
	now     func() time.Time
	opts    Options

	records chan record
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

type Option func(*Logger)

func WithLogger(log *slog.Logger) Option {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

func WithOptions(opts Options) Option {
	return func(l *Logger) { l.opts = opts }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.opts.BufferSize <= 0 {
		l.opts.BufferSize = 1000
	}
	if l.opts.BatchSize <= 0 {
		l.opts.BatchSize = 100
	}
	if l.opts.BatchTimeout <= 0 {
		l.opts.BatchTimeout = 100 * time.Millisecond
	}
	if l.opts.StorageTimeout <= 0 {
		l.opts.StorageTimeout = 5 * time.Second
	}

	l.records = make(chan record, l.opts.BufferSize)
	l.done = make(chan struct{})
	l.wg.Add(1)
	go l.worker()
	return l
}

// RecordAuthEvent queues one authentication event.
func (l *Logger) RecordAuthEvent(ctx context.Context, kind EventKind, success bool, opts ...EventOption) {
	e := AuthEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Success:   success,
		CreatedAt: l.now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	l.enqueue(ctx, record{event: &e})
}

// RecordTenantAccess queues one cross-tenant access record.
func (l *Logger) RecordTenantAccess(ctx context.Context, userID uuid.UUID, tokenTenantID *uuid.UUID, requestTenantID uuid.UUID, kind string) {
	a := TenantAccess{
		ID:              uuid.New(),
		UserID:          userID,
		TokenTenantID:   tokenTenantID,
		RequestTenantID: requestTenantID,
		Kind:            kind,
		CreatedAt:       l.now().UTC(),
	}
	l.enqueue(ctx, record{access: &a})
}

func (l *Logger) enqueue(ctx context.Context, rec record) {
	select {
	case <-l.done:
		l.log.WarnContext(ctx, "audit record after close", logger.Component("audit"))
		return
	default:
	}

	select {
	case l.records <- rec:
	default:
		// Buffer full. Dropping keeps the primary flow moving; the loss
		// itself is logged so operators see it.
		l.log.WarnContext(ctx, "audit buffer full, record dropped", logger.Component("audit"))
	}
}

func (l *Logger) worker() {
	defer l.wg.Done()

	events := make([]AuthEvent, 0, l.opts.BatchSize)
	accesses := make([]TenantAccess, 0, l.opts.BatchSize)
	ticker := time.NewTicker(l.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(events) == 0 && len(accesses) == 0 {
			return
		}

		// Storage runs on its own deadline so a caller's cancelled request
		// context cannot cascade into a lost batch.
		ctx, cancel := context.WithTimeout(context.Background(), l.opts.StorageTimeout)
		defer cancel()

		if len(events) > 0 {
			if err := l.storage.StoreAuthEvents(ctx, events); err != nil {
				l.log.Error("audit event batch write failed",
					logger.Error(err), slog.Int("batch_size", len(events)), logger.Component("audit"))
			}
			events = events[:0]
		}
		if len(accesses) > 0 {
			if err := l.storage.StoreTenantAccesses(ctx, accesses); err != nil {
				l.log.Error("tenant access batch write failed",
					logger.Error(err), slog.Int("batch_size", len(accesses)), logger.Component("audit"))
			}
			accesses = accesses[:0]
		}
	}

	for {
		select {
		case rec := <-l.records:
			if rec.event != nil {
				events = append(events, *rec.event)
			}
			if rec.access != nil {
				accesses = append(accesses, *rec.access)
			}
			if len(events)+len(accesses) >= l.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-l.done:
			// Drain whatever was queued before close.
			for {
				select {
				case rec := <-l.records:
					if rec.event != nil {
						events = append(events, *rec.event)
					}
					if rec.access != nil {
						accesses = append(accesses, *rec.access)
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops the worker and flushes pending records. Safe to call more
// than once.
func (l *Logger) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		close(l.done)

		finished := make(chan struct{})
		go func() {
			l.wg.Wait()
			close(finished)
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			l.closeErr = ctx.Err()
		}
	})
	return l.closeErr
}
