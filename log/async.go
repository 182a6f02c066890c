package log

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultQueueSize = 128

// Overflow selects what [AsyncHandler.Handle] does when the queue is full.
type Overflow string

const (
	// OverflowBlock waits for the worker to make room.
	OverflowBlock Overflow = "block"
	// OverflowDrop discards the record.
	OverflowDrop Overflow = "drop"
	// OverflowDropAndReport discards the record and, once the queue has room
	// again, emits a warning carrying the number of records dropped.
	OverflowDropAndReport Overflow = "drop-and-report"
)

// ErrUnknownOverflow indicates an unrecognized overflow strategy string.
var ErrUnknownOverflow = errors.New("unknown overflow strategy")

// ParseOverflow parses an overflow strategy string. Matching is
// case-insensitive.
func ParseOverflow(s string) (Overflow, error) {
	o := Overflow(strings.ToLower(s))
	if slices.Contains([]Overflow{OverflowBlock, OverflowDrop, OverflowDropAndReport}, o) {
		return o, nil
	}

	return "", ErrUnknownOverflow
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseOverflow].
func (o *Overflow) UnmarshalText(text []byte) error {
	parsed, err := ParseOverflow(string(text))
	if err != nil {
		return err
	}

	*o = parsed

	return nil
}

// GetAllOverflowStrings returns every overflow strategy name.
func GetAllOverflowStrings() []string {
	return []string{
		string(OverflowBlock),
		string(OverflowDrop),
		string(OverflowDropAndReport),
	}
}

// AsyncHandler is a [slog.Handler] that moves delivery off the calling
// goroutine.
//
// Records are cloned into a bounded queue that a single worker goroutine
// drains into the wrapped handler, so the wrapped handler sees one record at a
// time. Handle never blocks unless the overflow strategy is [OverflowBlock],
// and never returns an error. A panic in the wrapped handler is recovered and
// the record is lost. Handlers derived with WithAttrs and WithGroup share the
// queue and worker. Safe for concurrent use.
//
// Create instances with [NewAsyncHandler]. Call [AsyncHandler.Close] before
// the process exits to flush queued records.
type AsyncHandler struct {
	inner slog.Handler
	q     *queue
}

type entry struct {
	ctx context.Context //nolint:containedctx // Carried to the worker.
	h   slog.Handler
	r   slog.Record
}

type queue struct {
	reportTo slog.Handler
	ch       chan entry
	done     chan struct{}
	overflow Overflow
	size     int
	pending  atomic.Uint64
	dropped  atomic.Uint64
	mu       sync.RWMutex
	closed   bool
}

// AsyncOption configures an [AsyncHandler].
type AsyncOption func(*queue)

// WithQueueSize sets the queue capacity. Values less than 1 are clamped to 1.
func WithQueueSize(n int) AsyncOption {
	return func(q *queue) {
		if n < 1 {
			n = 1
		}

		q.size = n
	}
}

// WithOverflow sets the overflow strategy. Unknown values are ignored.
func WithOverflow(o Overflow) AsyncOption {
	return func(q *queue) {
		if _, err := ParseOverflow(string(o)); err == nil {
			q.overflow = o
		}
	}
}

// WithReportHandler sets the handler that receives the dropped-records
// warning of [OverflowDropAndReport].
func WithReportHandler(h slog.Handler) AsyncOption {
	return func(q *queue) {
		if h != nil {
			q.reportTo = h
		}
	}
}

// NewAsyncHandler wraps h and starts its worker goroutine. The default queue
// size is 128 and the default overflow strategy is [OverflowDropAndReport].
//
// The dropped-records warning goes to h, or to the handler h filters if h is
// a [*FilterHandler], so that filter directives cannot hide it. Use
// [WithReportHandler] to choose another destination.
func NewAsyncHandler(h slog.Handler, opts ...AsyncOption) *AsyncHandler {
	reportTo := h
	if f, ok := h.(*FilterHandler); ok {
		reportTo = f.inner
	}

	q := &queue{
		reportTo: reportTo,
		size:     defaultQueueSize,
		overflow: OverflowDropAndReport,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}

	q.ch = make(chan entry, q.size)

	go q.run()

	return &AsyncHandler{inner: h, q: q}
}

// Enabled reports whether the wrapped handler accepts level.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues a clone of r. After [AsyncHandler.Close], records are
// handled synchronously instead. Always returns nil.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e := entry{
		ctx: context.WithoutCancel(ctx),
		h:   h.inner,
		r:   r.Clone(),
	}

	q := h.q

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		deliver(e)
		return nil
	}

	if q.overflow == OverflowBlock {
		q.ch <- e
		return nil
	}

	select {
	case q.ch <- e:
	default:
		q.dropped.Add(1)
		q.pending.Add(1)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup implements [slog.Handler].
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// Dropped returns the number of records discarded because the queue was full.
func (h *AsyncHandler) Dropped() uint64 {
	return h.q.dropped.Load()
}

// Close stops accepting queued records, waits for the worker to deliver
// everything already queued, and stops it. Closing any handler derived from
// the same [NewAsyncHandler] call closes them all. Idempotent.
func (h *AsyncHandler) Close() error {
	q := h.q

	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	<-q.done

	return nil
}

func (q *queue) run() {
	defer close(q.done)

	for e := range q.ch {
		deliver(e)
		q.report()
	}

	q.report()
}

// report emits one warning for the records dropped since the last report.
func (q *queue) report() {
	if q.overflow != OverflowDropAndReport {
		return
	}

	n := q.pending.Swap(0)
	if n == 0 {
		return
	}

	r := slog.NewRecord(time.Now(), slog.LevelWarn, "log records dropped", 0)
	r.AddAttrs(slog.Uint64("count", n))

	deliver(entry{ctx: context.Background(), h: q.reportTo, r: r})
}

func deliver(e entry) {
	defer func() {
		_ = recover()
	}()

	//nolint:errcheck // Handler errors have nowhere to go.
	e.h.Handle(e.ctx, e.r)
}
