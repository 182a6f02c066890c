package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/envlog/log"
)

// recorder is a slog.Handler that keeps every record it sees. If entered is
// non-nil, Handle signals it and then waits for release to be closed.
type recorder struct {
	entered  chan struct{}
	release  chan struct{}
	panicOn  string
	attrs    []slog.Attr
	shared   *recorded
	inflight atomic.Int32
}

type recorded struct {
	records    []slog.Record
	attrs      [][]slog.Attr
	ctxErrs    []error
	mu         sync.Mutex
	concurrent bool
}

func newRecorder() *recorder {
	return &recorder{shared: &recorded{}}
}

func newGatedRecorder() *recorder {
	r := newRecorder()
	r.entered = make(chan struct{}, 16)
	r.release = make(chan struct{})

	return r
}

func (h *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *recorder) Handle(ctx context.Context, r slog.Record) error {
	if h.inflight.Add(1) > 1 {
		h.shared.mu.Lock()
		h.shared.concurrent = true
		h.shared.mu.Unlock()
	}
	defer h.inflight.Add(-1)

	if h.entered != nil {
		h.entered <- struct{}{}
		<-h.release
	}

	if h.panicOn != "" && r.Message == h.panicOn {
		panic("handler failure")
	}

	h.shared.mu.Lock()
	defer h.shared.mu.Unlock()

	h.shared.records = append(h.shared.records, r.Clone())
	h.shared.attrs = append(h.shared.attrs, h.attrs)
	h.shared.ctxErrs = append(h.shared.ctxErrs, ctx.Err())

	return nil
}

func (h *recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recorder{
		entered: h.entered,
		release: h.release,
		panicOn: h.panicOn,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
		shared:  h.shared,
	}
}

func (h *recorder) WithGroup(string) slog.Handler { return h }

func (h *recorder) messages() []string {
	h.shared.mu.Lock()
	defer h.shared.mu.Unlock()

	msgs := make([]string, 0, len(h.shared.records))
	for _, r := range h.shared.records {
		msgs = append(msgs, r.Message)
	}

	return msgs
}

func TestParseOverflow(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input       string
		expected    log.Overflow
		expectError bool
	}{
		"block":            {input: "block", expected: log.OverflowBlock},
		"drop":             {input: "drop", expected: log.OverflowDrop},
		"drop and report":  {input: "drop-and-report", expected: log.OverflowDropAndReport},
		"case insensitive": {input: "DROP", expected: log.OverflowDrop},
		"unknown":          {input: "spill", expectError: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseOverflow(tc.input)
			if tc.expectError {
				require.ErrorIs(t, err, log.ErrUnknownOverflow)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	h := log.NewAsyncHandler(rec, log.WithQueueSize(100))
	logger := slog.New(h)

	want := make([]string, 0, 50)
	for i := range 50 {
		msg := string(rune('a' + i%26))
		want = append(want, msg)
		logger.Info(msg, "i", i)
	}

	require.NoError(t, h.Close())
	assert.Equal(t, want, rec.messages())
	assert.Zero(t, h.Dropped())
}

func TestAsyncHandlerCloseIdempotent(t *testing.T) {
	t.Parallel()

	h := log.NewAsyncHandler(newRecorder())

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestAsyncHandlerAfterClose(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	h := log.NewAsyncHandler(rec)
	require.NoError(t, h.Close())

	slog.New(h).Info("late")

	assert.Equal(t, []string{"late"}, rec.messages())
}

func TestAsyncHandlerOverflow(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		overflow    log.Overflow
		want        []string
		wantDropped uint64
	}{
		"drop": {
			overflow:    log.OverflowDrop,
			want:        []string{"1", "2"},
			wantDropped: 2,
		},
		"drop and report": {
			overflow:    log.OverflowDropAndReport,
			want:        []string{"1", "log records dropped", "2"},
			wantDropped: 2,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := newGatedRecorder()
			h := log.NewAsyncHandler(rec, log.WithQueueSize(1), log.WithOverflow(tc.overflow))
			logger := slog.New(h)

			logger.Info("1")
			<-rec.entered // The worker holds "1"; the queue is empty.

			logger.Info("2")
			logger.Info("3")
			logger.Info("4")

			assert.Equal(t, tc.wantDropped, h.Dropped())

			close(rec.release)
			require.NoError(t, h.Close())

			assert.Equal(t, tc.want, rec.messages())
		})
	}

	t.Run("report carries count", func(t *testing.T) {
		t.Parallel()

		rec := newGatedRecorder()
		h := log.NewAsyncHandler(rec, log.WithQueueSize(1))
		logger := slog.New(h)

		logger.Info("1")
		<-rec.entered

		for range 5 {
			logger.Info("x")
		}

		close(rec.release)
		require.NoError(t, h.Close())

		var report *slog.Record
		for i, r := range rec.shared.records {
			if r.Message == "log records dropped" {
				report = &rec.shared.records[i]
			}
		}

		require.NotNil(t, report)
		assert.Equal(t, slog.LevelWarn, report.Level)

		var count uint64
		report.Attrs(func(a slog.Attr) bool {
			if a.Key == "count" {
				count = a.Value.Uint64()
			}

			return true
		})
		assert.Equal(t, uint64(4), count)
	})
}

func TestAsyncHandlerReportBypassesFilter(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		filter *string
	}{
		"built-in error tier": {
			filter: nil,
		},
		"path-only expression": {
			filter: ptr(testPackage + "=debug"),
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := log.NewConfig()
			cfg.Filter = tc.filter

			rec := newGatedRecorder()
			h := log.NewAsyncHandler(log.ApplyFilter(rec, cfg), log.WithQueueSize(1))
			logger := slog.New(h)

			logger.Error("1")
			<-rec.entered

			for range 20 {
				logger.Error("x")
			}

			close(rec.release)
			require.NoError(t, h.Close())

			assert.Equal(t, uint64(19), h.Dropped())
			assert.Contains(t, rec.messages(), "log records dropped")
		})
	}
}

func TestWithReportHandler(t *testing.T) {
	t.Parallel()

	rec := newGatedRecorder()
	reports := newRecorder()

	h := log.NewAsyncHandler(rec, log.WithQueueSize(1), log.WithReportHandler(reports))
	logger := slog.New(h)

	logger.Info("1")
	<-rec.entered

	logger.Info("2")
	logger.Info("3")

	close(rec.release)
	require.NoError(t, h.Close())

	assert.Equal(t, []string{"1", "2"}, rec.messages())
	assert.Equal(t, []string{"log records dropped"}, reports.messages())
}

func TestAsyncHandlerBlock(t *testing.T) {
	t.Parallel()

	rec := newGatedRecorder()
	h := log.NewAsyncHandler(rec, log.WithQueueSize(1), log.WithOverflow(log.OverflowBlock))
	logger := slog.New(h)

	logger.Info("1")
	<-rec.entered

	logger.Info("2")

	done := make(chan struct{})
	go func() {
		defer close(done)

		logger.Info("3")
	}()

	close(rec.release)
	<-done

	require.NoError(t, h.Close())
	assert.Equal(t, []string{"1", "2", "3"}, rec.messages())
	assert.Zero(t, h.Dropped())
}

func TestAsyncHandlerConcurrentProducers(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	h := log.NewAsyncHandler(rec, log.WithOverflow(log.OverflowBlock))
	logger := slog.New(h)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				logger.Info("msg")
			}
		})
	}

	wg.Wait()
	require.NoError(t, h.Close())

	assert.Len(t, rec.messages(), 800)
	assert.False(t, rec.shared.concurrent, "records must be delivered one at a time")
}

func TestAsyncHandlerRecoversPanics(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.panicOn = "boom"

	h := log.NewAsyncHandler(rec)
	logger := slog.New(h)

	logger.Info("before")
	logger.Info("boom")
	logger.Info("after")

	require.NoError(t, h.Close())
	assert.Equal(t, []string{"before", "after"}, rec.messages())
}

func TestAsyncHandlerDetachesContext(t *testing.T) {
	t.Parallel()

	rec := newGatedRecorder()
	h := log.NewAsyncHandler(rec)

	ctx, cancel := context.WithCancel(t.Context())
	slog.New(h).InfoContext(ctx, "request done")
	cancel()

	<-rec.entered
	close(rec.release)
	require.NoError(t, h.Close())

	require.Len(t, rec.shared.ctxErrs, 1)
	assert.NoError(t, rec.shared.ctxErrs[0])
}

func TestAsyncHandlerWithAttrsSharesQueue(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	h := log.NewAsyncHandler(rec)

	slog.New(h).With("component", "db").Info("child")
	slog.New(h).Info("root")

	require.NoError(t, h.Close())

	assert.Equal(t, []string{"child", "root"}, rec.messages())
	assert.Equal(t, []slog.Attr{slog.String("component", "db")}, rec.shared.attrs[0])
	assert.Empty(t, rec.shared.attrs[1])
}

func TestAsyncHandlerEnabledDelegates(t *testing.T) {
	t.Parallel()

	inner := log.NewFilterHandler(log.NewHandler(&bytes.Buffer{}, log.FormatJSON), "warn")
	h := log.NewAsyncHandler(inner)

	defer h.Close()

	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelWarn))
}

func TestWithQueueSizeClamps(t *testing.T) {
	t.Parallel()

	rec := newGatedRecorder()
	h := log.NewAsyncHandler(rec, log.WithQueueSize(-3), log.WithOverflow(log.OverflowDrop))
	logger := slog.New(h)

	logger.Info("1")
	<-rec.entered

	logger.Info("2")
	logger.Info("3")

	assert.Equal(t, uint64(1), h.Dropped())

	close(rec.release)
	require.NoError(t, h.Close())
}
