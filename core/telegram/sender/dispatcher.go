package sender

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/core/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe  = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	statusRe = regexp.MustCompile(`\((\d{3})\)\s*$`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize bounds each worker's backlog.
	QueueSize int
	Workers   int
	// EnqueueWait is how long Enqueue blocks on a full queue before giving up.
	EnqueueWait  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Jobs sharing a key run on the same worker in enqueue order, so messages
// for one chat are never reordered.
type Dispatcher struct {
	opts   Options
	shards []chan job

	mu     sync.RWMutex
	closed bool

	once    sync.Once
	wg      sync.WaitGroup
	drained chan struct{}
	errs    atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.EnqueueWait <= 0 {
		opts.EnqueueWait = 2 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{
		opts:    opts,
		shards:  make([]chan job, opts.Workers),
		drained: make(chan struct{}),
	}

	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		go d.worker(d.shards[i])
	}

	return d
}

// Enqueue schedules run on the worker owning key (usually the chat ID).
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	j := job{
		ctx:      ctx,
		action:   action,
		endpoint: endpoint,
		run:      run,
	}
	shard := d.shards[shardFor(key, len(d.shards))]

	select {
	case shard <- j:
		return nil
	default:
	}

	timer := time.NewTimer(d.opts.EnqueueWait)
	defer timer.Stop()
	select {
	case shard <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrQueueFull
	}
}

func shardFor(key int64, n int) int {
	if key < 0 {
		key = -key
	}
	return int(key % int64(n))
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for workers to drain queued ones.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, shard := range d.shards {
			close(shard)
		}
		d.mu.Unlock()
		d.wg.Wait()
		close(d.drained)
	})
}

// Drained is closed once Close has finished running every queued job.
func (d *Dispatcher) Drained() <-chan struct{} {
	return d.drained
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	attrs := []slog.Attr{slog.String("action", j.action), slog.String("endpoint", j.endpoint)}
	start := time.Now()

	attempts, err := d.attempt(ctx, j)
	attrs = append(attrs,
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", logger.Took(start)),
	)
	if err != nil {
		d.errs.Add(1)
		logger.Error(ctx, "tg.sender", "send.fail", append(attrs,
			slog.String("err", SanitizeError(err)),
			slog.String("error_kind", classifyError(err)),
		)...)
		return
	}
	if attempts > 1 {
		logger.Info(ctx, "tg.sender", "send.retry.success", attrs...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

// attempt runs j until it succeeds, fails permanently or runs out of
// retries or time. Sending outlives the update that produced it, so only
// MaxDuration bounds it.
func (d *Dispatcher) attempt(ctx context.Context, j job) (int, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	limit := d.opts.MaxRetries + 1
	for n := 1; ; n++ {
		err := j.run()
		if err == nil {
			return n, nil
		}
		if n == limit || !retryable(err) {
			return n, err
		}
		delay := retryDelay(err, d.opts.RetryBackoff*time.Duration(n))
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			slog.String("action", j.action),
			slog.Int("attempt", n),
			slog.Duration("delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// retryable extends transport retries with Telegram flood control.
func retryable(err error) bool {
	var floodErr tele.FloodError
	return errors.As(err, &floodErr) || netutil.ShouldRetry(err)
}

// retryDelay honours Telegram's retry_after on flood errors.
func retryDelay(err error, fallback time.Duration) time.Duration {
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) && floodErr.RetryAfter > 0 {
		return time.Duration(floodErr.RetryAfter) * time.Second
	}
	return fallback
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	switch status := httpStatus(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return netutil.Classify(err)
}

// SanitizeError renders err with Telegram bot tokens masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg == "" {
		return ""
	}
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}

// httpStatus extracts the Telegram API status from err. Plain errors
// ending in "(NNN)" are parsed as well.
func httpStatus(err error) int {
	var (
		apiErr   *tele.Error
		floodErr tele.FloodError
		groupErr tele.GroupError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &floodErr):
		return http.StatusTooManyRequests
	case errors.As(err, &groupErr):
		return http.StatusBadRequest
	}
	if m := statusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}
