package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"festbot/core/logger"
	"festbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the total capacity, split evenly between workers.
	QueueSize int
	// Workers is the number of shards. Jobs of one chat always land on the
	// same shard, so replies to a chat are sent in the order they were queued.
	Workers      int
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
type Dispatcher struct {
	opts   Options
	shards []chan job
	next   atomic.Uint64

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
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

	perShard := (opts.QueueSize + opts.Workers - 1) / opts.Workers
	d := &Dispatcher{
		opts:   opts,
		shards: make([]chan job, opts.Workers),
	}
	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, perShard)
		go d.worker(d.shards[i])
	}
	return d
}

// Enqueue schedules run for asynchronous execution on the shard owning the
// chat found in ctx. The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	return d.enqueue(ctx, job{ctx: ctx, action: action, endpoint: endpoint, run: run}, nil)
}

// EnqueueWait is Enqueue that waits up to wait for room on a full shard.
// It returns ErrQueueFull when the wait expires and ctx.Err() when ctx ends
// first.
func (d *Dispatcher) EnqueueWait(ctx context.Context, wait time.Duration, action, endpoint string, run func() error) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	return d.enqueue(ctx, job{ctx: ctx, action: action, endpoint: endpoint, run: run}, timer.C)
}

// enqueue sends j to its shard. A nil expired channel means do not wait.
func (d *Dispatcher) enqueue(ctx context.Context, j job, expired <-chan time.Time) error {
	if j.run == nil {
		return errors.New("telegram sender: nil run function")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	shard := d.shards[d.shardFor(ctx)]
	select {
	case shard <- j:
		return nil
	default:
	}
	if expired == nil {
		return ErrQueueFull
	}
	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case shard <- j:
		return nil
	case <-expired:
		return ErrQueueFull
	case <-done:
		return ctx.Err()
	}
}

func (d *Dispatcher) shardFor(ctx context.Context) int {
	n := uint64(len(d.shards))
	if ctx != nil {
		if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
			id := chatID
			if id < 0 {
				id = -id
			}
			return int(uint64(id) % n)
		}
	}
	return int(d.next.Add(1) % n)
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until queued ones are processed.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadline, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", j.attrs()...)

	attempt := 1
	for ; ; attempt++ {
		err := j.run()
		if err == nil {
			break
		}
		delay, retry := d.retryDelay(err, attempt)
		if !retry || attempt > d.opts.MaxRetries {
			d.fail(ctx, j, err, attempt, start)
			return
		}
		if werr := wait(deadline, delay); werr != nil {
			d.fail(ctx, j, werr, attempt, start)
			return
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			append(j.attrs(), slog.Int("attempt", attempt), slog.Duration("delay", delay))...)
	}

	attrs := append(j.attrs(), slog.Duration("elapsed", time.Since(start)))
	if attempt > 1 {
		logger.Info(ctx, "tg.sender", "send.retry.success", append(attrs, slog.Int("attempts", attempt))...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

// wait sleeps for delay unless ctx ends first.
func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dispatcher) fail(ctx context.Context, j job, err error, attempts int, start time.Time) {
	d.errs.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail", append(j.attrs(),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", classifyError(err)),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", time.Since(start)),
	)...)
}

// retryDelay reports whether err is transient and how long to wait before
// the next attempt. Flood waits requested by Telegram win over the backoff.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	delay := d.opts.RetryBackoff * time.Duration(attempt)
	if wait, ok := netutil.RetryAfter(err); ok {
		if wait > delay {
			delay = wait
		}
		return delay, true
	}
	return delay, netutil.ShouldRetry(err)
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// classifyError buckets send failures for the err_code log field.
func classifyError(err error) string {
	var (
		dnsErr  *net.DNSError
		opErr   *net.OpError
		netErr  net.Error
		tlsErr  tls.AlertError
		certErr *tls.CertificateVerificationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &tlsErr), errors.As(err, &certErr):
		return "tls"
	}

	switch status := httpStatusFromError(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage masks bot tokens that net/http embeds in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// statusRe matches the "(code)" suffix of telebot error strings.
var statusRe = regexp.MustCompile(`\((\d{3})\)\s*$`)

func httpStatusFromError(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if _, ok := netutil.RetryAfter(err); ok {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}
	if m := statusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}
