package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gewe-lab/contract"
	"gewe-lab/domain"
	gweerrors "gewe-lab/errors"
)

// Options tune the coordination loop. Zero values get defaults.
type Options struct {
	// QueueSize bounds each subscriber's ordered fan-out buffer.
	QueueSize int
	// Grace bounds how long termination may spend flushing subscribers.
	Grace time.Duration
	// MaxElections bounds consecutive failed re-acquisitions after a
	// hand-off before the waiter gives up.
	MaxElections int
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	// Seed feeds the backoff RNG; zero means wall-clock seeded.
	Seed int64
	// SleepFn is the wait seam, replaceable in tests.
	SleepFn func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Grace <= 0 {
		o.Grace = 2 * time.Second
	}
	if o.MaxElections <= 0 {
		o.MaxElections = 10
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 100 * time.Millisecond
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 2 * time.Second
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.SleepFn == nil {
		o.SleepFn = Sleep
	}
	return o
}

// Waiter drives one session through the role loop: acquire a role, run it,
// and on hand-off elect again, however many times the primary changes.
// Its matcher is shared across every role it takes, so a subscriber
// promoted to primary keeps all buffered progress.
type Waiter struct {
	log     *slog.Logger
	session domain.Session
	source  contract.ReplySource
	matcher *domain.Matcher
	arbiter *Arbiter
	backoff *Backoff
	opts    Options
}

func NewWaiter(log *slog.Logger, session domain.Session, source contract.ReplySource, opts Options) (*Waiter, error) {
	matcher, err := domain.NewMatcher(session)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	return &Waiter{
		log:     log,
		session: session,
		source:  source,
		matcher: matcher,
		arbiter: NewArbiter(log, session.Listen, session.SocketPath()),
		backoff: NewBackoff(opts.BackoffBase, opts.BackoffCap, opts.Seed),
		opts:    opts,
	}, nil
}

// Run blocks until the session matches, times out, or fails fatally.
//
// A failed first acquisition is a genuine port conflict and fails fast.
// Once the waiter has been part of the cohort, a failed re-acquisition is
// election contention (another subscriber may be mid-promotion), retried
// with jittered backoff up to MaxElections before degrading to a fatal
// error.
func (w *Waiter) Run(ctx context.Context) (Result, error) {
	if w.session.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.session.Timeout)
		defer cancel()
	}

	elections := 0
	joined := false
	for {
		acq, err := w.arbiter.Acquire()
		if err != nil {
			if !joined {
				return Result{}, err
			}
			elections++
			if elections > w.opts.MaxElections {
				return Result{}, fmt.Errorf("%w after %d attempts: %v", gweerrors.ErrElectionExhausted, elections-1, err)
			}
			delay := w.backoff.Delay(elections)
			w.log.Debug("Election contention, backing off", "attempt", elections, "delay", delay)
			if serr := w.opts.SleepFn(ctx, delay); serr != nil {
				return w.canceled(ctx), nil
			}
			continue
		}
		elections = 0
		joined = true

		if acq.Role == RolePrimary {
			primary := NewPrimary(w.log, w.source, w.matcher, acq,
				w.session.SocketPath(), w.opts.QueueSize, w.opts.Grace)
			return primary.Run(ctx)
		}

		res, end := NewSubscriber(w.log, w.matcher).Listen(ctx, acq.Conn)
		if end == ListenHandoff {
			continue
		}
		return res, nil
	}
}

func (w *Waiter) canceled(ctx context.Context) Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{Status: StatusTimeout}
	}
	return Result{Status: StatusAborted}
}
