package runtime

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"gewe-lab/broadcast"
	"gewe-lab/contract"
	"gewe-lab/domain"
	"gewe-lab/runtime/workers"
)

// Primary owns the inbound endpoint and the rendezvous socket. It runs the
// delivery source and the subscriber accept loop under supervision while
// its own loop fans every reply out, evaluates the match engine and watches
// the deadline. Broadcast order is arrival order; there is no batching.
type Primary struct {
	log        *slog.Logger
	source     contract.ReplySource
	matcher    *domain.Matcher
	fanout     *Fanout
	acq        Acquisition
	socketPath string
	grace      time.Duration
}

func NewPrimary(log *slog.Logger, source contract.ReplySource, matcher *domain.Matcher,
	acq Acquisition, socketPath string, queueSize int, grace time.Duration) *Primary {
	return &Primary{
		log:        log,
		source:     source,
		matcher:    matcher,
		fanout:     NewFanout(log, queueSize),
		acq:        acq,
		socketPath: socketPath,
		grace:      grace,
	}
}

// Run drives the Running state until a match, the deadline, or a shutdown
// request moves it to Terminating. Terminating always completes the
// announced hand-off: shutdown envelope to every subscriber, connections
// flushed and closed, rendezvous socket removed, endpoint released.
func (p *Primary) Run(ctx context.Context) (Result, error) {
	defer p.release()

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup := workers.NewSupervisor(p.log)
	sup.Add(
		workers.Intake{Source: p.source, Listener: p.acq.Listener}.WithName("webhook-intake"),
		workers.Acceptor{Log: p.log, Listener: p.acq.Rendezvous, Admit: p.fanout.Admit}.WithName("subscriber-accept"),
	)
	supDone := make(chan struct{})
	go func() {
		sup.Run(workerCtx)
		close(supDone)
	}()

	for {
		select {
		case reply, ok := <-p.source.Replies():
			if !ok {
				return p.terminate(broadcast.ReasonPrimaryExit, Result{Status: StatusAborted}, cancel, supDone)
			}
			p.fanout.Broadcast(broadcast.Message(reply))
			if out := p.matcher.Evaluate(reply); out.Matched {
				return p.terminate(broadcast.ReasonMatch, Result{Status: StatusMatched, Replies: out.Replies}, cancel, supDone)
			}
		case <-ctx.Done():
			reason := broadcast.ReasonPrimaryExit
			status := StatusAborted
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				reason = broadcast.ReasonTimeout
				status = StatusTimeout
			}
			return p.terminate(reason, Result{Status: status}, cancel, supDone)
		}
	}
}

func (p *Primary) terminate(reason string, res Result, cancel context.CancelFunc, supDone <-chan struct{}) (Result, error) {
	p.log.Info("Primary terminating", "reason", reason, "subscribers", p.fanout.Size())
	p.fanout.Shutdown(reason, p.grace)
	_ = p.acq.Rendezvous.Close()
	_ = os.Remove(p.socketPath)

	cancel()
	select {
	case <-supDone:
	case <-time.After(p.grace):
		p.log.Warn("Workers did not stop within grace period")
	}
	_ = p.acq.Listener.Close()
	return res, nil
}

// release is the crash-path backstop; terminate already did all of this on
// the ordinary path.
func (p *Primary) release() {
	_ = p.acq.Rendezvous.Close()
	_ = os.Remove(p.socketPath)
	_ = p.acq.Listener.Close()
}
