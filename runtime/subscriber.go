package runtime

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"gewe-lab/broadcast"
	"gewe-lab/domain"
)

// ListenEnd says why a listening stint ended.
type ListenEnd int

const (
	// ListenMatched means the local match engine fired.
	ListenMatched ListenEnd = iota
	// ListenHandoff means the primary announced shutdown or vanished; the
	// subscriber should re-enter election.
	ListenHandoff
	// ListenCanceled means the session deadline or a shutdown request won.
	ListenCanceled
)

// Subscriber consumes the primary's fan-out. It evaluates the same match
// engine a primary would, over the same reply stream, so its outcome is
// independent of who currently holds the endpoint. The matcher survives a
// later promotion: buffered work done here is never reset.
type Subscriber struct {
	log     *slog.Logger
	matcher *domain.Matcher
}

func NewSubscriber(log *slog.Logger, matcher *domain.Matcher) *Subscriber {
	return &Subscriber{log: log, matcher: matcher}
}

// Listen reads envelopes in order from the rendezvous connection until a
// match, a shutdown notice, a disconnect, or cancellation.
func (s *Subscriber) Listen(ctx context.Context, conn net.Conn) (Result, ListenEnd) {
	defer func() { _ = conn.Close() }()

	// Unblock the read when the session deadline fires.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		env, err := broadcast.Unmarshal(scanner.Bytes())
		if err != nil {
			s.log.Warn("Skipping undecodable envelope", "error", err)
			continue
		}
		switch env.Type {
		case broadcast.TypeMessage:
			if out := s.matcher.Evaluate(*env.Data); out.Matched {
				return Result{Status: StatusMatched, Replies: out.Replies}, ListenMatched
			}
		case broadcast.TypeShutdown:
			s.log.Info("Primary announced shutdown", "reason", env.Reason)
			return Result{}, ListenHandoff
		}
	}

	if ctx.Err() != nil {
		status := StatusAborted
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = StatusTimeout
		}
		return Result{Status: status}, ListenCanceled
	}

	s.log.Warn("Primary connection lost", "error", scanner.Err())
	return Result{}, ListenHandoff
}
