// Package services holds the two thin orchestration pieces around the
// coordinator: outbound dispatch before the wait phase and result
// rendering after it.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"gewe-lab/contract"
	"gewe-lab/domain"
	"gewe-lab/errors"
)

// Dispatcher delivers a session's outbound messages, in order, strictly
// before the wait phase starts. The first failure aborts the command;
// already-delivered messages are not rolled back.
type Dispatcher struct {
	log       *slog.Logger
	transport contract.Transport
}

func NewDispatcher(log *slog.Logger, transport contract.Transport) *Dispatcher {
	return &Dispatcher{log: log, transport: transport}
}

func (d *Dispatcher) Dispatch(ctx context.Context, session domain.Session) error {
	if len(session.Messages) == 0 {
		return nil
	}

	target := session.Target()
	for i, msg := range session.Messages {
		if err := d.transport.Send(ctx, target, msg); err != nil {
			return fmt.Errorf("%w: message %d/%d (%s): %v",
				errors.ErrSendFailed, i+1, len(session.Messages), msg.Kind, err)
		}
		d.log.Debug("Message delivered", "index", i+1, "kind", msg.Kind, "target", target)
	}
	d.log.Info("All messages delivered", "count", len(session.Messages), "target", target)
	return nil
}
