package workers

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"gewe-lab/contract"
)

// Acceptor admits subscriber connections into the primary's fan-out set.
// Late joiners only receive envelopes broadcast after admission.
type Acceptor struct {
	Log      *slog.Logger
	Name     contract.WorkerName
	Listener net.Listener
	Admit    func(net.Conn)
}

func (w Acceptor) WithName(name string) contract.Worker {
	w.Name = contract.WorkerName(name)
	return w
}

func (w Acceptor) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = w.Listener.Close()
	}()

	for {
		conn, err := w.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			w.Log.Warn("Accepting subscriber failed", "error", err)
			continue
		}
		w.Admit(conn)
	}
}
