package workers

import (
	"context"
	"net"

	"gewe-lab/contract"
)

// Intake runs the inbound delivery source on the acquired endpoint. The
// source owns parsing; replies surface on its channel for the coordinator.
type Intake struct {
	Name     contract.WorkerName
	Source   contract.ReplySource
	Listener net.Listener
}

func (w Intake) WithName(name string) contract.Worker {
	w.Name = contract.WorkerName(name)
	return w
}

func (w Intake) Run(ctx context.Context) error {
	return w.Source.Serve(ctx, w.Listener)
}
