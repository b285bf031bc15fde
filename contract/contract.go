//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"net"
	"reflect"

	"gewe-lab/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Transport delivers one outbound message to the platform on behalf of the
// dispatcher. Implemented by the Gewe HTTP client; mocked in tests.
type Transport interface {
	Send(ctx context.Context, target string, msg domain.OutboundMessage) error
}

// ReplySource turns the acquired inbound endpoint into a stream of parsed
// replies. Implemented by the webhook server; a primary runs Serve under
// supervision and drains Replies from its coordinator loop.
type ReplySource interface {
	Serve(ctx context.Context, listener net.Listener) error
	Replies() <-chan domain.ReceivedReply
}
