package errors

import "fmt"

var (
	// ErrPortConflict means the listen address is held by a process that is
	// not a cooperating waiter (no rendezvous socket to join). Fatal.
	ErrPortConflict = fmt.Errorf("listen address held by a foreign process")
	// ErrSendFailed means the outbound transport rejected a message.
	// Already-delivered messages stay sent.
	ErrSendFailed = fmt.Errorf("outbound send failed")
	// ErrSocketInUse means the rendezvous socket is alive even though the
	// listen port was free. Normally impossible outside a crashed half-state.
	ErrSocketInUse = fmt.Errorf("rendezvous socket already in use")
	// ErrElectionExhausted means a subscriber lost the promotion race more
	// times than the configured retry bound allows.
	ErrElectionExhausted = fmt.Errorf("election retries exhausted")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)
