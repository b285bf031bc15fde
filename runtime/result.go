package runtime

import "gewe-lab/domain"

// Status classifies how a wait-reply session ended.
type Status int

const (
	// StatusMatched means an eligible reply satisfied the session.
	StatusMatched Status = iota
	// StatusTimeout means the deadline elapsed with no match.
	StatusTimeout
	// StatusAborted means the process was asked to shut down mid-wait.
	StatusAborted
)

// Result is the terminal state of one session, whichever role(s) the
// process went through on the way there.
type Result struct {
	Status  Status
	Replies []domain.ReceivedReply
}
