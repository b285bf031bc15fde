// Package broadcast defines the wire contract between one primary waiter
// and its subscribers: one JSON envelope per line over the rendezvous
// socket. Subscribers only ever observe copies; the primary is the sole
// writer.
package broadcast

import (
	"encoding/json"
	"fmt"

	"gewe-lab/domain"
)

const (
	TypeMessage  = "message"
	TypeShutdown = "shutdown"
)

// Shutdown reasons announced by a terminating primary.
const (
	ReasonMatch       = "match"
	ReasonTimeout     = "timeout"
	ReasonPrimaryExit = "primary_exit"
)

// Envelope is the tagged variant written to the rendezvous socket: either
// a forwarded reply or a termination notice.
type Envelope struct {
	Type   string                `json:"type"`
	Data   *domain.ReceivedReply `json:"data,omitempty"`
	Reason string                `json:"reason,omitempty"`
}

func Message(reply domain.ReceivedReply) Envelope {
	return Envelope{Type: TypeMessage, Data: &reply}
}

func Shutdown(reason string) Envelope {
	return Envelope{Type: TypeShutdown, Reason: reason}
}

// Marshal renders the envelope as a single newline-terminated JSON line.
func Marshal(env Envelope) ([]byte, error) {
	line, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return append(line, '\n'), nil
}

// Unmarshal parses one line read from the socket.
func Unmarshal(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Type {
	case TypeMessage:
		if env.Data == nil {
			return Envelope{}, fmt.Errorf("message envelope without data")
		}
	case TypeShutdown:
	default:
		return Envelope{}, fmt.Errorf("unknown envelope type %q", env.Type)
	}
	return env, nil
}
