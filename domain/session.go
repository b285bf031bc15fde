package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Session is the immutable configuration of one wait-reply invocation.
// Built once from CLI input, never mutated afterwards.
type Session struct {
	ToWxid     string `validate:"required"`
	Listen     string `validate:"required,hostname_port"`
	GroupWxid  string
	FilterWxid string
	Match      string
	// Timeout bounds the whole wait phase. Zero means wait forever.
	Timeout  time.Duration
	Output   OutputFormat
	Messages []OutboundMessage
}

// NewSession validates the raw inputs and applies defaults: FilterWxid
// falls back to ToWxid, Output falls back to text.
func NewSession(s Session) (Session, error) {
	if s.FilterWxid == "" {
		s.FilterWxid = s.ToWxid
	}
	if s.Output == "" {
		s.Output = OutputText
	}
	if err := validate.Struct(s); err != nil {
		return Session{}, fmt.Errorf("invalid session: %w", err)
	}
	if _, err := ListenPort(s.Listen); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Target is the identity outbound messages are addressed to: the chatroom
// when the session is a group session, the peer otherwise.
func (s Session) Target() string {
	if s.GroupWxid != "" {
		return s.GroupWxid
	}
	return s.ToWxid
}

// SocketPath derives the rendezvous socket location from the listen port.
func (s Session) SocketPath() string {
	port, _ := ListenPort(s.Listen)
	return SocketPath(port)
}
