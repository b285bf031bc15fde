// Package domain holds the wait-reply core model: the per-invocation
// session, inbound replies, outbound messages and the match engine.
// It contains no I/O; transport and coordination live in runtime.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReceivedReply is one inbound text message pushed by the platform.
//
// For chatroom replies the webhook layer sets GroupWxid to the room id and
// leaves Content raw, sender prefix included. FromWxid stays empty until the
// match engine extracts the real sender. Private replies carry FromWxid
// directly and no GroupWxid.
type ReceivedReply struct {
	FromWxid  string    `json:"from_wxid"`
	GroupWxid string    `json:"group_wxid,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// OutputFormat selects how a matched sequence is rendered on stdout.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q, expected text or json", s)
	}
}

// ListenPort extracts the port from a host:port listen address.
func ListenPort(listen string) (int, error) {
	idx := strings.LastIndex(listen, ":")
	if idx < 0 {
		return 0, fmt.Errorf("listen address %q has no port", listen)
	}
	port, err := strconv.Atoi(listen[idx+1:])
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("listen address %q has an invalid port", listen)
	}
	return port, nil
}

// SocketPath is the well-known rendezvous socket location for a listen port.
// Every waiter sharing the port derives the same path.
func SocketPath(port int) string {
	return fmt.Sprintf("/tmp/gewe-wait-reply-%d.sock", port)
}
