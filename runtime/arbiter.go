// Package runtime coordinates concurrent wait-reply invocations that share
// one listen address: role arbitration, the primary's fan-out, the
// subscriber loop and failover.
package runtime

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"gewe-lab/errors"
)

// Role held by a waiter process for one rendezvous resource.
type Role int

const (
	RolePrimary Role = iota
	RoleSubscriber
)

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}
	return "subscriber"
}

// Acquisition is the arbiter's verdict along with the resources that come
// with the role: both listeners for a primary, the open rendezvous
// connection for a subscriber.
type Acquisition struct {
	Role       Role
	Listener   net.Listener // inbound TCP endpoint, primary only
	Rendezvous net.Listener // unix broadcast listener, primary only
	Conn       net.Conn     // connection to the incumbent primary, subscriber only
}

// Arbiter decides whether this process becomes primary or subscriber.
// The TCP bind on the inbound endpoint doubles as the advisory lock: the
// endpoint itself is the scarce resource being protected, so no separate
// lock primitive exists.
type Arbiter struct {
	log        *slog.Logger
	listen     string
	socketPath string
}

func NewArbiter(log *slog.Logger, listen, socketPath string) *Arbiter {
	return &Arbiter{log: log, listen: listen, socketPath: socketPath}
}

// Acquire resolves the role exactly once. On a busy endpoint it joins the
// incumbent primary through the rendezvous socket; a socket file that no
// longer accepts connections is leftover state from a crashed primary, so
// it is cleared and the bind retried once. A busy endpoint with no
// cooperating socket is a foreign process: fatal ErrPortConflict.
func (a *Arbiter) Acquire() (Acquisition, error) {
	listener, bindErr := net.Listen("tcp", a.listen)
	if bindErr == nil {
		return a.becomePrimary(listener)
	}

	conn, dialErr := net.DialTimeout("unix", a.socketPath, time.Second)
	if dialErr == nil {
		a.log.Info("Joined incumbent primary", "socket", a.socketPath)
		return Acquisition{Role: RoleSubscriber, Conn: conn}, nil
	}

	if _, statErr := os.Stat(a.socketPath); statErr == nil {
		a.log.Warn("Clearing stale rendezvous socket", "socket", a.socketPath)
		_ = os.Remove(a.socketPath)
		if listener, bindErr = net.Listen("tcp", a.listen); bindErr == nil {
			return a.becomePrimary(listener)
		}
	}

	return Acquisition{}, fmt.Errorf("%w: %s: %v", errors.ErrPortConflict, a.listen, bindErr)
}

func (a *Arbiter) becomePrimary(listener net.Listener) (Acquisition, error) {
	if err := a.clearStaleSocket(); err != nil {
		_ = listener.Close()
		return Acquisition{}, err
	}
	rendezvous, err := net.Listen("unix", a.socketPath)
	if err != nil {
		_ = listener.Close()
		return Acquisition{}, fmt.Errorf("create rendezvous socket %s: %w", a.socketPath, err)
	}
	a.log.Info("Acquired primary role", "listen", a.listen, "socket", a.socketPath)
	return Acquisition{Role: RolePrimary, Listener: listener, Rendezvous: rendezvous}, nil
}

// clearStaleSocket removes a socket file left behind by a crashed primary.
// A socket that still accepts connections while the endpoint was free is a
// half-dead peer we refuse to trample.
func (a *Arbiter) clearStaleSocket() error {
	if _, err := os.Stat(a.socketPath); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", a.socketPath, time.Second)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %s", errors.ErrSocketInUse, a.socketPath)
	}
	if err := os.Remove(a.socketPath); err != nil {
		return fmt.Errorf("remove stale socket %s: %w", a.socketPath, err)
	}
	a.log.Debug("Removed stale rendezvous socket", "socket", a.socketPath)
	return nil
}
