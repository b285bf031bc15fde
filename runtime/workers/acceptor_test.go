package workers

import (
	"context"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcceptor_AdmitsConnections(t *testing.T) {
	req := require.New(t)
	socket := filepath.Join(t.TempDir(), "rv.sock")

	listener, err := net.Listen("unix", socket)
	req.NoError(err)

	admitted := make(chan net.Conn, 2)
	acceptor := Acceptor{
		Log:      slog.Default(),
		Listener: listener,
		Admit:    func(c net.Conn) { admitted <- c },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- acceptor.Run(ctx) }()

	conn, err := net.Dial("unix", socket)
	req.NoError(err)
	defer conn.Close()

	select {
	case c := <-admitted:
		defer c.Close()
	case <-time.After(time.Second):
		t.Fatal("connection was never admitted")
	}

	cancel()
	select {
	case err := <-done:
		// Cancellation closes the listener and ends the loop without error
		req.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("acceptor did not stop on cancellation")
	}
}

func TestAcceptor_ClosedListenerStopsCleanly(t *testing.T) {
	req := require.New(t)
	socket := filepath.Join(t.TempDir(), "rv.sock")

	listener, err := net.Listen("unix", socket)
	req.NoError(err)

	acceptor := Acceptor{Log: slog.Default(), Listener: listener, Admit: func(net.Conn) {}}

	done := make(chan error, 1)
	go func() { done <- acceptor.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	req.NoError(listener.Close())

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("acceptor did not return after the listener closed")
	}
}
