package runtime

import (
	"bufio"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gewe-lab/broadcast"
	"gewe-lab/domain"
)

func readEnvelope(t *testing.T, scanner *bufio.Scanner) broadcast.Envelope {
	t.Helper()
	require.True(t, scanner.Scan(), "expected another envelope, got: %v", scanner.Err())
	env, err := broadcast.Unmarshal(scanner.Bytes())
	require.NoError(t, err)
	return env
}

func TestFanout_DeliversInOrder(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default(), 16)

	server, client := net.Pipe()
	defer client.Close()
	f.Admit(server)

	go func() {
		for _, content := range []string{"first", "second", "third"} {
			f.Broadcast(broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: content}))
		}
	}()

	scanner := bufio.NewScanner(client)
	req.Equal("first", readEnvelope(t, scanner).Data.Content)
	req.Equal("second", readEnvelope(t, scanner).Data.Content)
	req.Equal("third", readEnvelope(t, scanner).Data.Content)
}

func TestFanout_EverySubscriberSeesEveryMessage(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default(), 16)

	const subscribers = 3
	clients := make([]net.Conn, 0, subscribers)
	for i := 0; i < subscribers; i++ {
		server, client := net.Pipe()
		defer client.Close()
		f.Admit(server)
		clients = append(clients, client)
	}
	req.Equal(subscribers, f.Size())

	go func() {
		f.Broadcast(broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "ping"}))
		f.Shutdown(broadcast.ReasonMatch, time.Second)
	}()

	for _, client := range clients {
		scanner := bufio.NewScanner(client)
		req.Equal("ping", readEnvelope(t, scanner).Data.Content)
		env := readEnvelope(t, scanner)
		req.Equal(broadcast.TypeShutdown, env.Type)
		req.Equal(broadcast.ReasonMatch, env.Reason)
		req.False(scanner.Scan(), "connection should be closed after shutdown")
	}
}

func TestFanout_SlowSubscriberDisconnected(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default(), 1)

	server, client := net.Pipe()
	defer client.Close()
	f.Admit(server)
	req.Equal(1, f.Size())

	// Nobody reads from client, so the queue fills and the writer blocks.
	for i := 0; i < 4; i++ {
		f.Broadcast(broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "flood"}))
	}

	req.Equal(0, f.Size(), "a subscriber a full queue behind is dropped")
}

func TestFanout_LateJoinerGetsNoBackfill(t *testing.T) {
	req := require.New(t)
	f := NewFanout(slog.Default(), 16)

	f.Broadcast(broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "early"}))

	server, client := net.Pipe()
	defer client.Close()
	f.Admit(server)

	go func() {
		f.Broadcast(broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "late"}))
	}()

	scanner := bufio.NewScanner(client)
	req.Equal("late", readEnvelope(t, scanner).Data.Content)
}

func TestFanout_ShutdownWithNoSubscribers(t *testing.T) {
	f := NewFanout(slog.Default(), 16)
	// Must return promptly instead of waiting out the grace period.
	done := make(chan struct{})
	go func() {
		f.Shutdown(broadcast.ReasonTimeout, 5*time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown should not block without subscribers")
	}
}
