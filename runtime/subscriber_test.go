package runtime

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gewe-lab/broadcast"
	"gewe-lab/domain"
)

func testMatcher(t *testing.T, filter, match string) *domain.Matcher {
	t.Helper()
	m, err := domain.NewMatcher(domain.Session{
		ToWxid:     filter,
		FilterWxid: filter,
		Match:      match,
	})
	require.NoError(t, err)
	return m
}

func writeEnvelope(t *testing.T, conn net.Conn, env broadcast.Envelope) {
	t.Helper()
	line, err := broadcast.Marshal(env)
	require.NoError(t, err)
	_, err = conn.Write(line)
	require.NoError(t, err)
}

func TestSubscriber_MatchEndsListening(t *testing.T) {
	req := require.New(t)
	primary, local := net.Pipe()
	sub := NewSubscriber(slog.Default(), testMatcher(t, "U1", "^OK$"))

	go func() {
		writeEnvelope(t, primary, broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "wait"}))
		writeEnvelope(t, primary, broadcast.Message(domain.ReceivedReply{FromWxid: "U2", Content: "OK"}))
		writeEnvelope(t, primary, broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "OK"}))
	}()

	res, end := sub.Listen(context.Background(), local)

	req.Equal(ListenMatched, end)
	req.Equal(StatusMatched, res.Status)
	req.Len(res.Replies, 2, "the ineligible sender must not be buffered")
	req.Equal("wait", res.Replies[0].Content)
	req.Equal("OK", res.Replies[1].Content)
}

func TestSubscriber_ShutdownTriggersHandoff(t *testing.T) {
	req := require.New(t)
	primary, local := net.Pipe()
	sub := NewSubscriber(slog.Default(), testMatcher(t, "U1", "^OK$"))

	go func() {
		writeEnvelope(t, primary, broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "not yet"}))
		writeEnvelope(t, primary, broadcast.Shutdown(broadcast.ReasonPrimaryExit))
	}()

	res, end := sub.Listen(context.Background(), local)

	req.Equal(ListenHandoff, end)
	req.NotEqual(StatusMatched, res.Status)
}

func TestSubscriber_DisconnectTriggersHandoff(t *testing.T) {
	req := require.New(t)
	primary, local := net.Pipe()
	sub := NewSubscriber(slog.Default(), testMatcher(t, "U1", "^OK$"))

	go func() {
		writeEnvelope(t, primary, broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "partial"}))
		_ = primary.Close()
	}()

	_, end := sub.Listen(context.Background(), local)

	req.Equal(ListenHandoff, end)
}

func TestSubscriber_DeadlineEndsWithTimeout(t *testing.T) {
	req := require.New(t)
	primary, local := net.Pipe()
	defer primary.Close()
	sub := NewSubscriber(slog.Default(), testMatcher(t, "U1", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, end := sub.Listen(ctx, local)

	req.Equal(ListenCanceled, end)
	req.Equal(StatusTimeout, res.Status)
}

func TestSubscriber_StatePreservedAcrossHandoffs(t *testing.T) {
	req := require.New(t)
	matcher := testMatcher(t, "U1", "^done$")
	sub := NewSubscriber(slog.Default(), matcher)

	// First primary delivers part of the stream, then dies.
	primary, local := net.Pipe()
	go func() {
		writeEnvelope(t, primary, broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "step 1"}))
		_ = primary.Close()
	}()
	_, end := sub.Listen(context.Background(), local)
	req.Equal(ListenHandoff, end)
	req.Equal(1, matcher.Buffered())

	// The next primary continues the stream; earlier work is kept.
	primary2, local2 := net.Pipe()
	go func() {
		writeEnvelope(t, primary2, broadcast.Message(domain.ReceivedReply{FromWxid: "U1", Content: "done"}))
	}()
	res, end := sub.Listen(context.Background(), local2)

	req.Equal(ListenMatched, end)
	req.Len(res.Replies, 2)
	req.Equal("step 1", res.Replies[0].Content)
	req.Equal("done", res.Replies[1].Content)
}
