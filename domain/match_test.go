package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func privateSession(filter, match string) Session {
	return Session{
		ToWxid:     filter,
		Listen:     ":4399",
		FilterWxid: filter,
		Match:      match,
	}
}

func groupSession(filter, group, match string) Session {
	s := privateSession(filter, match)
	s.GroupWxid = group
	return s
}

func reply(from, group, content string) ReceivedReply {
	return ReceivedReply{
		FromWxid:  from,
		GroupWxid: group,
		Content:   content,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMatcher_NoPattern_FirstEligibleReplyMatches(t *testing.T) {
	req := require.New(t)

	m, err := NewMatcher(privateSession("U1", ""))
	req.NoError(err)

	out := m.Evaluate(reply("U1", "", "anything at all"))

	req.True(out.Matched)
	req.Len(out.Replies, 1)
	req.Equal("anything at all", out.Replies[0].Content)
}

func TestMatcher_Pattern_BuffersUntilMatch(t *testing.T) {
	req := require.New(t)

	m, err := NewMatcher(privateSession("U1", "^OK$"))
	req.NoError(err)

	// Two eligible replies that do not satisfy the pattern yet
	req.False(m.Evaluate(reply("U1", "", "hold on")).Matched)
	req.False(m.Evaluate(reply("U1", "", "almost")).Matched)
	req.Equal(2, m.Buffered())

	out := m.Evaluate(reply("U1", "", "OK"))

	req.True(out.Matched)
	req.Len(out.Replies, 3)
	req.Equal("hold on", out.Replies[0].Content)
	req.Equal("almost", out.Replies[1].Content)
	req.Equal("OK", out.Replies[2].Content)
}

func TestMatcher_WrongSenderDropped(t *testing.T) {
	req := require.New(t)

	m, err := NewMatcher(privateSession("U1", "OK"))
	req.NoError(err)

	out := m.Evaluate(reply("U2", "", "OK"))

	req.False(out.Matched)
	req.Equal(0, m.Buffered())
}

func TestMatcher_PrivateSessionIgnoresGroupReplies(t *testing.T) {
	req := require.New(t)

	m, err := NewMatcher(privateSession("U1", ""))
	req.NoError(err)

	out := m.Evaluate(reply("", "12345@chatroom", "U1:\nOK"))

	req.False(out.Matched)
	req.Equal(0, m.Buffered())
}

func TestMatcher_GroupSessionExtractsSender(t *testing.T) {
	req := require.New(t)

	m, err := NewMatcher(groupSession("U2", "12345@chatroom", ""))
	req.NoError(err)

	out := m.Evaluate(reply("", "12345@chatroom", "U2:\n收到"))

	req.True(out.Matched)
	req.Len(out.Replies, 1)
	req.Equal("U2", out.Replies[0].FromWxid)
	req.Equal("收到", out.Replies[0].Content)
}

func TestMatcher_GroupSessionWrongRoomDropped(t *testing.T) {
	req := require.New(t)

	m, err := NewMatcher(groupSession("U2", "12345@chatroom", ""))
	req.NoError(err)

	req.False(m.Evaluate(reply("", "99999@chatroom", "U2:\nOK")).Matched)
	req.Equal(0, m.Buffered())
}

func TestMatcher_GroupSessionOtherMemberDropped(t *testing.T) {
	req := require.New(t)

	m, err := NewMatcher(groupSession("U2", "12345@chatroom", ""))
	req.NoError(err)

	req.False(m.Evaluate(reply("", "12345@chatroom", "U3:\nOK")).Matched)
	req.Equal(0, m.Buffered())
}

func TestMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher(privateSession("U1", "("))
	require.Error(t, err)
}

func TestMatcher_PatternMatchesAfterExtraction(t *testing.T) {
	req := require.New(t)

	// The pattern must run against the stripped content, not the raw payload.
	m, err := NewMatcher(groupSession("U2", "12345@chatroom", "^收到$"))
	req.NoError(err)

	out := m.Evaluate(reply("", "12345@chatroom", "U2:\n收到"))
	req.True(out.Matched)
}

func TestExtractGroupSender(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		sender  string
		content string
		ok      bool
	}{
		{"plain newline", "U2:\n收到", "U2", "收到", true},
		{"carriage return", "U2:\r\nOK", "U2", "OK", true},
		{"leading whitespace", "  U2:\nOK", "U2", "OK", true},
		{"multiline content", "U2:\nline1\nline2", "U2", "line1\nline2", true},
		{"no separator", "just text", "", "", false},
		{"colon without newline", "U2: inline", "", "", false},
		{"empty sender", ":\nOK", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			sender, content, ok := ExtractGroupSender(tc.raw)
			req.Equal(tc.ok, ok)
			req.Equal(tc.sender, sender)
			req.Equal(tc.content, content)
		})
	}
}
