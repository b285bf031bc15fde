package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Outcome is the result of evaluating one inbound reply.
type Outcome struct {
	Matched bool
	// Replies is the ordered eligible sequence buffered so far, ending with
	// the matching reply. Only populated when Matched is true.
	Replies []ReceivedReply
}

// Matcher decides whether an inbound reply satisfies a session and keeps
// the ordered buffer of eligible-but-unmatched replies.
//
// Eligibility: the sender must equal the session filter, and for group
// sessions the room must equal the session room. Group senders are
// extracted from the leading colon prefix of the raw content. Ineligible
// replies are dropped, never buffered.
//
// A Matcher is not safe for concurrent use; each waiter owns exactly one
// and drives it from a single goroutine. The same Matcher survives a
// subscriber-to-primary promotion so buffered work is never reset.
type Matcher struct {
	filterWxid string
	groupWxid  string
	pattern    *regexp.Regexp
	buffer     []ReceivedReply
}

func NewMatcher(session Session) (*Matcher, error) {
	m := &Matcher{
		filterWxid: session.FilterWxid,
		groupWxid:  session.GroupWxid,
	}
	if session.Match != "" {
		pattern, err := regexp.Compile(session.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern %q: %w", session.Match, err)
		}
		m.pattern = pattern
	}
	return m, nil
}

// Evaluate folds one reply into the matcher state. Without a pattern the
// first eligible reply matches immediately; with one, eligible replies
// accumulate until the pattern fires, and the returned sequence includes
// every buffered reply up to and including the match.
func (m *Matcher) Evaluate(reply ReceivedReply) Outcome {
	accepted, ok := m.eligible(reply)
	if !ok {
		return Outcome{}
	}

	m.buffer = append(m.buffer, accepted)

	if m.pattern != nil && !m.pattern.MatchString(accepted.Content) {
		return Outcome{}
	}

	sequence := make([]ReceivedReply, len(m.buffer))
	copy(sequence, m.buffer)
	return Outcome{Matched: true, Replies: sequence}
}

// Buffered returns how many eligible replies are waiting on a match.
func (m *Matcher) Buffered() int {
	return len(m.buffer)
}

func (m *Matcher) eligible(reply ReceivedReply) (ReceivedReply, bool) {
	if m.groupWxid != "" {
		if reply.GroupWxid != m.groupWxid {
			return ReceivedReply{}, false
		}
		sender, content, ok := ExtractGroupSender(reply.Content)
		if !ok || sender != m.filterWxid {
			return ReceivedReply{}, false
		}
		reply.FromWxid = sender
		reply.Content = content
		return reply, true
	}

	if reply.GroupWxid != "" {
		return ReceivedReply{}, false
	}
	if reply.FromWxid != m.filterWxid {
		return ReceivedReply{}, false
	}
	return reply, true
}

// ExtractGroupSender splits a raw chatroom payload of the form
// "sender_wxid:\nactual content" (the platform also emits ":\r\n").
func ExtractGroupSender(raw string) (sender, content string, ok bool) {
	trimmed := strings.TrimLeft(raw, " \t")
	for _, sep := range []string{":\n", ":\r\n"} {
		if idx := strings.Index(trimmed, sep); idx >= 0 {
			sender = strings.TrimSpace(trimmed[:idx])
			if sender == "" {
				return "", "", false
			}
			return sender, trimmed[idx+len(sep):], true
		}
	}
	return "", "", false
}
