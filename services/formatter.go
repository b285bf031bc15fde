package services

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"

	"gewe-lab/domain"
	"gewe-lab/errors"
	"gewe-lab/runtime"
)

// Process exit codes of the wait-reply command.
const (
	ExitMatched       = 0
	ExitTimeout       = 1
	ExitSendFailed    = 2
	ExitAcquireFailed = 3
)

// ReplyRecord is the structured-output shape of one matched reply.
type ReplyRecord struct {
	FromWxid  string    `json:"from_wxid"`
	GroupWxid string    `json:"group_wxid,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Render writes the matched sequence to w: one content line per reply in
// text mode, an indented JSON array of records in json mode. A timed-out
// session renders nothing; no match was confirmed.
func Render(w io.Writer, format domain.OutputFormat, res runtime.Result) error {
	if res.Status != runtime.StatusMatched {
		return nil
	}

	switch format {
	case domain.OutputJSON:
		records := lo.Map(res.Replies, func(r domain.ReceivedReply, _ int) ReplyRecord {
			return ReplyRecord{
				FromWxid:  r.FromWxid,
				GroupWxid: r.GroupWxid,
				Content:   r.Content,
				Timestamp: r.Timestamp,
			}
		})
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	default:
		for _, reply := range res.Replies {
			if _, err := fmt.Fprintln(w, reply.Content); err != nil {
				return err
			}
		}
		return nil
	}
}

// ExitCode maps a session outcome (or fatal error) to the process exit code.
func ExitCode(res runtime.Result, err error) int {
	if err != nil {
		if stderrors.Is(err, errors.ErrSendFailed) {
			return ExitSendFailed
		}
		return ExitAcquireFailed
	}
	if res.Status == runtime.StatusMatched {
		return ExitMatched
	}
	return ExitTimeout
}
