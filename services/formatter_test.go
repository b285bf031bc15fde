package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gewe-lab/domain"
	"gewe-lab/errors"
	"gewe-lab/runtime"
)

func matchedResult() runtime.Result {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return runtime.Result{
		Status: runtime.StatusMatched,
		Replies: []domain.ReceivedReply{
			{FromWxid: "U1", Content: "hold on", Timestamp: at},
			{FromWxid: "U1", GroupWxid: "12345@chatroom", Content: "OK", Timestamp: at.Add(time.Second)},
		},
	}
}

func TestRender_TextMode(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	req.NoError(Render(&buf, domain.OutputText, matchedResult()))
	req.Equal("hold on\nOK\n", buf.String())
}

func TestRender_JSONMode(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	req.NoError(Render(&buf, domain.OutputJSON, matchedResult()))

	var records []ReplyRecord
	req.NoError(json.Unmarshal(buf.Bytes(), &records))
	req.Len(records, 2)
	req.Equal("U1", records[0].FromWxid)
	req.Equal("12345@chatroom", records[1].GroupWxid)
	req.Equal("OK", records[1].Content)
}

func TestRender_TimeoutEmitsNothing(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	res := runtime.Result{Status: runtime.StatusTimeout}
	req.NoError(Render(&buf, domain.OutputText, res))
	req.Zero(buf.Len())

	req.NoError(Render(&buf, domain.OutputJSON, res))
	req.Zero(buf.Len())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		res  runtime.Result
		err  error
		code int
	}{
		{"matched", runtime.Result{Status: runtime.StatusMatched}, nil, ExitMatched},
		{"timeout", runtime.Result{Status: runtime.StatusTimeout}, nil, ExitTimeout},
		{"aborted", runtime.Result{Status: runtime.StatusAborted}, nil, ExitTimeout},
		{"send failure", runtime.Result{}, fmt.Errorf("%w: boom", errors.ErrSendFailed), ExitSendFailed},
		{"port conflict", runtime.Result{}, fmt.Errorf("%w: :4399", errors.ErrPortConflict), ExitAcquireFailed},
		{"election exhausted", runtime.Result{}, fmt.Errorf("%w: 10 attempts", errors.ErrElectionExhausted), ExitAcquireFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.code, ExitCode(tc.res, tc.err))
		})
	}
}
