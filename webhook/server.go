// Package webhook receives Gewe platform callbacks over HTTP and turns
// text-message events into domain replies for the coordinator.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gewe-lab/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body when the bot
// has a webhook secret configured.
const SignatureHeader = "X-GEWE-SIGNATURE"

const shutdownTimeout = 2 * time.Second

// Options configure one server instance.
type Options struct {
	// QueueSize bounds the parsed-reply queue; full means drop-with-warning,
	// the platform retries on its side.
	QueueSize int
	// Secret enables signature verification when non-empty.
	Secret string
	// EmitRaw additionally publishes every decoded callback on RawEvents,
	// used by the standalone serve-webhook command.
	EmitRaw bool
}

// Event is one decoded platform callback, before any filtering.
type Event struct {
	AppID     string          `json:"Appid"`
	TypeName  string          `json:"TypeName"`
	Data      json.RawMessage `json:"Data"`
	Timestamp time.Time       `json:"Timestamp"`
}

// Server is the inbound delivery source. It implements contract.ReplySource.
type Server struct {
	log     *slog.Logger
	opts    Options
	engine  *gin.Engine
	replies chan domain.ReceivedReply
	raw     chan Event
	now     func() time.Time
}

func NewServer(log *slog.Logger, opts Options) *Server {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		log:     log,
		opts:    opts,
		engine:  engine,
		replies: make(chan domain.ReceivedReply, opts.QueueSize),
		now:     time.Now,
	}
	if opts.EmitRaw {
		s.raw = make(chan Event, opts.QueueSize)
	}

	engine.POST("/webhook", s.handleCallback)
	return s
}

// Replies streams parsed inbound text replies, in arrival order.
func (s *Server) Replies() <-chan domain.ReceivedReply {
	return s.replies
}

// RawEvents streams every decoded callback; nil unless EmitRaw is set.
func (s *Server) RawEvents() <-chan Event {
	return s.raw
}

// Serve runs the HTTP server on the already-bound listener until the
// context is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{Handler: s.engine}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// callbackBody mirrors the platform push: an app id, a type tag and a
// type-dependent payload.
type callbackBody struct {
	AppID    string          `json:"Appid"`
	TypeName string          `json:"TypeName"`
	Data     json.RawMessage `json:"Data"`
}

// stringField is the platform's {"string": "..."} wrapper.
type stringField struct {
	String string `json:"string"`
}

type addMsgData struct {
	MsgType      int         `json:"MsgType"`
	FromUserName stringField `json:"FromUserName"`
	Content      stringField `json:"Content"`
	NewMsgID     int64       `json:"NewMsgId"`
}

func (s *Server) handleCallback(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if s.opts.Secret != "" && !s.verifySignature(c.GetHeader(SignatureHeader), body) {
		s.log.Warn("Webhook signature verification failed")
		c.Status(http.StatusUnauthorized)
		return
	}

	// Connectivity probe sent when the callback URL is configured.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		s.log.Warn("Invalid webhook body", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}
	if _, ok := probe["testMsg"]; ok {
		s.log.Info("Webhook ping acknowledged")
		c.Status(http.StatusOK)
		return
	}

	var cb callbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.publishRaw(cb)

	reply, ok := s.textReply(cb)
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	select {
	case s.replies <- reply:
	default:
		s.log.Warn("Reply queue full, dropping event", "from", reply.FromWxid, "group", reply.GroupWxid)
	}
	c.Status(http.StatusOK)
}

// textReply keeps only AddMsg text events and normalizes identities:
// chatroom senders stay inside the raw content (the match engine extracts
// them); private senders land in FromWxid directly.
func (s *Server) textReply(cb callbackBody) (domain.ReceivedReply, bool) {
	if cb.TypeName != "AddMsg" {
		return domain.ReceivedReply{}, false
	}
	var msg addMsgData
	if err := json.Unmarshal(cb.Data, &msg); err != nil {
		s.log.Debug("Undecodable AddMsg payload", "error", err)
		return domain.ReceivedReply{}, false
	}
	if msg.MsgType != 1 {
		return domain.ReceivedReply{}, false
	}

	reply := domain.ReceivedReply{
		Content:   msg.Content.String,
		Timestamp: s.now().UTC(),
	}
	if strings.HasSuffix(msg.FromUserName.String, "@chatroom") {
		reply.GroupWxid = msg.FromUserName.String
	} else {
		reply.FromWxid = msg.FromUserName.String
	}
	return reply, true
}

func (s *Server) publishRaw(cb callbackBody) {
	if s.raw == nil {
		return
	}
	evt := Event{AppID: cb.AppID, TypeName: cb.TypeName, Data: cb.Data, Timestamp: s.now().UTC()}
	select {
	case s.raw <- evt:
	default:
		s.log.Warn("Raw event queue full, dropping event")
	}
}

func (s *Server) verifySignature(got string, body []byte) bool {
	if got == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.opts.Secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}
