package runtime

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"gewe-lab/broadcast"
)

const writeTimeout = 5 * time.Second

// Fanout delivers envelopes to every connected subscriber in arrival order.
//
// Each subscriber gets an ordered queue drained by a dedicated writer
// goroutine, so one slow reader never reorders or stalls the others. A
// subscriber that falls a full queue behind is disconnected; it then
// re-enters election like any other orphaned subscriber.
//
// Fanout is safe for concurrent use, but ordering is only guaranteed when
// Broadcast is called from a single goroutine (the coordinator loop).
type Fanout struct {
	mu        sync.Mutex
	log       *slog.Logger
	queueSize int
	nextID    int
	pipes     map[int]*pipe
}

func NewFanout(log *slog.Logger, queueSize int) *Fanout {
	return &Fanout{log: log, queueSize: queueSize, pipes: make(map[int]*pipe)}
}

// Admit registers a freshly accepted subscriber connection. The subscriber
// only sees envelopes broadcast after this point; there is no backfill.
func (f *Fanout) Admit(conn net.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := newPipe(f.nextID, conn, f.queueSize)
	f.pipes[p.id] = p
	go p.writeLoop()
	f.log.Info("Subscriber admitted", "id", p.id, "total", len(f.pipes))
}

// Broadcast appends the envelope to every subscriber queue, in one pass.
func (f *Fanout) Broadcast(env broadcast.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.pipes {
		if !p.offer(env) {
			f.log.Warn("Subscriber too slow, dropping connection", "id", id)
			delete(f.pipes, id)
			p.abort()
		}
	}
}

// Shutdown announces the termination reason to every subscriber, then
// flushes and closes all connections within the grace period. No subscriber
// is left blocked on a silently vanished primary.
func (f *Fanout) Shutdown(reason string, grace time.Duration) {
	f.mu.Lock()
	pipes := make([]*pipe, 0, len(f.pipes))
	for _, p := range f.pipes {
		pipes = append(pipes, p)
	}
	f.pipes = make(map[int]*pipe)
	f.mu.Unlock()

	env := broadcast.Shutdown(reason)
	for _, p := range pipes {
		p.offer(env)
		p.closeQueue()
	}

	deadline := time.After(grace)
	for _, p := range pipes {
		select {
		case <-p.done:
		case <-deadline:
			p.abort()
			<-p.done
		}
	}
}

// Size reports the number of connected subscribers.
func (f *Fanout) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pipes)
}

// pipe is one subscriber connection with its ordered outbound queue.
type pipe struct {
	id        int
	conn      net.Conn
	queue     chan broadcast.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func newPipe(id int, conn net.Conn, queueSize int) *pipe {
	return &pipe{
		id:    id,
		conn:  conn,
		queue: make(chan broadcast.Envelope, queueSize),
		done:  make(chan struct{}),
	}
}

func (p *pipe) offer(env broadcast.Envelope) bool {
	select {
	case p.queue <- env:
		return true
	default:
		return false
	}
}

func (p *pipe) closeQueue() {
	p.closeOnce.Do(func() { close(p.queue) })
}

// abort tears the connection down without waiting for the queue to drain.
func (p *pipe) abort() {
	p.closeOnce.Do(func() { close(p.queue) })
	_ = p.conn.Close()
}

func (p *pipe) writeLoop() {
	defer close(p.done)
	defer func() { _ = p.conn.Close() }()

	for env := range p.queue {
		line, err := broadcast.Marshal(env)
		if err != nil {
			continue
		}
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := p.conn.Write(line); err != nil {
			return
		}
	}
}
