package control

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	cache "github.com/go-pkgz/expirable-cache/v3"
)

const maxMessageSize = 1 << 20 // 1MB; control messages are small stats/ping frames

// Bridge is the arbiter-side control socket: workers dial in, report
// stats periodically, and answer pings. Grounded on ipc.IpcBridge's
// length-prefixed JSON framing and worker registry, narrowed to this
// domain's stats/ping pair.
type Bridge struct {
	socketPath string
	breaker    *CircuitBreaker

	mu      sync.RWMutex
	ln      net.Listener
	workers map[int]*workerConn
	latest  map[int]StatsReport

	pending cache.Cache[string, chan Message]

	logger *log.Logger
}

type workerConn struct {
	id     int
	conn   net.Conn
	sendCh chan Message
}

// NewBridge constructs a Bridge. socketPath is removed and re-created on
// Listen; pass "" to disable the control plane entirely (Listen then
// becomes a no-op, same as the admin HTTP surface's AdminAddr=="" path).
func NewBridge(socketPath string, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(os.Stderr, "[control] ", log.LstdFlags)
	}
	return &Bridge{
		socketPath: socketPath,
		breaker:    NewCircuitBreaker(true, 10, 30*time.Second),
		workers:    make(map[int]*workerConn),
		latest:     make(map[int]StatsReport),
		pending:    cache.NewCache[string, chan Message]().WithTTL(5 * time.Second),
		logger:     logger,
	}
}

// Listen binds the control socket and begins accepting worker
// connections. A no-op if socketPath is empty.
func (b *Bridge) Listen() error {
	if b.socketPath == "" {
		return nil
	}
	_ = os.Remove(b.socketPath)
	ln, err := net.Listen("unix", b.socketPath)
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", b.socketPath, err)
	}
	b.mu.Lock()
	b.ln = ln
	b.mu.Unlock()
	b.logger.Printf("control plane listening on %s", b.socketPath)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go b.handleConn(conn)
		}
	}()
	return nil
}

// Close stops accepting new worker connections and removes the socket
// file. A no-op if Listen was never called or the control plane is
// disabled.
func (b *Bridge) Close() {
	b.mu.Lock()
	ln := b.ln
	b.ln = nil
	b.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	if b.socketPath != "" {
		_ = os.Remove(b.socketPath)
	}
}

func (b *Bridge) handleConn(conn net.Conn) {
	sendCh := make(chan Message, 16)
	wc := &workerConn{conn: conn, sendCh: sendCh}

	go func() {
		for msg := range sendCh {
			if err := writeFrame(conn, msg); err != nil {
				b.logger.Printf("control: write: %v", err)
				conn.Close()
				return
			}
		}
	}()

	defer func() {
		close(sendCh)
		if wc.id != 0 {
			b.mu.Lock()
			delete(b.workers, wc.id)
			b.mu.Unlock()
		}
	}()

	for {
		msg, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				b.logger.Printf("control: read: %v", err)
			}
			return
		}

		switch msg.Type {
		case MsgTypeStatsReport:
			var report StatsReport
			if err := json.Unmarshal(msg.Payload, &report); err != nil {
				continue
			}
			if wc.id == 0 {
				wc.id = report.WorkerID
				b.mu.Lock()
				b.workers[wc.id] = wc
				b.mu.Unlock()
			}
			b.mu.Lock()
			b.latest[report.WorkerID] = report
			b.mu.Unlock()
		case MsgTypePong:
			var p struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				continue
			}
			if ch, ok := b.pending.Get(p.ID); ok {
				ch <- msg
			}
		}
	}
}

// Snapshot returns the most recent stats report from every worker that
// has ever connected, for the admin /status and /metrics endpoints.
func (b *Bridge) Snapshot() map[int]StatsReport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int]StatsReport, len(b.latest))
	for k, v := range b.latest {
		out[k] = v
	}
	return out
}

// Ping asks workerID (or every connected worker if 0) to answer, and waits
// up to timeout for a reply. It uses the circuit breaker so a hung control
// plane does not let admin callers pile up pending goroutines.
func (b *Bridge) Ping(workerID int, timeout time.Duration) (bool, error) {
	if !b.breaker.Check() {
		return false, fmt.Errorf("control: circuit breaker open")
	}

	id := uuid.NewString()
	ch := make(chan Message, 1)
	b.pending.Set(id, ch, timeout)
	defer b.pending.Invalidate(id)

	payload, _ := json.Marshal(struct {
		ID       string `json:"id"`
		WorkerID int    `json:"worker_id,omitempty"`
	}{ID: id, WorkerID: workerID})

	b.mu.RLock()
	targets := make([]*workerConn, 0, len(b.workers))
	if workerID == 0 {
		for _, wc := range b.workers {
			targets = append(targets, wc)
		}
	} else if wc, ok := b.workers[workerID]; ok {
		targets = append(targets, wc)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.breaker.RecordFailure()
		return false, fmt.Errorf("control: no matching worker connected")
	}
	for _, wc := range targets {
		select {
		case wc.sendCh <- Message{Type: MsgTypePing, Payload: payload}:
		default:
		}
	}

	select {
	case <-ch:
		b.breaker.RecordSuccess()
		return true, nil
	case <-time.After(timeout):
		b.breaker.RecordFailure()
		return false, fmt.Errorf("control: ping timed out")
	}
}

func writeFrame(w io.Writer, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func readFrame(r io.Reader) (Message, error) {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return Message{}, err
	}
	if size > maxMessageSize {
		return Message{}, fmt.Errorf("control: frame too large (%d bytes)", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(buf, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
