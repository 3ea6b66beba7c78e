package control

import (
	"encoding/json"
	"net"
	"sync"
	"time"
)

// Client is the worker-side half of the control plane: it reports stats
// on a best-effort basis and answers pings. A worker with no socketPath
// configured gets a Client whose methods are all no-ops, so callers never
// need to nil-check.
type Client struct {
	socketPath string
	workerID   int

	mu   sync.Mutex
	conn net.Conn
}

func NewClient(socketPath string, workerID int) *Client {
	return &Client{socketPath: socketPath, workerID: workerID}
}

func (c *Client) ensureConn() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.socketPath == "" {
		return nil
	}
	if c.conn != nil {
		return c.conn
	}
	conn, err := net.DialTimeout("unix", c.socketPath, time.Second)
	if err != nil {
		return nil
	}
	c.conn = conn
	go c.readLoop(conn)
	return conn
}

func (c *Client) readLoop(conn net.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()
	for {
		msg, err := readFrame(conn)
		if err != nil {
			return
		}
		if msg.Type == MsgTypePing {
			var p struct {
				ID string `json:"id"`
			}
			if json.Unmarshal(msg.Payload, &p) == nil {
				pong, _ := json.Marshal(struct {
					ID string `json:"id"`
				}{ID: p.ID})
				_ = writeFrame(conn, Message{Type: MsgTypePong, Payload: pong})
			}
		}
	}
}

// ReportStats sends one stats frame, reconnecting if necessary. Failures
// are swallowed: the control plane is an observability supplement, never
// load-bearing for request serving (spec.md §1's sendfile/liveness scope
// stays the load-bearing path; this is the part built on top of it).
func (c *Client) ReportStats(r StatsReport) {
	conn := c.ensureConn()
	if conn == nil {
		return
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := writeFrame(conn, Message{Type: MsgTypeStatsReport, Payload: payload}); err != nil {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
