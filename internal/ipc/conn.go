package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
)

// Conn frames Messages as JSON lines over a stream connection. Sends are
// serialized; Recv must be driven from a single goroutine.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader

	sendMu sync.Mutex
}

// NewConn wraps an established connection.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes one message followed by a newline.
func (c *Conn) Send(msg Message) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := json.NewEncoder(c.conn).Encode(msg); err != nil {
		return fmt.Errorf("send %s message: %w", msg.Kind, err)
	}
	return nil
}

// Recv reads the next message. It returns the underlying read error
// unchanged so callers can distinguish EOF (peer gone) from decode failures.
func (c *Conn) Recv() (Message, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return Message{}, err
	}

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
