// Package client implements the wire client for the FileKeeper protocol:
// NUL-delimited JSON requests out, newline-terminated JSON messages in.
// Direct responses and unsolicited download chunks arrive interleaved on
// the same socket; the read loop sorts them apart.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkowalczyk/filekeeper/internal/proto"
)

var ErrTimeout = errors.New("request timed out")

// ChunkHandler receives unsolicited download chunk messages.
type ChunkHandler func(chunk proto.ChunkMessage)

type Client struct {
	conn    net.Conn
	timeout time.Duration
	onChunk ChunkHandler

	writeMu   sync.Mutex
	responses chan map[string]any
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the server. onChunk may be nil if the caller never
// starts downloads.
func Dial(addr string, timeout time.Duration, onChunk ChunkHandler) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	c := &Client{
		conn:      conn,
		timeout:   timeout,
		onChunk:   onChunk,
		responses: make(chan map[string]any, 16),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer c.closeDone()

	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}

		// A DWL message with an offset is a pushed chunk, not a reply.
		if m["command"] == "DWL" {
			if _, ok := m["offset"]; ok {
				var chunk proto.ChunkMessage
				if err := json.Unmarshal([]byte(line), &chunk); err == nil && c.onChunk != nil {
					c.onChunk(chunk)
				}
				continue
			}
		}

		select {
		case c.responses <- m:
		case <-c.done:
			return
		}
	}
}

func (c *Client) closeDone() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Send writes one request without waiting for a reply. Used for commands
// the server does not answer directly (DWL, UPL).
func (c *Client) Send(req any) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.conn.Write(append(b, 0))
	return err
}

// Do sends a request and waits for the next direct response.
func (c *Client) Do(ctx context.Context, req any) (map[string]any, error) {
	if err := c.Send(req); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case m := <-c.responses:
		return m, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, errors.New("connection closed")
	}
}

func (c *Client) Close() error {
	c.closeDone()
	return c.conn.Close()
}
