package tcp

import (
	"bufio"
	"net"
	"sync"

	"github.com/pkowalczyk/filekeeper/internal/server/transfer"
	"github.com/pkowalczyk/filekeeper/internal/server/users"
)

// conn is one client connection. It owns the socket, the authenticated
// identity and the set of transfers started on it. It satisfies both the
// dispatcher's Session and the transfer registry's Owner.
//
// Inbound messages are NUL-delimited JSON objects; every outbound message,
// whether a direct reply or a pushed chunk, is newline-terminated. Replies
// and pushes share the socket, so all writes go through writeMu.
type conn struct {
	netConn net.Conn
	reader  *bufio.Reader

	writeMu sync.Mutex

	mu        sync.RWMutex
	identity  *users.User
	transfers map[*transfer.Session]struct{}
}

func newConn(c net.Conn) *conn {
	return &conn{
		netConn:   c,
		reader:    bufio.NewReader(c),
		transfers: make(map[*transfer.Session]struct{}),
	}
}

// readMessage returns the next NUL-delimited message without the delimiter.
func (c *conn) readMessage() (string, error) {
	msg, err := c.reader.ReadString('\x00')
	if err != nil {
		return "", err
	}
	return msg[:len(msg)-1], nil
}

func (c *conn) write(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.netConn.Write([]byte(msg + "\n"))
	return err
}

func (c *conn) Identity() *users.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *conn) SetIdentity(u *users.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = u
}

func (c *conn) PushUnsolicited(msg string) error {
	return c.write(msg)
}

func (c *conn) RegisterTransfer(s *transfer.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transfers[s] = struct{}{}
}

func (c *conn) UnregisterTransfer(s *transfer.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.transfers, s)
}
