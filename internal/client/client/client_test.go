package client

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pkowalczyk/filekeeper/internal/proto"
)

// fakeServer accepts a single connection and answers every NUL-delimited
// message with the scripted lines, in order.
func fakeServer(t *testing.T, replies ...[]string) string {
	t.Helper()

	listen, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listen.Close() })

	go func() {
		conn, err := listen.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		for _, batch := range replies {
			if _, err := reader.ReadString('\x00'); err != nil {
				return
			}
			for _, line := range batch {
				if _, err := conn.Write([]byte(line + "\n")); err != nil {
					return
				}
			}
		}
		// Hold the connection open until the client hangs up.
		for {
			if _, err := reader.ReadString('\x00'); err != nil {
				return
			}
		}
	}()

	return listen.Addr().String()
}

func TestDo_ReturnsResponse(t *testing.T) {
	addr := fakeServer(t, []string{`{"type":"RESPONSE","command":"LS","code":200,"data":"ok"}`})

	c, err := Dial(addr, time.Second, nil)
	require.NoError(t, err)
	defer c.Close()

	m, err := c.Do(context.Background(), map[string]any{"type": "REQUEST", "command": "LS", "path": "a/public"})
	require.NoError(t, err)
	require.Equal(t, float64(200), m["code"])
	require.Equal(t, "ok", m["data"])
}

func TestDo_Timeout(t *testing.T) {
	addr := fakeServer(t, []string{})

	c, err := Dial(addr, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(context.Background(), map[string]any{"type": "REQUEST", "command": "LS"})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestReadLoop_RoutesChunksAroundResponses(t *testing.T) {
	addr := fakeServer(t, []string{
		`{"type":"RESPONSE","command":"DWL","code":200,"path":"a/public/f","offset":0,"data":"aGk=","eof":false}`,
		`{"type":"RESPONSE","command":"DWL","code":200,"path":"a/public/f","offset":2,"data":"IQ==","eof":true}`,
		`{"type":"RESPONSE","command":"DWLABORT","code":200,"data":"a/public/f"}`,
	})

	var mu sync.Mutex
	var chunks []proto.ChunkMessage
	c, err := Dial(addr, time.Second, func(chunk proto.ChunkMessage) {
		mu.Lock()
		chunks = append(chunks, chunk)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer c.Close()

	// One request triggers two pushed chunks and one direct reply; only
	// the reply must come back from Do.
	m, err := c.Do(context.Background(), map[string]any{"type": "REQUEST", "command": "DWLABORT"})
	require.NoError(t, err)
	require.Equal(t, "DWLABORT", m["command"])

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(chunks) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int64(0), chunks[0].Offset)
	require.False(t, chunks[0].EOF)
	require.Equal(t, int64(2), chunks[1].Offset)
	require.True(t, chunks[1].EOF)
}
