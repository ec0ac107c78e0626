// Package tcp runs the plain-TCP protocol endpoint: one goroutine per
// connection, NUL-delimited requests in, newline-terminated responses out.
package tcp

import (
	"context"
	"errors"
	"net"

	"github.com/pkowalczyk/filekeeper/internal/logging"
	"github.com/pkowalczyk/filekeeper/internal/server/dispatch"
	"github.com/pkowalczyk/filekeeper/internal/server/transfer"
)

type Server struct {
	address    string
	dispatcher *dispatch.Dispatcher
	transfers  *transfer.Registry
	logger     logging.Logger
}

func NewServer(address string, d *dispatch.Dispatcher, tr *transfer.Registry, l logging.Logger) *Server {
	return &Server{
		address:    address,
		dispatcher: d,
		transfers:  tr,
		logger:     l.With("module", "tcp_server"),
	}
}

// Run announces the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled. Each
// connection gets its own goroutine; a connection failure never takes the
// accept loop down.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping TCP server...")
		listen.Close()
	}()

	s.logger.Info(ctx, "Starting TCP server", "address", listen.Addr().String())

	for {
		netConn, err := listen.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.serveConn(ctx, netConn)
	}
}

func (s *Server) serveConn(ctx context.Context, netConn net.Conn) {
	remote := netConn.RemoteAddr().String()
	s.logger.Info(ctx, "client connected", "remote", remote)

	c := newConn(netConn)
	defer func() {
		// Orphaned downloads and upload staging die with the connection.
		if err := s.transfers.ReleaseForOwner(ctx, c); err != nil {
			s.logger.Warn(ctx, "transfer cleanup failed", "remote", remote, "error", err)
		}
		netConn.Close()
		s.logger.Info(ctx, "client disconnected", "remote", remote)
	}()

	go func() {
		<-ctx.Done()
		netConn.Close()
	}()

	for {
		raw, err := c.readMessage()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				s.logger.Debug(ctx, "read ended", "remote", remote, "error", err)
			}
			return
		}

		resp := s.dispatcher.Handle(ctx, raw, c)
		if resp == "" {
			continue
		}
		if err := c.write(resp); err != nil {
			s.logger.Warn(ctx, "write failed", "remote", remote, "error", err)
			return
		}
	}
}
