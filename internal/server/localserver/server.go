package localserver

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// connReadTimeout bounds how long an idle local connection may sit
// between commands before the server closes it.
const connReadTimeout = 30 * time.Second

// Server represents the local management server.
type Server struct {
	listener net.Listener
	path     string
	handler  *Handler
	logger   *slog.Logger
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new local server bound to the given socket path.
func New(socketPath string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:    socketPath,
		handler: handler,
		logger:  logger,
	}
}

// ListenAndServe starts the local server.
//
// A stale socket file left behind by an unclean shutdown is removed
// before binding.
//
// @req RQ-0303
func (s *Server) ListenAndServe() error {
	if err := removeStaleSocket(s.path); err != nil {
		return err
	}

	var err error
	s.listener, err = net.Listen("unix", s.path)
	if err != nil {
		return err
	}

	s.running.Store(true)
	s.logger.Info("Local management server listening", "path", s.path)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Shutdown gracefully shuts down the server.
//
// It stops accepting new connections, then waits for active
// connections to finish or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		_ = os.Remove(s.path)
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Path returns the socket path the server is bound to.
func (s *Server) Path() string {
	return s.path
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(connReadTimeout))
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if err := s.handler.Execute(conn, cmd, args); err != nil {
			s.logger.Warn("Local command failed", "command", cmd, "error", err)
			return
		}
		if cmd == "quit" {
			return
		}
	}
}

// removeStaleSocket removes a leftover socket file if nothing is
// listening on it anymore.
func removeStaleSocket(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return errors.New("path exists and is not a socket: " + path)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err == nil {
		conn.Close()
		return errors.New("socket already in use: " + path)
	}
	return os.Remove(path)
}
