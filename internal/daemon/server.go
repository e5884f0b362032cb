package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

// ErrAlreadyRunning is returned when another process serves the socket.
var ErrAlreadyRunning = errors.New("dictate is already running")

// Handler answers commands and supplies the event stream for subscribers.
type Handler interface {
	Handle(ctx context.Context, cmd Command) Response
	Subscribe() (<-chan Event, func())
}

// Server listens on the trigger socket.
type Server struct {
	path    string
	handler Handler
	log     *logger.Logger

	wg sync.WaitGroup
}

// NewServer returns a server for the socket at path.
func NewServer(path string, handler Handler, log *logger.Logger) *Server {
	return &Server{path: path, handler: handler, log: log.Named("socket")}
}

// Serve accepts connections until ctx is done, then waits for open
// connections to finish and removes the socket file.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := s.removeStale(); err != nil {
		return err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	defer os.Remove(s.path)
	if err := os.Chmod(s.path, 0o600); err != nil {
		s.log.Warn("chmod socket failed", logger.Error(err))
	}
	s.log.Info("listening", logger.String("path", s.path))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.wg.Wait()
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// removeStale deletes a socket file left behind by a crashed process.
func (s *Server) removeStale() error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if conn, err := net.DialTimeout("unix", s.path, 500*time.Millisecond); err == nil {
		conn.Close()
		return ErrAlreadyRunning
	}
	s.log.Info("removing stale socket", logger.String("path", s.path))
	return os.Remove(s.path)
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	scanner := newScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			s.log.Debug("bad command line", logger.Error(err))
			if err := enc.Encode(Response{Error: "invalid command"}); err != nil {
				return
			}
			continue
		}
		s.log.Debug("command", logger.String("cmd", cmd.Cmd))

		if cmd.Cmd == CmdSubscribe {
			if err := enc.Encode(Response{OK: true}); err != nil {
				return
			}
			s.stream(ctx, conn, enc)
			return
		}
		if err := enc.Encode(s.handler.Handle(ctx, cmd)); err != nil {
			return
		}
	}
}

// stream forwards events until the client disconnects or ctx is done.
func (s *Server) stream(ctx context.Context, conn net.Conn, enc *json.Encoder) {
	events, unsubscribe := s.handler.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		// Subscribers send nothing further; any read result means the
		// client is gone.
		buf := make([]byte, 64)
		for {
			if _, err := conn.Read(buf); err != nil {
				close(closed)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
		}
	}
}
