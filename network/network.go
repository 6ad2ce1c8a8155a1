// Package network is the narrow adapter surface the replica engine uses
// to ship operations to a peer and accept them inbound. The wire format
// is one JSON-encoded woot.Operation per TCP connection: no framing
// header, no batching, no acknowledgement — the connection is closed by
// the sender after the write, and the receiver reads until EOF and
// decodes exactly one Operation.
package network

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/woot-crdt/wootedit/woot"
)

// ErrTransport is returned by Sender.Send when the outbound connection
// could not be established after all retries.
var ErrTransport = fmt.Errorf("network: transport error")

// Integrator is the subset of *woot.Site the inbound actor needs.
// Narrowed to an interface so the inbound loop can be tested without a
// real Site.
type Integrator interface {
	Execute(op woot.Operation) (woot.Operation, error)
}

// Inbound listens on addr and feeds every received Operation to engine,
// one per accepted connection. It runs until ctx is canceled or the
// listener is closed. Each accepted connection is handled on its own
// goroutine: it integrates under the engine's own lock and signals
// OnApplied after every successful integration so the caller can repaint.
type Inbound struct {
	Engine    Integrator
	Log       *slog.Logger
	OnApplied func(woot.Operation)
}

// Listen binds the TCP address addr as given. Splitting bind from accept lets a
// caller observe a failure to bind (port in use, permission denied)
// before committing to anything else.
func (in *Inbound) Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("network: listen %s: %w", addr, err)
	}
	return ln, nil
}

// Serve binds the TCP address addr and accepts connections until ctx is
// done. It returns once the listener is closed.
func (in *Inbound) Serve(ctx context.Context, addr string) error {
	ln, err := in.Listen(ctx, addr)
	if err != nil {
		return err
	}
	return in.ServeListener(ctx, ln)
}

// ServeListener runs the accept loop over an already-bound listener, for
// callers that bind eagerly via Listen and want to observe a bind error
// before handing the listener off to be served.
func (in *Inbound) ServeListener(ctx context.Context, ln net.Listener) error {
	logger := in.logger()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Warn("accept failed", "err", err)
				return err
			}
		}
		go in.handle(conn)
	}
}

func (in *Inbound) handle(conn net.Conn) {
	defer conn.Close()
	logger := in.logger()

	dec := json.NewDecoder(bufio.NewReader(conn))
	var op woot.Operation
	if err := dec.Decode(&op); err != nil {
		if err != io.EOF {
			logger.Warn("malformed operation on wire", "remote", conn.RemoteAddr(), "err", err)
		}
		return
	}

	applied, err := in.Engine.Execute(op)
	if err != nil {
		// A bad or not-yet-causally-ready operation never stops the
		// replica: log and continue.
		logger.Warn("integration failed", "op", op.Op, "id", op.C.ID, "err", err)
		return
	}

	logger.Info("integrated remote operation", "op", applied.Op, "id", applied.C.ID)
	if in.OnApplied != nil {
		in.OnApplied(applied)
	}
}

func (in *Inbound) logger() *slog.Logger {
	if in.Log == nil {
		return slog.Default()
	}
	return in.Log
}

// Sender dials peerAddr and writes a single JSON-encoded Operation, per
// connection. Delay is an artificial pre-send pause, useful for manually
// reproducing concurrent-edit races. Dial is retried at one-second
// intervals up to ten attempts.
type Sender struct {
	PeerAddr string
	Delay    time.Duration
	Log      *slog.Logger
}

const (
	dialRetryAttempts = 10
	dialRetryInterval = time.Second
)

// Send dials the peer, waits Delay, writes op as JSON, and closes the
// connection. It returns ErrTransport if every dial attempt failed.
func (s *Sender) Send(op woot.Operation) error {
	logger := s.logger()

	conn, err := dialWithRetry(s.PeerAddr)
	if err != nil {
		logger.Warn("dropping operation: transport exhausted", "peer", s.PeerAddr, "id", op.C.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer conn.Close()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	if err := json.NewEncoder(conn).Encode(op); err != nil {
		return fmt.Errorf("network: write operation: %w", err)
	}
	return nil
}

func (s *Sender) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func dialWithRetry(addr string) (net.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < dialRetryAttempts; attempt++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(dialRetryInterval)
	}
	return nil, lastErr
}
