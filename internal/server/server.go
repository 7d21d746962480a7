// Package server is C2: the connection state machine of spec.md §4.2,
// driving every connection New → HandShake → Authenticated →
// AllocateBackendKey → Established, then dispatching Established-state
// frontend messages through C3/C9/C10/C11. Grounded on the accept-loop
// shape of `lib/pq/listen.go`'s Listener, adapted from the client role
// to the server role it never plays itself.
package server

import (
	"context"
	"crypto/tls"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/alex-dukhno/pgcore/internal/ast"
	"github.com/alex-dukhno/pgcore/internal/auth"
	"github.com/alex-dukhno/pgcore/internal/catalog"
	"github.com/alex-dukhno/pgcore/internal/executor"
	"github.com/alex-dukhno/pgcore/internal/session"
	"github.com/alex-dukhno/pgcore/internal/storage"
)

// Metrics is the narrow observability seam internal/metrics implements;
// Engine works with a nil Metrics (every call below is a no-op guard).
type Metrics interface {
	ConnOpened()
	ConnClosed()
	QueryHandled(tag string, err error)
}

// Engine bundles the process-wide collaborators one pgcored process
// shares across every connection: the catalog, its storage, the
// executor built on top of them, the SQL frontend, the connection
// supervisor, and the chosen authentication backend.
type Engine struct {
	Catalog     *catalog.Catalog
	Store       storage.Store
	Executor    *executor.Executor
	Parser      ast.Parser
	Supervisor  *session.Supervisor
	Auth        auth.Backend
	TLSConfig   *tls.Config
	Logger      logrus.FieldLogger
	Metrics     Metrics
	ServerVersion string

	mu      sync.Mutex
	cancels map[int32]context.CancelFunc
}

// NewEngine wires the collaborators together; ServerVersion defaults to
// the version spec.md §4.2 requires every connection to report.
func NewEngine(cat *catalog.Catalog, store storage.Store, exec *executor.Executor, parser ast.Parser, sup *session.Supervisor, authBackend auth.Backend) *Engine {
	return &Engine{
		Catalog:       cat,
		Store:         store,
		Executor:      exec,
		Parser:        parser,
		Supervisor:    sup,
		Auth:          authBackend,
		Logger:        logrus.StandardLogger(),
		ServerVersion: "12.4",
		cancels:       make(map[int32]context.CancelFunc),
	}
}

func (e *Engine) registerCancel(id int32, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels[id] = cancel
}

func (e *Engine) unregisterCancel(id int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancels, id)
}

// requestCancel signals the connection id's best-effort cancellation
// context. True preemption isn't available without deep executor
// changes (the row-scan loop has no suspension points of its own to
// check against, per spec.md §5's suspension-point model); this races
// the cancellation flag against whichever statement boundary the
// target connection's dispatch loop next checks.
func (e *Engine) requestCancel(id int32) {
	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Engine) logger() logrus.FieldLogger {
	if e.Logger != nil {
		return e.Logger
	}
	return logrus.StandardLogger()
}

func (e *Engine) metrics() Metrics {
	if e.Metrics != nil {
		return e.Metrics
	}
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) ConnOpened()                      {}
func (noopMetrics) ConnClosed()                       {}
func (noopMetrics) QueryHandled(tag string, err error) {}

// Server listens for raw TCP connections and hands each to a fresh
// conn's state machine, one goroutine per connection (spec.md §5: "each
// client connection runs as an independent cooperative task").
type Server struct {
	engine *Engine
}

func New(engine *Engine) *Server { return &Server{engine: engine} }

// ListenAndServe accepts connections on addr until the listener errors
// or is closed.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the accept loop over an already-bound listener.
func (s *Server) Serve(ln net.Listener) error {
	defer ln.Close()
	s.engine.logger().WithField("addr", ln.Addr().String()).Info("pgcore: listening")
	for {
		raw, err := ln.Accept()
		if err != nil {
			return err
		}
		c := &conn{engine: s.engine, raw: raw, txStatus: 'I'}
		go c.serve()
	}
}
