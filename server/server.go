package server

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/clove/store"
	"github.com/chazu/clove/vm"
)

// MaxRequestBytes caps the size of a request message.
const MaxRequestBytes = 1 << 20

// CloveServer serves the eval service over Connect (HTTP/JSON).
type CloveServer struct {
	pool *WorkerPool
	eval *EvalService
	mux  *http.ServeMux
	log  commonlog.Logger
}

// ServerOption configures a CloveServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	cache      *store.Store
	workers    int
	stackLimit int
}

// WithCache makes evaluations go through a compiled chunk cache.
func WithCache(s *store.Store) ServerOption {
	return func(c *serverConfig) { c.cache = s }
}

// WithWorkers sets how many evaluations may run at once.
func WithWorkers(n int) ServerOption {
	return func(c *serverConfig) { c.workers = n }
}

// WithStackLimit sets the stack limit of every VM the server creates.
func WithStackLimit(n int) ServerOption {
	return func(c *serverConfig) { c.stackLimit = n }
}

// New creates a CloveServer.
func New(opts ...ServerOption) *CloveServer {
	cfg := &serverConfig{stackLimit: vm.StackMax}
	for _, opt := range opts {
		opt(cfg)
	}

	pool := NewWorkerPool(cfg.workers)
	s := &CloveServer{
		pool: pool,
		eval: NewEvalService(pool, cfg.cache, cfg.stackLimit),
		mux:  http.NewServeMux(),
		log:  commonlog.GetLogger("clove.server"),
	}

	handlerOpts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithReadMaxBytes(MaxRequestBytes),
	}
	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, s.eval.Evaluate, handlerOpts...))
	s.mux.Handle(DisassembleProcedure, connect.NewUnaryHandler(DisassembleProcedure, s.eval.Disassemble, handlerOpts...))

	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *CloveServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *CloveServer) ListenAndServe(addr string) error {
	s.log.Noticef("clove eval server listening on %s", addr)
	s.log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, EvaluateProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server's workers.
func (s *CloveServer) Stop() {
	s.pool.Stop()
}
