package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/clove/compiler"
	"github.com/chazu/clove/pkg/bytecode"
	"github.com/chazu/clove/store"
	"github.com/chazu/clove/vm"
)

// EvalService implements the clove.v1.EvalService Connect handlers.
type EvalService struct {
	pool       *WorkerPool
	cache      *store.Store // may be nil
	stackLimit int
	log        commonlog.Logger
}

// NewEvalService creates an EvalService. cache may be nil.
func NewEvalService(pool *WorkerPool, cache *store.Store, stackLimit int) *EvalService {
	return &EvalService{
		pool:       pool,
		cache:      cache,
		stackLimit: stackLimit,
		log:        commonlog.GetLogger("clove.server"),
	}
}

// Evaluate compiles and executes an expression.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.pool.Do(ctx, func() any {
		resp, err := s.evaluate(ctx, source, req.Msg.Trace)
		if err != nil {
			return err
		}
		return resp
	})
	if err != nil {
		return nil, poolError(err)
	}
	if fault, ok := result.(error); ok {
		return nil, connect.NewError(connect.CodeInternal, fault)
	}

	return connect.NewResponse(result.(*EvaluateResponse)), nil
}

// Disassemble compiles an expression and returns its bytecode listing.
func (s *EvalService) Disassemble(
	ctx context.Context,
	req *connect.Request[DisassembleRequest],
) (*connect.Response[DisassembleResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.pool.Do(ctx, func() any {
		c, err := compiler.CompileChunk(source)
		if err != nil {
			return &DisassembleResponse{Diagnostics: diagnosticsFor(err)}
		}
		defer c.Free()
		return &DisassembleResponse{Success: true, Listing: c.Disassemble("expression")}
	})
	if err != nil {
		return nil, poolError(err)
	}

	return connect.NewResponse(result.(*DisassembleResponse)), nil
}

// poolError maps a WorkerPool.Do failure to a Connect error.
func poolError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// evaluate compiles and runs source on a fresh VM. Compile and runtime
// errors are reported in the response; the error result is reserved for
// internal faults. Must be called on a pool goroutine.
func (s *EvalService) evaluate(ctx context.Context, source string, trace bool) (*EvaluateResponse, error) {
	resp := &EvaluateResponse{ID: uuid.NewString()}

	c, cached, err := s.compile(ctx, source)
	if err != nil {
		resp.Error = err.Error()
		resp.Diagnostics = diagnosticsFor(err)
		if len(resp.Diagnostics) > 0 {
			resp.ErrorKind = ErrorKindCompile
		} else {
			// cache I/O failure; report it like a runtime failure
			resp.ErrorKind = ErrorKindRuntime
		}
		return resp, nil
	}
	defer c.Free()
	resp.Cached = cached

	opts := []vm.Option{vm.WithStackLimit(s.stackLimit)}
	var traceBuf bytes.Buffer
	if trace {
		opts = append(opts, vm.WithTrace(&traceBuf))
	}

	value, err := vm.New(opts...).Execute(c)
	resp.Trace = traceBuf.String()
	if err != nil {
		if vm.IsInternalFault(err) {
			s.log.Errorf("evaluation %s: %s", resp.ID, err)
			return nil, err
		}
		resp.Error = err.Error()
		resp.ErrorKind = ErrorKindRuntime
		return resp, nil
	}

	resp.Success = true
	resp.Result = bytecode.FormatValue(value)
	if !math.IsInf(value, 0) && !math.IsNaN(value) {
		resp.Value = &value
	}
	s.log.Debugf("evaluation %s: %s", resp.ID, resp.Result)
	return resp, nil
}

func (s *EvalService) compile(ctx context.Context, source string) (*bytecode.Chunk, bool, error) {
	if s.cache != nil {
		return s.cache.Compile(ctx, source)
	}
	c, err := compiler.CompileChunk(source)
	return c, false, err
}

// diagnosticsFor converts a compile error into client diagnostics. Returns
// nil for any other error.
func diagnosticsFor(err error) []Diagnostic {
	ce, ok := compiler.AsError(err)
	if !ok {
		return nil
	}
	out := make([]Diagnostic, len(ce.Diagnostics))
	for i, d := range ce.Diagnostics {
		out[i] = Diagnostic{
			Line:    d.Line,
			Column:  d.Column,
			Near:    d.Lexeme,
			Message: d.Message,
			Text:    d.String(),
		}
	}
	return out
}
