package server

// Procedure paths served by EvalService.
const (
	EvalServiceName      = "clove.v1.EvalService"
	EvaluateProcedure    = "/" + EvalServiceName + "/Evaluate"
	DisassembleProcedure = "/" + EvalServiceName + "/Disassemble"
)

// Error kinds reported in EvaluateResponse.ErrorKind.
const (
	ErrorKindCompile = "compile"
	ErrorKindRuntime = "runtime"
)

// EvaluateRequest asks the server to compile and run an expression.
type EvaluateRequest struct {
	Source string `json:"source"`
	Trace  bool   `json:"trace,omitempty"`
}

// EvaluateResponse carries the outcome of one evaluation.
type EvaluateResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	// Result is the value as the VM prints it, including +Inf, -Inf and NaN.
	Result string `json:"result,omitempty"`
	// Value is omitted when the result is not finite.
	Value       *float64     `json:"value,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Trace       string       `json:"trace,omitempty"`
	ErrorKind   string       `json:"error_kind,omitempty"`
	Error       string       `json:"error,omitempty"`
	Cached      bool         `json:"cached,omitempty"`
}

// DisassembleRequest asks for the bytecode listing of an expression.
type DisassembleRequest struct {
	Source string `json:"source"`
}

// DisassembleResponse carries the listing, or the diagnostics that prevented
// compilation.
type DisassembleResponse struct {
	Success     bool         `json:"success"`
	Listing     string       `json:"listing,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Diagnostic is a compile error as seen by clients. Line is one-based.
type Diagnostic struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Near    string `json:"near,omitempty"`
	Message string `json:"message"`
	Text    string `json:"text"`
}
