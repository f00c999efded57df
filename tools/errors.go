package tools

import (
	"errors"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Sentinel errors returned by the Dispatcher.
var (
	// ErrMethodNotFound indicates a call for a tool that is not registered.
	ErrMethodNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates arguments that failed validation. No engine
	// process was started.
	ErrInvalidParams = errors.New("invalid params")

	// ErrInternal indicates an unexpected failure inside the bridge.
	ErrInternal = errors.New("internal error")

	// ErrDuplicateTool is returned when registering a name twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrInvalidTool is returned for a definition that cannot be registered.
	ErrInvalidTool = errors.New("invalid tool definition")
)

// RPCError converts a Dispatcher error to a JSON-RPC error. It returns nil for
// a nil error.
func RPCError(err error) *jsonrpc.Error {
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var code int64 = jsonrpc.CodeInternalError
	switch {
	case errors.Is(err, ErrInvalidParams):
		code = jsonrpc.CodeInvalidParams
	case errors.Is(err, ErrMethodNotFound):
		code = jsonrpc.CodeMethodNotFound
	}
	return &jsonrpc.Error{Code: code, Message: err.Error()}
}
