// Package tools declares the Mathematica tools and dispatches calls to them.
//
// A [Registry] holds tool definitions with their JSON schemas. The
// [Dispatcher] resolves a call by name, validates the arguments, probes the
// engine and runs the handler, converting failures into either an
// error-flagged tool result or a protocol error:
//
//   - unknown tool name: [ErrMethodNotFound]
//   - arguments that do not match the schema, or fewer than two derivation
//     steps: [ErrInvalidParams]
//   - engine unreachable, or the engine ran and failed: a successful
//     *mcp.CallToolResult with IsError set and a descriptive message
//   - anything else: [ErrInternal]
//
// [RPCError] converts the returned errors to JSON-RPC errors.
//
// A [Catalog] indexes the registered tools with tooldiscovery so they can be
// searched and described from the command line.
package tools
