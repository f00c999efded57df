// Package engine runs programs through an external symbolic-math engine.
//
// The engine is a command-line program (wolframscript by default) that reads a
// program from a file and prints the value of its final expression. [Engine]
// owns the whole subprocess lifecycle for one call:
//
//   - the source text is written to a freshly created temp file whose name is
//     built from a timestamp and a random UUID, so concurrent calls never collide
//   - the engine is started with the file path as an argument; source text is
//     never placed on a command line or in a shell string
//   - stdout is captured as the result, stderr as a non-fatal diagnostic
//   - the temp file is removed on every exit path
//
// # Formats
//
// A [Format] selects how the engine renders its output. Unknown format names
// fall back to [FormatText] instead of failing:
//
//	eng, _ := engine.New(engine.Config{})
//	res, err := eng.Run(ctx, "Integrate[x^2, x]", engine.ParseFormat("latex"))
//
// # Errors
//
// A failed run returns an [*ExecutionError] carrying the engine's own error
// text; use errors.Is(err, [ErrExecution]) to classify it. [Engine.Probe]
// reports [ErrEngineUnavailable] when the engine cannot be started at all.
package engine
