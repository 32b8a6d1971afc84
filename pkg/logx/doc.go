// Package logx is castbot's structured logging layer.
//
// Logger wraps zerolog so components can carry fixed fields (comp=..., run=...)
// while the Service swaps sinks at runtime:
//   - console output with short timestamps and file:line callers
//   - JSON lines in an append-only file
//   - an optional operator-chat sink, filtered by level and rate limited
package logx
