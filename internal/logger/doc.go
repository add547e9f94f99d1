// Package logger wraps zap to offer:
//   - a global sugared logger with a console encoder,
//   - an optional rotating file sink for long-running watchers,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and extract the logger from it, so every line of
// a poll cycle carries the same cycle_id.
package logger
