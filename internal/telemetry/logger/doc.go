// Package logger provides structured logging for stowage.
//
// It wraps log/slog:
//
//   - logger.go: configuration, handlers and the dynamic level
//   - context.go: context-scoped loggers and attributes
//   - redact.go: redaction of stored content and credentials
//
// Storage components take a *slog.Logger; Logger.Slog bridges the two.
package logger
