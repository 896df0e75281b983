// Package log provides structured logging for Strand components.
//
// Loggers carry typed fields (Str, Int64, Err, ...) and write through a
// pluggable formatter/output pipeline. Construct one logger per process and
// hand scoped children to components:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	streams := logger.With(log.Component("streams"))
//	streams.Info("append", log.Str("stream", name), log.Int64("seq", int64(seq)))
//
// RedirectStdLog routes the standard library logger (used by Pebble) through
// the same pipeline so all process output shares one format.
package log
