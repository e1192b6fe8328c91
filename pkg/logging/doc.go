// Package logging configures the structured loggers used by the harness.
//
// It wraps log/slog so that the core, the protocol adapters and the CLI share
// one set of levels and output formats.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("mock server ready", "address", addr)
//
// Components accept a *slog.Logger through an option or a setter and fall back
// to Nop() when none is given.
package logging
