package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that drops all output. Use it to keep
// test logs quiet; pass a real logger when debugging a failing test.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
