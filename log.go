package x64

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used for region and stream lifecycle events. Events are
// logged at debug level. A nil logger restores slog.Default.
func SetLogger(l *slog.Logger) { logger.Store(l) }

func lg() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}
