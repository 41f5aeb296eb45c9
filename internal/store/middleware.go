package store

import (
	"log/slog"
)

// Middleware sees every action before the reducer and may return a
// replacement. Returning nil drops the action. Middleware runs while the
// store is committing and must not call back into the store.
type Middleware func(a Action, current State) Action

// LoggingMiddleware logs each action at debug level
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(a Action, current State) Action {
		if a != nil {
			logger.Debug("dispatch",
				"action", a.Name(),
				"view", current.UI.CurrentView)
		}
		return a
	}
}
