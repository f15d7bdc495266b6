package sync

import (
	"log/slog"

	"github.com/zdircomp/zdircomp/logging"
)

// sub returns a child logger tagged with the given component name.
func sub(component string) *slog.Logger {
	return logging.Sub(component)
}
