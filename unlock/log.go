package unlock

import (
	"log/slog"

	"github.com/zdircomp/zdircomp/logging"
)

func sub() *slog.Logger {
	return logging.Sub("unlock")
}
