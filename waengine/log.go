package waengine

import (
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogAdapter bridges whatsmeow's logger interface onto the gateway's
// structured logger, so protocol internals land in the same stream as
// everything else.
type slogAdapter struct {
	log *slog.Logger
}

func wrapLogger(log *slog.Logger) waLog.Logger {
	return slogAdapter{log: log}
}

func (a slogAdapter) Errorf(msg string, args ...any) { a.log.Error(fmt.Sprintf(msg, args...)) }
func (a slogAdapter) Warnf(msg string, args ...any)  { a.log.Warn(fmt.Sprintf(msg, args...)) }
func (a slogAdapter) Infof(msg string, args ...any)  { a.log.Info(fmt.Sprintf(msg, args...)) }
func (a slogAdapter) Debugf(msg string, args ...any) { a.log.Debug(fmt.Sprintf(msg, args...)) }

func (a slogAdapter) Sub(module string) waLog.Logger {
	return slogAdapter{log: a.log.With("module", module)}
}
