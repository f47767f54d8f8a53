package ecs

import "go.uber.org/zap"

// Logger receives structured diagnostic events for a world's lifecycle and
// structural mutations. It is a pure side-channel: nothing in the core
// consults it for control flow, and a world with no logger set logs
// nothing. The mutation call sites still build their arguments (including
// Entity.String renderings) before the nil check. *zap.SugaredLogger satisfies this interface
// directly; any other leveled, structured logger can be adapted to it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

// NewDevelopmentLogger builds a zap-backed Logger suitable for
// World.SetLogger, using zap's development preset (human-readable,
// debug-level-enabled console output). Diagnostics are off by default;
// callers opt in by constructing one of these and attaching it.
func NewDevelopmentLogger() (Logger, error) {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return zl.Sugar(), nil
}

// SetLogger attaches l to w so subsequent structural mutations (spawn,
// destroy, trait add/remove, relation target changes) are reported to it.
// Off by default; pass nil to detach.
func (w *World) SetLogger(l Logger) {
	w.logger = l
}

func (w *World) logDebug(msg string, kv ...interface{}) {
	if w.logger == nil {
		return
	}
	w.logger.Debugw(msg, kv...)
}

func (w *World) logWarn(msg string, kv ...interface{}) {
	if w.logger == nil {
		return
	}
	w.logger.Warnw(msg, kv...)
}
