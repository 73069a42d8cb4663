package hook

import (
	"log/slog"

	"gitlab.com/akita/akita/v3/sim"
)

// A LogHook logs every completed leaf invocation at debug level.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook creates a LogHook that writes to logger.
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func logs LeafEvents delivered at HookPosLeafEnd.
func (h *LogHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosLeafEnd {
		return
	}

	evt, ok := ctx.Item.(LeafEvent)
	if !ok {
		return
	}

	h.logger.Debug("leaf invoked",
		"path", evt.Path,
		"kind", evt.Kind,
		"input_shape", evt.Record.InputShape,
		"output_shape", evt.Record.OutputShape,
		"duration_s", evt.Record.DurationSeconds,
		"flops", evt.Record.Flops)
}
