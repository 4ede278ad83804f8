package indicator

import (
	"log/slog"

	"scrollsafe/internal/logging"
)

// LogReporter renders indicator transitions as structured log lines. The
// daemon uses it when no visual host surface is attached; it also keeps the
// reporter contract honest in integration runs.
type LogReporter struct {
	logger *slog.Logger
}

func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logging.WithComponent(logger, "indicator")}
}

func (r *LogReporter) Attach(mountPoint string) Handle {
	r.logger.Debug("indicator attached", logging.String(logging.FieldMount, mountPoint))
	return Handle{MountPoint: mountPoint}
}

func (r *LogReporter) Set(handle Handle, state State) {
	attrs := []logging.Attr{
		logging.String(logging.FieldMount, handle.MountPoint),
		logging.String("state", state.Kind.String()),
	}
	if state.Verdict != nil {
		attrs = append(attrs, logging.String("label", string(state.Verdict.Label)))
		if confidence, ok := state.Verdict.ConfidenceValue(); ok {
			attrs = append(attrs, logging.Float64("confidence", confidence))
		}
	}
	if state.Message != "" {
		attrs = append(attrs, logging.String("message", state.Message))
	}
	if state.Kind == KindDeepScanBump {
		attrs = append(attrs, logging.Float64("ratio", state.Ratio))
	}
	r.logger.Info("indicator state", logging.Args(attrs...)...)
}
