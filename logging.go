package versioned

import "time"

// ParseEvent describes one Parse call for logging.
type ParseEvent struct {
	Model         string
	Version       int
	SourceVersion int
	Applied       []int
	Fallback      bool
	Reason        Reason
	Duration      time.Duration
	Err           error
}

// Logger records parse outcomes. Fallbacks are silent to callers of Parse, so
// this is the only place they become visible.
type Logger interface {
	LogParse(ParseEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(ParseEvent)

// LogParse implements Logger.
func (f LoggerFunc) LogParse(event ParseEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogParse(ParseEvent) {}
