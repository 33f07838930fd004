// Package ports declares the collaborator interfaces of the decode bridge.
// Concrete implementations live under pkg/adapters.
package ports

// LogLevel is the minimum severity a Logger emits.
type LogLevel int

const (
	// LevelDebug covers per-cycle details: chunk sizes, engine result codes.
	LevelDebug LogLevel = iota
	// LevelInfo covers session milestones such as start, renegotiation and drain.
	LevelInfo
	// LevelWarn covers engine warnings and dropped chunks.
	LevelWarn
	// LevelError covers conditions that terminate a stream.
	LevelError
	// LevelQuiet suppresses all output.
	LevelQuiet
)

// String returns the lower-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel maps a level name to a LogLevel. Unknown names yield LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger is the logging abstraction shared by every component.
// The msg argument is a translatable format key.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that tags every line with component.
	WithComponent(component string) Logger
}
