package logger

import "sync"

// Log levels accepted in the log.level setting.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Options configures the process logger.
type Options struct {
	Level string
	// File adds a rotating fault log receiving warnings and above. Empty disables it.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	global *Logger
	once   sync.Once
)

// Get returns the process logger, building a stdout-only one at level on first use.
func Get(level string) *Logger {
	return Init(Options{Level: level})
}

// Init builds the process logger from opts. Only the first call has any effect.
func Init(opts Options) *Logger {
	once.Do(func() {
		global = newZapLogger(opts)
	})
	return global
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return newNopLogger()
}

// Named returns a child logger whose entries carry the component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component)}
}
