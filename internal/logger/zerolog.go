package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the component-keyed logging contract shared by every package.
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerolog(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &ZerologAdapter{logger: logger}
}

func NewConsoleLogger(level zerolog.Level) *ZerologAdapter {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	return NewZerolog(consoleWriter, level)
}

// New picks the console writer for "console" and JSON lines on stderr otherwise.
func New(format string, level zerolog.Level) *ZerologAdapter {
	if strings.EqualFold(format, "console") {
		return NewConsoleLogger(level)
	}
	return NewZerolog(os.Stderr, level)
}

// Nop discards everything. Used by tests and as the default for libraries.
func Nop() *ZerologAdapter {
	return &ZerologAdapter{logger: zerolog.Nop()}
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// emit tags event with the component and the extra fields. Disabled
// levels hand back a nil event, which zerolog treats as a no-op.
func emit(event *zerolog.Event, component string, fields map[string]interface{}, message string) {
	event.Str("component", component).Fields(fields).Msg(message)
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	emit(z.logger.Debug(), component, fields, message)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	emit(z.logger.Info(), component, fields, message)
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	emit(z.logger.Warn(), component, fields, message)
}

func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	emit(z.logger.Error().Err(err), component, fields, "operation failed")
}
