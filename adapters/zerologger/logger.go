// Package zerologger implements the glog logger contracts on top of zerolog.
package zerologger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/rs/zerolog"
)

var (
	_ glog.Logger         = (*Logger)(nil)
	_ glog.FieldsLogger   = (*Logger)(nil)
	_ glog.LoggerProvider = (*Provider)(nil)
)

const badKey = "!BADKEY"

type Logger struct {
	logger zerolog.Logger
}

// New writes JSON to w at the given level. Unknown levels fall back to info.
// A nil writer uses stderr.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return Wrap(zerolog.New(w).Level(parsed).With().Timestamp().Logger())
}

// NewConsole writes human readable output, for CLI use.
func NewConsole(w io.Writer, level string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(zerolog.ConsoleWriter{Out: w, NoColor: true}, level)
}

func Wrap(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

func (l *Logger) Trace(msg string, args ...any) { l.emit(l.logger.Trace(), msg, args) }
func (l *Logger) Debug(msg string, args ...any) { l.emit(l.logger.Debug(), msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(l.logger.Info(), msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(l.logger.Warn(), msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(l.logger.Error(), msg, args) }

// Fatal logs at fatal level without exiting; process lifetime belongs to
// the caller.
func (l *Logger) Fatal(msg string, args ...any) {
	l.emit(l.logger.WithLevel(zerolog.FatalLevel), msg, args)
}

func (l *Logger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		return l
	}
	return Wrap(l.logger.With().Ctx(ctx).Logger())
}

func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	return Wrap(l.logger.With().Fields(fields).Logger())
}

func (l *Logger) emit(event *zerolog.Event, msg string, args []any) {
	if event == nil {
		return
	}
	if fields := pairs(args); len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(msg)
}

// pairs turns key/value arguments into fields. A trailing value without a
// key is kept under badKey.
func pairs(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	fields := make(map[string]any, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields[badKey] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		value := args[i+1]
		if err, isErr := value.(error); isErr && err != nil {
			value = err.Error()
		}
		fields[key] = value
	}
	return fields
}

// Provider hands out loggers tagged with their name.
type Provider struct {
	root *Logger
}

func NewProvider(root *Logger) *Provider {
	if root == nil {
		root = Wrap(zerolog.Nop())
	}
	return &Provider{root: root}
}

func (p *Provider) GetLogger(name string) glog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.root
	}
	return Wrap(p.root.logger.With().Str("logger", name).Logger())
}
