// Package logging hands out per-component loggers for exportcheck.
//
// Loggers can be obtained at package init time and are silent until Init
// runs, so library packages log unconditionally:
//
//	var logger = logging.Get("scanner")
//
//	func main() {
//	    if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	        log.Fatal(err)
//	    }
//	    defer logging.Close()
//	}
//
// Records go to a rotating file and, when ConsoleLevel is set, to stderr.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a charm log level restricted to debug, info, warn and error.
type Level = log.Level

const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// ErrInvalidLevel is returned for a level name outside debug, info, warn
// and error.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name case-insensitively. "warning" is accepted
// as an alias for warn. Invalid input returns LevelInfo with ErrInvalidLevel.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}

	switch lvl, err := log.ParseLevel(name); {
	case err != nil, lvl == log.FatalLevel:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	default:
		return lvl, nil
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default level (debug, info, warn, error).
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	Rotation RotationConfig

	// Components overrides Level per component name.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level. Empty
	// disables console output.
	ConsoleLevel string
}

// Logger writes a component's records to every configured sink.
type Logger struct {
	component string
	sinks     []*log.Logger
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.emit(LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.emit(LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(LevelError, msg, args) }

func (l *Logger) emit(level Level, msg string, args []interface{}) {
	for _, s := range l.sinks {
		s.Log(level, msg, args...)
	}
}

// With returns a logger that adds key/value pairs to every record.
func (l *Logger) With(args ...interface{}) *Logger {
	nl := &Logger{component: l.component, sinks: make([]*log.Logger, len(l.sinks))}
	for i, s := range l.sinks {
		nl.sinks[i] = s.With(args...)
	}
	return nl
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

// registry owns the file writer and every logger handed out. Loggers are
// rebuilt in place on Init and Close since callers keep the pointers.
type registry struct {
	mu         sync.RWMutex
	writer     *RotatingWriter
	level      Level
	components map[string]Level
	console    *Level
	loggers    map[string]*Logger
}

var reg = &registry{
	level:   LevelInfo,
	loggers: make(map[string]*Logger),
}

// Init configures logging. Calling it again replaces the previous
// configuration.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = lvl
	}

	var console *Level
	if cfg.ConsoleLevel != "" {
		lvl, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = &lvl
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if err := reg.closeWriter(); err != nil {
		return err
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	reg.writer = writer
	reg.level = level
	reg.components = components
	reg.console = console
	reg.rebuild()
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	reg.mu.RLock()
	logger, ok := reg.loggers[component]
	reg.mu.RUnlock()
	if ok {
		return logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if logger, ok := reg.loggers[component]; ok {
		return logger
	}
	logger = reg.build(component)
	reg.loggers[component] = logger
	return logger
}

// Close closes the log file. Loggers become silent until the next Init.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	err := reg.closeWriter()
	reg.components = nil
	reg.console = nil
	reg.rebuild()
	return err
}

func (r *registry) closeWriter() error {
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

func (r *registry) rebuild() {
	for component, existing := range r.loggers {
		*existing = *r.build(component)
	}
}

// build must be called with r.mu held.
func (r *registry) build(component string) *Logger {
	level := r.level
	if lvl, ok := r.components[component]; ok {
		level = lvl
	}

	if r.writer == nil {
		return &Logger{
			component: component,
			sinks:     []*log.Logger{log.NewWithOptions(io.Discard, log.Options{Level: level, Prefix: component})},
		}
	}

	sinks := []*log.Logger{log.NewWithOptions(r.writer, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})}

	if r.console != nil {
		sinks = append(sinks, log.NewWithOptions(os.Stderr, log.Options{
			Level:           *r.console,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		}))
	}

	return &Logger{component: component, sinks: sinks}
}

// DefaultLogPath returns $XDG_STATE_HOME/exportcheck/exportcheck.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "exportcheck", "exportcheck.log")
}

// DefaultConfig returns info-level logging to DefaultLogPath.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
