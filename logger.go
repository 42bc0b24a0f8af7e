package niforms

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a PSR-3 style severity.
type Level string

const (
	LevelEmergency Level = "emergency"
	LevelAlert     Level = "alert"
	LevelCritical  Level = "critical"
	LevelError     Level = "error"
	LevelWarning   Level = "warning"
	LevelNotice    Level = "notice"
	LevelInfo      Level = "info"
	LevelDebug     Level = "debug"
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelEmergency, LevelAlert, LevelCritical, LevelError:
		return zapcore.ErrorLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// LogEntry is one recorded message tagged with the pipeline position it
// was written from.
type LogEntry struct {
	Level   Level
	Message string
	Context map[string]any
	Stage   string
	Handler string
}

// field returns the entry value used by Filtered.
func (e LogEntry) field(name string) (string, bool) {
	switch name {
	case "level":
		return string(e.Level), true
	case "message":
		return e.Message, true
	case "stage":
		return e.Stage, true
	case "handler":
		return e.Handler, true
	}
	return "", false
}

// LogFilter selects entries by field name (level, message, stage,
// handler). Every key must match; an entry matches a key when its value is
// any of the listed values.
type LogFilter map[string][]string

// Logger collects the log entries of one request. The current stage and
// handler are kept on stacks so nested pipeline steps tag their entries
// with where they ran. Entries are mirrored to zap.
type Logger struct {
	stages   []string
	handlers []string
	entries  []LogEntry
	zl       *zap.Logger
}

// NewLogger returns an empty request logger mirroring to zl. A nil zl
// disables mirroring.
func NewLogger(zl *zap.Logger) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Logger{zl: zl}
}

func (l *Logger) PushStage(stage string) *Logger {
	l.stages = append(l.stages, stage)
	return l
}

func (l *Logger) PopStage() string {
	return pop(&l.stages)
}

// CurrentStage returns the top of the stage stack, or "" when empty.
func (l *Logger) CurrentStage() string {
	return top(l.stages)
}

func (l *Logger) CountStage() int {
	return len(l.stages)
}

func (l *Logger) ClearStage() *Logger {
	l.stages = nil
	return l
}

func (l *Logger) PushHandler(handler string) *Logger {
	l.handlers = append(l.handlers, handler)
	return l
}

func (l *Logger) PopHandler() string {
	return pop(&l.handlers)
}

// CurrentHandler returns the top of the handler stack, or "" when empty.
func (l *Logger) CurrentHandler() string {
	return top(l.handlers)
}

func (l *Logger) CountHandler() int {
	return len(l.handlers)
}

func (l *Logger) ClearHandler() *Logger {
	l.handlers = nil
	return l
}

// Log records a message at level.
func (l *Logger) Log(level Level, message string, context map[string]any) {
	entry := LogEntry{
		Level:   level,
		Message: message,
		Context: copyContext(context),
		Stage:   l.CurrentStage(),
		Handler: l.CurrentHandler(),
	}
	l.entries = append(l.entries, entry)

	if ce := l.zl.Check(level.zapLevel(), message); ce != nil {
		fields := make([]zap.Field, 0, len(entry.Context)+3)
		fields = append(fields, zap.String("psr_level", string(level)))
		if entry.Stage != "" {
			fields = append(fields, zap.String("stage", entry.Stage))
		}
		if entry.Handler != "" {
			fields = append(fields, zap.String("handler", entry.Handler))
		}
		keys := make([]string, 0, len(entry.Context))
		for k := range entry.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, zap.Any(k, entry.Context[k]))
		}
		ce.Write(fields...)
	}
}

func (l *Logger) Emergency(message string, context map[string]any) {
	l.Log(LevelEmergency, message, context)
}

func (l *Logger) Alert(message string, context map[string]any) {
	l.Log(LevelAlert, message, context)
}

func (l *Logger) Critical(message string, context map[string]any) {
	l.Log(LevelCritical, message, context)
}

func (l *Logger) Error(message string, context map[string]any) {
	l.Log(LevelError, message, context)
}

func (l *Logger) Warning(message string, context map[string]any) {
	l.Log(LevelWarning, message, context)
}

func (l *Logger) Notice(message string, context map[string]any) {
	l.Log(LevelNotice, message, context)
}

func (l *Logger) Info(message string, context map[string]any) {
	l.Log(LevelInfo, message, context)
}

func (l *Logger) Debug(message string, context map[string]any) {
	l.Log(LevelDebug, message, context)
}

// Logs returns every entry in the order it was written.
func (l *Logger) Logs() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Filtered returns the entries matching every key of filter. Unknown keys
// match nothing.
func (l *Logger) Filtered(filter LogFilter) []LogEntry {
	var out []LogEntry
	for _, entry := range l.entries {
		if matchesFilter(entry, filter) {
			out = append(out, entry)
		}
	}
	return out
}

func matchesFilter(entry LogEntry, filter LogFilter) bool {
	for key, wanted := range filter {
		value, ok := entry.field(key)
		if !ok {
			return false
		}
		found := false
		for _, w := range wanted {
			if w == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func copyContext(context map[string]any) map[string]any {
	if len(context) == 0 {
		return nil
	}
	out := make(map[string]any, len(context))
	for k, v := range context {
		out[k] = v
	}
	return out
}

func pop(stack *[]string) string {
	s := *stack
	if len(s) == 0 {
		return ""
	}
	v := s[len(s)-1]
	*stack = s[:len(s)-1]
	return v
}

func top(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}
