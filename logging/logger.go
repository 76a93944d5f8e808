package logging

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerSkip is the number of frames from emit up to the code that logged: emit, then Debugw etc.
const callerSkip = 2

// fanout is the appender list shared by a logger and all of its subloggers, so appenders added
// after a sublogger was created still receive its entries.
type fanout struct {
	mu        sync.RWMutex
	appenders []Appender
}

func (f *fanout) add(a Appender) {
	f.mu.Lock()
	f.appenders = append(f.appenders, a)
	f.mu.Unlock()
}

func (f *fanout) write(entry zapcore.Entry, fields []zapcore.Field) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.appenders {
		if err := a.Write(entry, fields); err != nil {
			//nolint:errcheck
			fmt.Fprintln(os.Stderr, "log appender:", err)
		}
	}
}

type logger struct {
	name  string
	level AtomicLevel
	utc   bool
	out   *fanout
}

func newLogger(name string, level Level, utc bool) *logger {
	return &logger{name: name, level: NewAtomicLevelAt(level), utc: utc, out: &fanout{}}
}

func (l *logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.emit(DEBUG, msg, keysAndValues)
}

func (l *logger) Infow(msg string, keysAndValues ...interface{}) {
	l.emit(INFO, msg, keysAndValues)
}

func (l *logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.emit(WARN, msg, keysAndValues)
}

func (l *logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.emit(ERROR, msg, keysAndValues)
}

func (l *logger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return &logger{name: name, level: NewAtomicLevelAt(l.level.Get()), utc: l.utc, out: l.out}
}

func (l *logger) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *logger) GetLevel() Level {
	return l.level.Get()
}

func (l *logger) AddAppender(a Appender) {
	l.out.add(a)
}

func (l *logger) emit(level Level, msg string, keysAndValues []interface{}) {
	if level < l.level.Get() {
		return
	}
	now := time.Now()
	if l.utc {
		now = now.UTC()
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       now,
		LoggerName: l.name,
		Message:    msg,
		Caller:     zapcore.NewEntryCaller(runtime.Caller(callerSkip)),
	}
	l.out.write(entry, fieldsOf(keysAndValues))
}

// fieldsOf pairs up keys and values. Errors are logged by message only, and a trailing key without
// a value is kept with a placeholder.
func fieldsOf(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.String(key, "<missing value>"))
			break
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			fields = append(fields, zap.String(key, v.Error()))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}
	return fields
}
