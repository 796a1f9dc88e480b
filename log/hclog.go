/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// hclogLogger implements Logger on top of a hashicorp logger. FATAL has no
// hclog counterpart, so those messages are written at ERROR and the
// threshold is enforced here as well.
type hclogLogger struct {
	hl    hclog.Logger
	level Level
	opts  *hclog.LoggerOptions
}

func newHclogLogger(name string, level Level, output io.Writer, timeFormat string, location bool, mutex *sync.Mutex) *hclogLogger {
	opts := &hclog.LoggerOptions{
		Name:                     name,
		Level:                    toHclogLevel(level),
		Output:                   output,
		TimeFormat:               timeFormat,
		IncludeLocation:          location,
		AdditionalLocationOffset: 1,
	}
	if mutex != nil {
		opts.Mutex = mutex
	}
	return &hclogLogger{
		hl:    hclog.New(opts),
		level: level,
		opts:  opts,
	}
}

func toHclogLevel(level Level) hclog.Level {
	switch level {
	case Off:
		return hclog.Off
	case Fatal, Error:
		return hclog.Error
	case Warn:
		return hclog.Warn
	case Info:
		return hclog.Info
	case Debug:
		return hclog.Debug
	case Trace:
		return hclog.Trace
	default:
		return hclog.NoLevel
	}
}

func (l *hclogLogger) enabled(level Level) bool {
	return l.level >= level
}

func (l *hclogLogger) Trace(msg string) {
	l.hl.Trace(msg)
}

func (l *hclogLogger) Tracef(format string, args ...interface{}) {
	if l.hl.IsTrace() {
		l.hl.Trace(fmt.Sprintf(format, args...))
	}
}

func (l *hclogLogger) Debug(msg string) {
	l.hl.Debug(msg)
}

func (l *hclogLogger) Debugf(format string, args ...interface{}) {
	if l.hl.IsDebug() {
		l.hl.Debug(fmt.Sprintf(format, args...))
	}
}

func (l *hclogLogger) Info(msg string) {
	l.hl.Info(msg)
}

func (l *hclogLogger) Infof(format string, args ...interface{}) {
	if l.hl.IsInfo() {
		l.hl.Info(fmt.Sprintf(format, args...))
	}
}

func (l *hclogLogger) Warn(msg string) {
	l.hl.Warn(msg)
}

func (l *hclogLogger) Warnf(format string, args ...interface{}) {
	if l.hl.IsWarn() {
		l.hl.Warn(fmt.Sprintf(format, args...))
	}
}

func (l *hclogLogger) Error(msg string) {
	if l.enabled(Error) {
		l.hl.Error(msg)
	}
}

func (l *hclogLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(Error) {
		l.hl.Error(fmt.Sprintf(format, args...))
	}
}

func (l *hclogLogger) Fatal(msg string) {
	if l.enabled(Fatal) {
		l.hl.Error(msg)
	}
	os.Exit(1)
}

func (l *hclogLogger) Fatalf(format string, args ...interface{}) {
	l.Fatal(fmt.Sprintf(format, args...))
}

func (l *hclogLogger) Panic(msg string) {
	if l.enabled(Fatal) {
		l.hl.Error(msg)
	}
	panic(msg)
}

func (l *hclogLogger) Panicf(format string, args ...interface{}) {
	l.Panic(fmt.Sprintf(format, args...))
}

func (l *hclogLogger) Named(name string) Logger {
	return &hclogLogger{hl: l.hl.Named(name), level: l.level, opts: l.opts}
}

func (l *hclogLogger) ResetNamed(name string) Logger {
	return &hclogLogger{hl: l.hl.ResetNamed(name), level: l.level, opts: l.opts}
}

func (l *hclogLogger) WithLevel(level Level) Logger {
	opts := *l.opts
	opts.Name = l.hl.Name()
	opts.Level = toHclogLevel(level)
	return &hclogLogger{hl: hclog.New(&opts), level: level, opts: &opts}
}

func (l *hclogLogger) GetLevel() Level {
	return l.level
}

func (l *hclogLogger) StdLogger(opts *StdLoggerOptions) *log.Logger {
	return l.hl.StandardLogger(toHclogStdOptions(opts))
}

func (l *hclogLogger) StdWriter(opts *StdLoggerOptions) io.Writer {
	return l.hl.StandardWriter(toHclogStdOptions(opts))
}

func toHclogStdOptions(opts *StdLoggerOptions) *hclog.StandardLoggerOptions {
	if opts == nil {
		return &hclog.StandardLoggerOptions{}
	}
	return &hclog.StandardLoggerOptions{
		InferLevels: opts.InferLevels,
		ForceLevel:  toHclogLevel(opts.ForceLevel),
	}
}

// Hclog returns the hashicorp logger behind l, for libraries that accept
// one directly. Loggers not created by this package are wrapped.
func Hclog(l Logger) hclog.Logger {
	if h, ok := l.(*hclogLogger); ok {
		return h.hl
	}
	return hclog.New(&hclog.LoggerOptions{
		Output: l.StdWriter(&StdLoggerOptions{InferLevels: true}),
		Level:  toHclogLevel(l.GetLevel()),
	})
}
