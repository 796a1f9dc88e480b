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

// Package log provides the leveled, named logger used across the service.
package log

import (
	"io"
	"log"
	"strings"
	"sync"
)

// Level is the severity threshold of a logger. Higher values log more.
type Level int32

const (
	// NotSet means no level was configured. New falls back to DefaultLevel.
	NotSet Level = iota
	// Off silences the logger.
	Off
	// Fatal is for failures that stop the process, such as a storage
	// backend that cannot be opened.
	Fatal
	// Error is for failed operations the service survives.
	Error
	// Warn is for rejected inputs and throttled clients.
	Warn
	// Info is for lifecycle events: start, shutdown, listening addresses.
	Info
	// Debug is for per request details.
	Debug
	// Trace is for per commitment details such as tree rebuild costs.
	Trace
)

var levelNames = map[Level]string{
	Off:   "off",
	Fatal: "fatal",
	Error: "error",
	Warn:  "warn",
	Info:  "info",
	Debug: "debug",
	Trace: "trace",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// LevelFromString parses a level name, case insensitive. Unknown names
// return NotSet.
func LevelFromString(level string) Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "silent" {
		return Off
	}
	for l, name := range levelNames {
		if name == level {
			return l
		}
	}
	return NotSet
}

// Logger is the leveled logger handed to every component. The formatted
// variants skip formatting when their level is disabled.
type Logger interface {
	Trace(msg string)
	Tracef(format string, args ...interface{})
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})

	// Fatal and Fatalf log at FATAL and exit with status 1.
	Fatal(msg string)
	Fatalf(format string, args ...interface{})

	// Panic and Panicf log at FATAL and panic with the message.
	Panic(msg string)
	Panicf(format string, args ...interface{})

	// Named returns a logger whose name is this logger's name followed by
	// name. ResetNamed replaces the name instead.
	Named(name string) Logger
	ResetNamed(name string) Logger

	// WithLevel returns a copy of the logger with another threshold.
	WithLevel(level Level) Logger
	GetLevel() Level

	// StdLogger and StdWriter adapt the logger for code written against
	// the standard library log package.
	StdLogger(opts *StdLoggerOptions) *log.Logger
	StdWriter(opts *StdLoggerOptions) io.Writer
}

// LoggerOptions can be used to configure a new logger.
type LoggerOptions struct {
	// Name of the subsystem to prefix logs with.
	Name string

	// Level is the threshold for the logger. Any log trace less
	// sever is supressed.
	Level Level

	// Output is the writer implementation where to write logs to.
	// If nil, defaults to DefaultOutput.
	Output io.Writer

	// TimeFormat is the time format to use instead of the default one.
	TimeFormat string

	// IncludeLocation includes file and line information in each log line.
	IncludeLocation bool

	// Mutex is an optional mutex pointer in case Output is shared.
	Mutex *sync.Mutex
}

// StdLoggerOptions can be used to configure a new standard logger.
type StdLoggerOptions struct {
	// Indicate that some minimal parsing should be done on strings to try
	// and detect their level and re-emit them.
	// This supports the strings like [ERROR], [TRACE], [WARN], [INFO],
	// [DEBUG] and strip it off before reapplying it.
	InferLevels bool

	// ForceLevel is used to force all output from the standard logger to be at
	// the specified level. Similar to InferLevels, this will strip any level
	// prefix contained in the logged string before applying the forced level.
	// If set, this override InferLevels.
	ForceLevel Level
}

// New returns a new logger configured with
// the given options.
func New(opts *LoggerOptions) Logger {
	if opts == nil {
		opts = &LoggerOptions{}
	}

	output := opts.Output
	if output == nil {
		output = DefaultOutput
	}

	level := opts.Level
	if level == NotSet {
		level = DefaultLevel
	}

	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}

	return newHclogLogger(opts.Name, level, output, timeFormat, opts.IncludeLocation, opts.Mutex)
}
