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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func stripTime(s string) string {
	return s[strings.IndexByte(s, ' ')+1:]
}

func TestLogger(t *testing.T) {

	t.Run("uses the configured output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Name:   "test",
			Output: &buf,
			Level:  Info,
		})

		logger.Info("this is a test")

		require.Equal(t, "[INFO]  test: this is a test\n", stripTime(buf.String()))
	})

	t.Run("formats messages", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Output: &buf,
			Level:  Debug,
		})

		logger.Debugf("index %d of %s", 3, "tree")

		require.Equal(t, "[DEBUG] index 3 of tree\n", stripTime(buf.String()))
	})

	t.Run("suppresses messages below the threshold", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Output: &buf,
			Level:  Warn,
		})

		logger.Trace("trace")
		logger.Debugf("debug %d", 1)
		logger.Info("info")
		require.Empty(t, buf.String())

		logger.Warn("warn")
		require.Equal(t, "[WARN]  warn\n", stripTime(buf.String()))
	})

	t.Run("fatal threshold hides errors", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Output: &buf,
			Level:  Fatal,
		})

		logger.Error("error")
		logger.Errorf("error %d", 2)
		require.Empty(t, buf.String())
	})

	t.Run("off hides everything", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Output: &buf,
			Level:  Off,
		})

		logger.Error("error")
		require.Panics(t, func() { logger.Panic("boom") })
		require.Empty(t, buf.String())
	})

	t.Run("panics after logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Output: &buf,
			Level:  Error,
		})

		require.PanicsWithValue(t, "boom 7", func() { logger.Panicf("boom %d", 7) })
		require.Equal(t, "[ERROR] boom 7\n", stripTime(buf.String()))
	})

	t.Run("named loggers nest", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Name:   "commitd",
			Output: &buf,
			Level:  Info,
		})

		logger.Named("store").Named("kv").Info("added")
		require.Equal(t, "[INFO]  commitd.store.kv: added\n", stripTime(buf.String()))

		buf.Reset()
		logger.Named("store").ResetNamed("api").Info("started")
		require.Equal(t, "[INFO]  api: started\n", stripTime(buf.String()))
	})

	t.Run("changes level keeping the name", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Name:   "test",
			Output: &buf,
			Level:  Error,
		}).WithLevel(Debug)

		require.Equal(t, Debug, logger.GetLevel())
		logger.Debug("visible")
		require.Equal(t, "[DEBUG] test: visible\n", stripTime(buf.String()))
	})

	t.Run("standard logger forces the level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&LoggerOptions{
			Output: &buf,
			Level:  Info,
		})

		logger.StdLogger(&StdLoggerOptions{ForceLevel: Warn}).Print("from stdlib")
		require.Equal(t, "[WARN]  from stdlib\n", stripTime(buf.String()))
	})
}

func TestDefaultLogger(t *testing.T) {
	prev := SetDefault(nil)
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(&LoggerOptions{
		Name:   "default",
		Output: &buf,
		Level:  Info,
	}))

	L().Named("test").Info("this is a test")
	require.Equal(t, "[INFO]  default.test: this is a test\n", stripTime(buf.String()))
}

func TestDefaultOutput(t *testing.T) {
	prev := DefaultOutput
	defer func() { DefaultOutput = prev }()

	var buf bytes.Buffer
	DefaultOutput = &buf

	New(&LoggerOptions{Name: "test", Level: Info}).Info("this is a test")
	require.Equal(t, "[INFO]  test: this is a test\n", stripTime(buf.String()))
}

func TestLevelFromString(t *testing.T) {
	testCases := []struct {
		input    string
		expected Level
	}{
		{"info", Info},
		{" DEBUG ", Debug},
		{"silent", Off},
		{"off", Off},
		{"fatal", Fatal},
		{"trace", Trace},
		{"verbose", NotSet},
	}

	for i, c := range testCases {
		require.Equalf(t, c.expected, LevelFromString(c.input), "Wrong level in test case %d", i)
		if c.expected != NotSet {
			require.Equalf(t, c.expected, LevelFromString(c.expected.String()), "Level should round trip in test case %d", i)
		}
	}
}
