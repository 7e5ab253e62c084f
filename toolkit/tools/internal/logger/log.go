// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Shared logger used by all the system-build tools.

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	LevelsFlag        = "log-level"
	LevelsHelp        = "The minimum log level."
	LevelsPlaceholder = "(panic|fatal|error|warn|info|debug|trace)"

	FileFlag     = "log-file"
	FileFlagHelp = "Path to the log file."

	ColorFlag         = "log-color"
	ColorFlagHelp     = "Color setting for log terminal output."
	ColorsPlaceholder = "(always|auto|never)"

	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"

	defaultStderrLogLevel = logrus.InfoLevel
	defaultFileLogLevel   = logrus.DebugLevel
	logFileMode           = 0o664
)

var (
	// Log is the shared logger.
	Log *logrus.Logger

	stderrHook *writerHook
	fileHook   *writerHook
)

// LogFlags holds the command-line log settings. Any of the fields may be nil.
type LogFlags struct {
	LogColor *string
	LogFile  *string
	LogLevel *string
}

// Levels returns the names of the supported log levels.
func Levels() []string {
	levels := make([]string, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		levels = append(levels, level.String())
	}
	return levels
}

// Colors returns the supported color settings.
func Colors() []string {
	return []string{ColorAlways, ColorAuto, ColorNever}
}

// InitStderrLog initializes the logger to write to stderr only.
func InitStderrLog() {
	initLogger()
	stderrHook = newWriterHook(os.Stderr, defaultStderrLogLevel, newTextFormatter(ColorAuto))
	Log.Hooks.Add(stderrHook)
}

// InitBestEffort initializes the logger from the provided flags.
// Problems with the log file are reported but do not stop the tool.
func InitBestEffort(flags *LogFlags) {
	err := Init(flags)
	if err != nil {
		Log.Warnf("Failed to fully initialize logger:\n%v", err)
	}
}

// Init initializes the logger from the provided flags.
func Init(flags *LogFlags) error {
	color := ColorAuto
	level := ""
	logFile := ""
	if flags != nil {
		color = derefOr(flags.LogColor, ColorAuto)
		level = derefOr(flags.LogLevel, "")
		logFile = derefOr(flags.LogFile, "")
	}

	initLogger()
	stderrHook = newWriterHook(os.Stderr, defaultStderrLogLevel, newTextFormatter(color))
	Log.Hooks.Add(stderrHook)

	if level != "" {
		err := SetStderrLogLevel(level)
		if err != nil {
			return err
		}
	}

	if logFile != "" {
		err := os.MkdirAll(filepath.Dir(logFile), os.ModePerm)
		if err != nil {
			return fmt.Errorf("failed to create log file directory (%s):\n%w", logFile, err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
		if err != nil {
			return fmt.Errorf("failed to open log file (%s):\n%w", logFile, err)
		}

		// The log file always gets debug output. The level flag only applies to stderr.
		fileHook = newWriterHook(file, defaultFileLogLevel, newTextFormatter(ColorNever))
		Log.Hooks.Add(fileHook)
		updateLoggerLevel()
	}

	return nil
}

// SetStderrLogLevel sets the minimum level written to stderr.
func SetStderrLogLevel(level string) error {
	return setHookLevel(stderrHook, level)
}

func setHookLevel(hook *writerHook, level string) error {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level (%s):\n%w", level, err)
	}

	if hook == nil {
		return fmt.Errorf("logger is not initialized")
	}

	hook.setLevel(parsedLevel)
	updateLoggerLevel()
	return nil
}

func initLogger() {
	Log = logrus.New()
	Log.ReportCaller = false
	// Output is handled by the hooks.
	Log.SetOutput(io.Discard)

	stderrHook = nil
	fileHook = nil
	updateLoggerLevel()
}

// The logger's own level must be the most verbose of the hooks' levels.
// Otherwise, entries get filtered out before reaching the hooks.
func updateLoggerLevel() {
	level := defaultStderrLogLevel
	for _, hook := range []*writerHook{stderrHook, fileHook} {
		if hook != nil && hook.level > level {
			level = hook.level
		}
	}

	Log.SetLevel(level)
}

func newTextFormatter(color string) logrus.Formatter {
	formatter := &logrus.TextFormatter{
		FullTimestamp:          true,
		DisableLevelTruncation: true,
	}

	switch strings.ToLower(color) {
	case ColorAlways:
		formatter.ForceColors = true
	case ColorNever:
		formatter.DisableColors = true
	}

	return formatter
}

func derefOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
