// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
)

const (
	// LogDisabledLevel disables logging of a stream.
	LogDisabledLevel logrus.Level = logrus.PanicLevel
)

// ExecBuilder runs an external program, passing its output through to the logger.
type ExecBuilder struct {
	ctx              context.Context
	command          string
	args             []string
	stdoutLogLevel   logrus.Level
	stderrLogLevel   logrus.Level
	errorStderrLines int
}

func NewExecBuilder(command string, args ...string) ExecBuilder {
	return ExecBuilder{
		ctx:            context.Background(),
		command:        command,
		args:           args,
		stdoutLogLevel: logrus.DebugLevel,
		stderrLogLevel: logrus.DebugLevel,
	}
}

func (b ExecBuilder) Context(ctx context.Context) ExecBuilder {
	b.ctx = ctx
	return b
}

// LogLevel sets the log levels used for the program's stdout and stderr lines.
func (b ExecBuilder) LogLevel(stdoutLogLevel logrus.Level, stderrLogLevel logrus.Level) ExecBuilder {
	b.stdoutLogLevel = stdoutLogLevel
	b.stderrLogLevel = stderrLogLevel
	return b
}

// ErrorStderrLines sets how many of the last stderr lines are included in the returned error.
func (b ExecBuilder) ErrorStderrLines(lines int) ExecBuilder {
	b.errorStderrLines = lines
	return b
}

func (b ExecBuilder) Execute() error {
	logger.Log.Debugf("Executing: %s", b)

	cmd := exec.CommandContext(b.ctx, b.command, b.args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe (%s):\n%w", b.command, err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe (%s):\n%w", b.command, err)
	}

	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("failed to start (%s):\n%w", b.command, err)
	}

	stdoutLines := &lineCollector{level: b.stdoutLogLevel}
	stderrLines := &lineCollector{level: b.stderrLogLevel, keepLast: b.errorStderrLines}

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdoutLines.collect(stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		stderrLines.collect(stderrPipe)
	}()

	// All reads must finish before Wait closes the pipes.
	wg.Wait()
	err = cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(stderrLines.last) > 0 {
			return fmt.Errorf("%s failed:\n%s\n%w", b.command, strings.Join(stderrLines.last, "\n"), err)
		}
		return fmt.Errorf("%s failed:\n%w", b.command, err)
	}

	return nil
}

// String returns the command line, for logging.
func (b ExecBuilder) String() string {
	return strings.Join(append([]string{b.command}, b.args...), " ")
}

type lineCollector struct {
	level    logrus.Level
	keepLast int
	last     []string
}

func (c *lineCollector) collect(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		if c.level != LogDisabledLevel {
			logger.Log.Log(c.level, line)
		}

		if c.keepLast > 0 {
			c.last = append(c.last, line)
			if len(c.last) > c.keepLast {
				c.last = c.last[1:]
			}
		}
	}

	// Overlong lines stop the scanner. Keep draining so the program doesn't block.
	_, _ = io.Copy(io.Discard, reader)
}

// ExitCode returns the exit code carried by err, if the program ran and exited non-zero.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
