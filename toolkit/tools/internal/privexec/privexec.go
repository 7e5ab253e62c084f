// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package privexec runs the privileged operations needed to modify a mounted system image.
package privexec

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/shell"
)

// Executor performs operations that require elevated privileges.
type Executor interface {
	// ChangeFileMode sets the permissions of path to the octal mode string (e.g. "0666").
	ChangeFileMode(path string, mode string) error

	// RunInChroot runs the program inside rootDir, using rootDir as the root filesystem.
	// A non-zero exit is reported as an *ExitError.
	RunInChroot(ctx context.Context, rootDir string, program string, args ...string) error
}

// ExitError is returned when a program ran but exited with a non-zero code.
type ExitError struct {
	Program  string
	ExitCode int
	Cause    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code (%d)", e.Program, e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// SudoExecutor runs privileged operations through sudo.
type SudoExecutor struct {
	// UseSudo can be disabled when the tool is already running as root.
	UseSudo bool
}

func NewSudoExecutor(useSudo bool) *SudoExecutor {
	return &SudoExecutor{
		UseSudo: useSudo,
	}
}

func (e *SudoExecutor) ChangeFileMode(path string, mode string) error {
	err := e.command(context.Background(), "chmod", mode, path).
		LogLevel(logrus.DebugLevel, logrus.WarnLevel).
		ErrorStderrLines(1).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to change mode of (%s) to (%s):\n%w", path, mode, err)
	}

	return nil
}

func (e *SudoExecutor) RunInChroot(ctx context.Context, rootDir string, program string, args ...string) error {
	chrootArgs := append([]string{rootDir, program}, args...)

	err := e.command(ctx, "chroot", chrootArgs...).
		LogLevel(logrus.DebugLevel, logrus.WarnLevel).
		Execute()
	if err != nil {
		exitCode, exited := shell.ExitCode(err)
		if exited {
			return &ExitError{
				Program:  program,
				ExitCode: exitCode,
				Cause:    err,
			}
		}

		return fmt.Errorf("failed to run (%s) in chroot (%s):\n%w", program, rootDir, err)
	}

	return nil
}

func (e *SudoExecutor) command(ctx context.Context, program string, args ...string) shell.ExecBuilder {
	if e.UseSudo {
		return shell.NewExecBuilder("sudo", append([]string{program}, args...)...).Context(ctx)
	}

	return shell.NewExecBuilder(program, args...).Context(ctx)
}
