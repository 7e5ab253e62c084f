// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package grubinstalllib

import (
	"errors"
	"fmt"
)

// Error categories.
var (
	// The build state doesn't describe an installable system. Fixed by correcting the earlier build steps.
	ErrTypeConfiguration = errors.New("configuration")
	// The /etc/default/grub file could not be prepared for editing.
	ErrTypeBootConfigPatch = errors.New("boot-config-patch")
	// File permissions could not be restored. The build environment is in an unknown state.
	ErrTypeResourceConsistency = errors.New("resource-consistency")
	// A boot loader command failed.
	ErrTypeCommandExecution = errors.New("command-execution")
)

type GrubInstallError struct {
	Type    error
	Message string
	Cause   error
}

func (e *GrubInstallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s:\n%v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GrubInstallError) Unwrap() error {
	return e.Cause
}

func (e *GrubInstallError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

func NewGrubInstallError(errorType error, message string) *GrubInstallError {
	return &GrubInstallError{
		Type:    errorType,
		Message: message,
	}
}

func NewGrubInstallErrorWithCause(errorType error, message string, cause error) *GrubInstallError {
	return &GrubInstallError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

func newConfigurationErrorf(format string, args ...interface{}) *GrubInstallError {
	return NewGrubInstallError(ErrTypeConfiguration, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err means the build must stop entirely.
func IsFatal(err error) bool {
	return errors.Is(err, ErrTypeResourceConsistency)
}
