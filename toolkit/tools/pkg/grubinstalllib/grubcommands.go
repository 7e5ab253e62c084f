// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package grubinstalllib

import (
	"context"
	"errors"
	"fmt"

	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/privexec"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// UpdateGrubCommand wraps "grub-mkconfig -o /boot/grub/grub.cfg".
	UpdateGrubCommand  = "update-grub"
	GrubInstallCommand = "grub-install"
)

// GrubInstallArgs are passed to grub-install before the target device.
// Only MBR (msdos) partition tables booted through BIOS are supported.
var GrubInstallArgs = []string{"-v", "--no-floppy", "--recheck", "--modules", "biosdisk part_msdos"}

// GenerateGrubConfig regenerates the grub config inside the system.
func GenerateGrubConfig(ctx context.Context, executor privexec.Executor, target *ResolvedTarget) error {
	ctx, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "generate_grub_config")
	defer span.End()

	ReportActionf("Running %s...", UpdateGrubCommand)

	err := executor.RunInChroot(ctx, target.SystemRoot, UpdateGrubCommand)
	if err != nil {
		return commandError(UpdateGrubCommand, err)
	}

	return nil
}

// CallGrubInstall installs grub to the target device's boot sector.
func CallGrubInstall(ctx context.Context, executor privexec.Executor, target *ResolvedTarget) error {
	ctx, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "grub_install")
	defer span.End()

	span.SetAttributes(attribute.String("device", target.Device))

	ReportActionf("Running %s on (%s)...", GrubInstallCommand, target.Device)

	args := append(append([]string(nil), GrubInstallArgs...), target.Device)
	err := executor.RunInChroot(ctx, target.SystemRoot, GrubInstallCommand, args...)
	if err != nil {
		return commandError(GrubInstallCommand, err)
	}

	return nil
}

func commandError(command string, err error) error {
	var exitErr *privexec.ExitError
	if errors.As(err, &exitErr) {
		message := fmt.Sprintf("%s failed (%d)", command, exitErr.ExitCode)
		logger.Log.Error(message)
		return NewGrubInstallErrorWithCause(ErrTypeCommandExecution, message, err)
	}

	message := fmt.Sprintf("failed to run %s", command)
	logger.Log.Errorf("%s: %v", message, err)
	return NewGrubInstallErrorWithCause(ErrTypeCommandExecution, message, err)
}
