// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Tool to install the grub boot loader onto a mounted system image

package main

import (
	"context"
	"maps"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/exekong"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/privexec"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/telemetry"
	"github.com/systembuild/bootloader-tools/toolkit/tools/pkg/grubinstalllib"
	"golang.org/x/sys/unix"
)

const (
	serviceName = "grubinstaller"
)

type GrubInstallerCmd struct {
	StateFile        string           `name:"state-file" help:"Path of the build state file describing the systems." required:""`
	System           string           `name:"system" help:"Identifier of the system to make bootable." required:""`
	Phase            string           `name:"phase" help:"Build phase the install runs in." enum:"build,system_build" default:"build"`
	NoSudo           bool             `name:"no-sudo" help:"Run privileged commands directly instead of through sudo."`
	VerifyMounted    bool             `name:"verify-mounted" help:"Check that the system's mount location is an active mount point."`
	DisableTelemetry bool             `name:"disable-telemetry" help:"Disable telemetry collection of the tool."`
	Version          kong.VersionFlag `name:"version" help:"Print version information and quit."`
	exekong.LogFlags
}

func main() {
	cli := &GrubInstallerCmd{}

	vars := kong.Vars{
		"version": grubinstalllib.ToolVersion,
	}
	maps.Copy(vars, exekong.KongVars)

	_ = kong.Parse(cli,
		kong.Name(serviceName),
		kong.Description("Installs grub onto a mounted system image."),
		vars,
		kong.HelpOptions{
			Compact:   true,
			FlagsLast: true,
		},
		kong.UsageOnError())

	logger.InitBestEffort(cli.LogFlags.AsLoggerFlags())

	err := installGrub(context.Background(), cli)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "grub install failed\n")
		os.Exit(1)
	}

	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "grub install succeeded\n")
}

func installGrub(ctx context.Context, cli *GrubInstallerCmd) error {
	err := telemetry.InitTelemetry(cli.DisableTelemetry, serviceName, grubinstalllib.ToolVersion)
	if err != nil {
		logger.Log.Warnf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownErr := telemetry.ShutdownTelemetry(ctx)
		if shutdownErr != nil {
			logger.Log.Warnf("Failed to shutdown telemetry: %v", shutdownErr)
		}
	}()

	useSudo := !cli.NoSudo && unix.Geteuid() != 0

	logger.Log.Debugf("Running in phase (%s)", cli.Phase)

	result, err := grubinstalllib.InstallGrubWithStateFile(ctx, cli.StateFile, cli.System, grubinstalllib.Options{
		Executor:      privexec.NewSudoExecutor(useSudo),
		VerifyMounted: cli.VerifyMounted,
	})
	if err != nil {
		if grubinstalllib.IsFatal(err) {
			logger.Log.Errorf("Build environment is in an inconsistent state, stopping:\n%v", err)
		}
		return err
	}

	logger.Log.Infof("Grub installed on (%s) for system (%s)", result.Target.Device, cli.System)
	return nil
}
