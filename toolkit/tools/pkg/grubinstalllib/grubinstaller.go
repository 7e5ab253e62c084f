// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package grubinstalllib

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/privexec"
	"github.com/systembuild/bootloader-tools/toolkit/tools/systembuildapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	OtelTracerName = "grubinstalllib"
)

var ToolVersion = ""

type InstallState int

const (
	StateInit InstallState = iota
	StateResolved
	StateConfigPatched
	StateConfigGenerated
	StateLoaderInstalled
	StateFailed
)

func (s InstallState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateResolved:
		return "resolved"
	case StateConfigPatched:
		return "config-patched"
	case StateConfigGenerated:
		return "config-generated"
	case StateLoaderInstalled:
		return "loader-installed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("InstallState(%d)", int(s))
	}
}

type Options struct {
	// Runs the privileged operations. Defaults to sudo.
	Executor privexec.Executor
	// Receives the pass/fail marker. Defaults to the log.
	Reporter StatusReporter
	// Step name used in the pass/fail marker.
	StepName string
	// Check that the system's mount location is an active mount point.
	VerifyMounted bool
	// Called before the boot loader is configured.
	Prepare func()
	// Called after Prepare, whether or not the install succeeded.
	Cleanup func()
}

// InstallResult records how far an install got.
type InstallResult struct {
	InstallId string
	State     InstallState
	// The state the install was in when it failed.
	FailedIn InstallState
	Target   *ResolvedTarget
}

func (r *InstallResult) Succeeded() bool {
	return r.State == StateLoaderInstalled
}

type mountVerifier interface {
	VerifyMounted() error
}

// InstallGrubWithStateFile installs grub onto the system recorded in a build state file.
func InstallGrubWithStateFile(ctx context.Context, stateFile string, systemName string, options Options,
) (*InstallResult, error) {
	state, err := systembuildapi.LoadBuildStateFile(stateFile)
	if err != nil {
		logger.Log.Errorf("Failed to load build state (%s):\n%v", stateFile, err)
		reporter(options).Failed(stepName(options))
		result := &InstallResult{State: StateFailed, FailedIn: StateInit}
		return result, NewGrubInstallErrorWithCause(ErrTypeConfiguration, "failed to load build state", err)
	}

	return InstallGrub(ctx, state, systemName, options)
}

// InstallGrub makes the mounted system bootable by installing grub onto the disk holding its /boot (or /)
// filesystem.
//
// The returned error is nil only if grub was installed. Errors that satisfy IsFatal mean the build
// environment was left in an inconsistent state and the build must stop.
func InstallGrub(ctx context.Context, systems systembuildapi.SystemLookup, systemName string, options Options,
) (*InstallResult, error) {
	result := &InstallResult{
		InstallId: uuid.NewString(),
		State:     StateInit,
	}

	ctx, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "install_grub")
	defer span.End()

	span.SetAttributes(
		attribute.String("install.id", result.InstallId),
		attribute.String("system", systemName),
	)

	log := logger.Log.WithFields(logrus.Fields{
		"installId": result.InstallId,
		"system":    systemName,
	})

	executor := options.Executor
	if executor == nil {
		executor = privexec.NewSudoExecutor(true)
	}

	fail := func(err error) (*InstallResult, error) {
		log.Errorf("Grub install failed in state (%s):\n%v", result.State, err)
		result.FailedIn = result.State
		result.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		reporter(options).Failed(stepName(options))
		return result, err
	}

	log.Infof("Installing grub")

	system, found := systems.Lookup(systemName)
	if !found {
		return fail(newConfigurationErrorf("system '%s' undefined", systemName))
	}

	logSystem(log, systemName, system)

	target, err := ResolveTarget(ctx, systemName, system)
	if err != nil {
		return fail(err)
	}

	if options.VerifyMounted {
		verifier, ok := system.MountInstance.(mountVerifier)
		if ok {
			err = verifier.VerifyMounted()
			if err != nil {
				return fail(NewGrubInstallErrorWithCause(ErrTypeConfiguration,
					fmt.Sprintf("system '%s' is not mounted", systemName), err))
			}
		}
	}

	result.Target = target
	result.State = StateResolved
	span.SetAttributes(attribute.String("device", target.Device))

	if options.Prepare != nil {
		options.Prepare()
	}
	defer func() {
		if options.Cleanup != nil {
			options.Cleanup()
		}
	}()

	err = PatchDefaultGrub(ctx, executor, target.SystemRoot)
	if err != nil {
		if IsFatal(err) {
			return fail(err)
		}

		// The boot loader can still be installed with the unmodified defaults.
		log.Warnf("Skipping serial console configuration:\n%v", err)
	}

	result.State = StateConfigPatched

	err = GenerateGrubConfig(ctx, executor, target)
	if err != nil {
		return fail(err)
	}

	result.State = StateConfigGenerated

	err = CallGrubInstall(ctx, executor, target)
	if err != nil {
		return fail(err)
	}

	result.State = StateLoaderInstalled

	log.Infof("Installed grub on (%s)", target.Device)
	reporter(options).Passed(stepName(options))

	return result, nil
}

func logSystem(log *logrus.Entry, systemName string, system *systembuildapi.System) {
	if !log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	systemYaml, err := systembuildapi.MarshalYaml(system)
	if err != nil {
		log.Debugf("Failed to format system (%s): %v", systemName, err)
		return
	}

	log.Debugf("System (%s):\n%s", systemName, systemYaml)
}

func reporter(options Options) StatusReporter {
	if options.Reporter == nil {
		return LogStatusReporter{}
	}
	return options.Reporter
}

func stepName(options Options) string {
	if options.StepName == "" {
		return DefaultStepName
	}
	return options.StepName
}
