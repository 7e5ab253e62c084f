// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package grubinstalllib

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/privexec"
	"github.com/systembuild/bootloader-tools/toolkit/tools/systembuildapi"
)

type chrootCall struct {
	RootDir string
	Program string
	Args    []string
}

// fakeExecutor applies file mode changes directly and records chroot invocations without running them.
type fakeExecutor struct {
	modeChanges []string
	chrootCalls []chrootCall

	failElevate bool
	failRestore bool
	// Called after the file was made writable.
	onElevate   func(path string)
	exitCodes   map[string]int
	runErrors   map[string]error
}

func (e *fakeExecutor) ChangeFileMode(path string, mode string) error {
	e.modeChanges = append(e.modeChanges, mode)

	if mode == writableFileMode && e.failElevate {
		return fmt.Errorf("sudo: a password is required")
	}

	if mode != writableFileMode && e.failRestore {
		return fmt.Errorf("chmod: changing permissions of '%s': Read-only file system", path)
	}

	parsedMode, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return err
	}

	err = os.Chmod(path, os.FileMode(parsedMode))
	if err != nil {
		return err
	}

	if mode == writableFileMode && e.onElevate != nil {
		e.onElevate(path)
	}

	return nil
}

func (e *fakeExecutor) RunInChroot(ctx context.Context, rootDir string, program string, args ...string) error {
	e.chrootCalls = append(e.chrootCalls, chrootCall{
		RootDir: rootDir,
		Program: program,
		Args:    append([]string(nil), args...),
	})

	if err, ok := e.runErrors[program]; ok {
		return err
	}

	if exitCode := e.exitCodes[program]; exitCode != 0 {
		return &privexec.ExitError{
			Program:  program,
			ExitCode: exitCode,
			Cause:    &exec.ExitError{},
		}
	}

	return nil
}

func (e *fakeExecutor) programs() []string {
	programs := []string(nil)
	for _, call := range e.chrootCalls {
		programs = append(programs, call.Program)
	}
	return programs
}

type recordingReporter struct {
	passed []string
	failed []string
}

func (r *recordingReporter) Passed(step string) {
	r.passed = append(r.passed, step)
}

func (r *recordingReporter) Failed(step string) {
	r.failed = append(r.failed, step)
}

// replaceWithDirectory makes reading the file fail once it has been made writable.
func replaceWithDirectory(t *testing.T) func(path string) {
	return func(path string) {
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.Mkdir(path, 0o755))
	}
}

const testDefaultGrubContent = `GRUB_DEFAULT=0
GRUB_TIMEOUT=5
GRUB_DISTRIBUTOR=` + "`lsb_release -i -s 2> /dev/null || echo Debian`" + `
GRUB_CMDLINE_LINUX_DEFAULT="quiet"
GRUB_CMDLINE_LINUX="net.ifnames=0"
`

// createSystemRoot creates a fake mounted system with a /etc/default/grub file.
func createSystemRoot(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()

	systemRoot := t.TempDir()
	grubDefPath := filepath.Join(systemRoot, GrubDefFile)

	require.NoError(t, os.MkdirAll(filepath.Dir(grubDefPath), 0o755))
	require.NoError(t, os.WriteFile(grubDefPath, []byte(content), mode))
	require.NoError(t, os.Chmod(grubDefPath, mode))

	return systemRoot
}

func newWeb01System(systemRoot string) *systembuildapi.System {
	return &systembuildapi.System{
		Disks: map[string]systembuildapi.Disk{
			"sda": {Device: "/dev/sda", Real: true},
		},
		Filesystem: map[string]systembuildapi.FilesystemEntry{
			"/": {MountPoint: "/", Device: "/dev/sda1", FsType: "ext4", FstabId: "id1"},
		},
		MountInstance: &systembuildapi.HostMountInstance{Location: systemRoot},
	}
}

func newBuildState(systemName string, system *systembuildapi.System) *systembuildapi.BuildState {
	return &systembuildapi.BuildState{
		Systems: map[string]*systembuildapi.System{
			systembuildapi.SystemKey(systemName): system,
		},
	}
}

func readFileMode(t *testing.T, path string) os.FileMode {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Mode().Perm()
}

func readGrubDefFile(t *testing.T, systemRoot string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(systemRoot, GrubDefFile))
	require.NoError(t, err)
	return string(content)
}
