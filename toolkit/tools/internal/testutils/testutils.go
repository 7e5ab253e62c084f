// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/file"
	"golang.org/x/sys/unix"
)

// CheckSkipForChrootRequirements skips the test unless it can create a chroot.
func CheckSkipForChrootRequirements(t *testing.T) {
	if unix.Geteuid() != 0 {
		t.Skip("Test must be run as root because it uses a chroot")
	}

	chrootExists, err := file.CommandExists("chroot")
	assert.NoError(t, err)
	if !chrootExists {
		t.Skip("The 'chroot' command is not available")
	}
}

// CheckSkipForCommand skips the test if the program isn't in PATH.
func CheckSkipForCommand(t *testing.T, name string) {
	exists, err := file.CommandExists(name)
	assert.NoError(t, err)
	if !exists {
		t.Skipf("The '%s' command is not available", name)
	}
}

// WriteFile writes content under dir, creating the parent directories.
func WriteFile(t *testing.T, dir string, relPath string, content string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}
