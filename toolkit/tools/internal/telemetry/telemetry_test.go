// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
)

func TestMain(m *testing.M) {
	logger.InitStderrLog()
	os.Exit(m.Run())
}

func TestGetDistroAndVersion(t *testing.T) {
	osReleasePath := filepath.Join(t.TempDir(), "os-release")
	content := `NAME="Ubuntu"
VERSION="22.04.4 LTS (Jammy Jellyfish)"
ID=ubuntu
ID_LIKE=debian
`
	require.NoError(t, os.WriteFile(osReleasePath, []byte(content), 0o644))

	distro, version := GetDistroAndVersion(osReleasePath)
	assert.Equal(t, "Ubuntu", distro)
	assert.Equal(t, "22.04.4 LTS (Jammy Jellyfish)", version)
}

func TestGetDistroAndVersionMissingFields(t *testing.T) {
	osReleasePath := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(osReleasePath, []byte("ID=debian\n"), 0o644))

	distro, version := GetDistroAndVersion(osReleasePath)
	assert.Equal(t, "Unknown Distro", distro)
	assert.Equal(t, "Unknown Version", version)
}

func TestGetDistroAndVersionMissingFile(t *testing.T) {
	distro, version := GetDistroAndVersion(filepath.Join(t.TempDir(), "os-release"))
	assert.Equal(t, "Unknown Distro", distro)
	assert.Equal(t, "Unknown Version", version)
}

func TestInitTelemetryDisabled(t *testing.T) {
	err := InitTelemetry(true, "grubinstaller", "test")
	require.NoError(t, err)
	assert.NoError(t, ShutdownTelemetry(context.Background()))
}

func TestInitTelemetryNoEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	err := InitTelemetry(false, "grubinstaller", "test")
	require.NoError(t, err)
	assert.NoError(t, ShutdownTelemetry(context.Background()))
}
