// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package systembuildapi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const web01StateYaml = `
systems:
  __SystemBuild_web01__:
    disks:
      sda:
        device: /dev/sda
        real: true
    filesystem:
      /: ["/", "/dev/sda1", "ext4", "id1"]
      /boot:
        mountPoint: /boot
        device: /dev/sda2
        fsType: ext2
        fstabId: id2
    filesystem-info:
      /:
        uuid: 0b8f3a2c
    mountInstance:
      location: /mnt/web01
`

func TestBuildStateUnmarshalTupleAndMapping(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(web01StateYaml), &state)
	require.NoError(t, err)

	system, ok := state.Lookup("web01")
	require.True(t, ok)

	assert.Equal(t, FilesystemEntry{MountPoint: "/", Device: "/dev/sda1", FsType: "ext4", FstabId: "id1"},
		system.Filesystem["/"])
	assert.Equal(t, FilesystemEntry{MountPoint: "/boot", Device: "/dev/sda2", FsType: "ext2", FstabId: "id2"},
		system.Filesystem["/boot"])
	assert.Equal(t, Disk{Device: "/dev/sda", Real: true}, system.Disks["sda"])
	assert.Equal(t, "0b8f3a2c", system.FilesystemInfo["/"].Uuid)

	require.NotNil(t, system.MountInstance)
	assert.Equal(t, "/mnt/web01", system.MountInstance.SystemMountLocation())
}

func TestBuildStateLookupBareName(t *testing.T) {
	state := BuildState{
		Systems: map[string]*System{
			"web02": {},
		},
	}

	_, ok := state.Lookup("web02")
	assert.True(t, ok)

	_, ok = state.Lookup("web03")
	assert.False(t, ok)
}

func TestBuildStateLookupPrefersTaggedKey(t *testing.T) {
	tagged := &System{Disks: map[string]Disk{"sda": {Device: "/dev/sda"}}}
	bare := &System{}
	state := BuildState{
		Systems: map[string]*System{
			SystemKey("web01"): tagged,
			"web01":            bare,
		},
	}

	system, ok := state.Lookup("web01")
	require.True(t, ok)
	assert.Same(t, tagged, system)
}

func TestBuildStateLookupNil(t *testing.T) {
	var state *BuildState
	_, ok := state.Lookup("web01")
	assert.False(t, ok)
}

func TestSystemKey(t *testing.T) {
	assert.Equal(t, "__SystemBuild_web01__", SystemKey("web01"))
}

func TestSystemUnmarshalNotMounted(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(`
systems:
  web01:
    filesystem:
      /: ["/", "/dev/sda1", "ext4", "id1"]
`), &state)
	require.NoError(t, err)

	system, ok := state.Lookup("web01")
	require.True(t, ok)
	assert.Nil(t, system.MountInstance)
	assert.Nil(t, system.Disks)
}

func TestSystemUnmarshalUnknownField(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(`
systems:
  web01:
    partitions: {}
`), &state)
	assert.ErrorContains(t, err, "field partitions not found in type System")
}

func TestFilesystemEntryUnmarshalWrongTupleLength(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(`
systems:
  web01:
    filesystem:
      /: ["/", "/dev/sda1", "ext4"]
`), &state)
	assert.ErrorContains(t, err, "filesystem entry must have 4 values")
}

func TestFilesystemEntryUnmarshalUnknownField(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(`
systems:
  web01:
    filesystem:
      /:
        device: /dev/sda1
        label: root
`), &state)
	assert.ErrorContains(t, err, "field label not found in type FilesystemEntry")
}

func TestDiskUnmarshalUnknownField(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(`
systems:
  web01:
    disks:
      sda:
        device: /dev/sda
        reel: true
`), &state)
	assert.ErrorContains(t, err, "field reel not found in type Disk")
}

func TestHostMountInstanceUnmarshalUnknownField(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(`
systems:
  web01:
    mountInstance:
      location: /mnt/web01
      locaton: /x
`), &state)
	assert.ErrorContains(t, err, "field locaton not found in type HostMountInstance")
}

func TestFilesystemInfoUnmarshalUnknownField(t *testing.T) {
	var state BuildState
	err := UnmarshalAndValidateYaml([]byte(`
systems:
  web01:
    filesystem-info:
      /:
        uuid: 0b8f3a2c
        partuuid: 1234
`), &state)
	assert.ErrorContains(t, err, "field partuuid not found in type FilesystemInfo")
}

func TestSystemIsValidRelativeFilesystemPath(t *testing.T) {
	system := System{
		Filesystem: map[string]FilesystemEntry{
			"boot": {Device: "/dev/sda1"},
		},
	}

	err := system.IsValid()
	assert.ErrorContains(t, err, "invalid filesystem path (boot): must be an absolute path")
}

func TestSystemIsValidEmptyDevice(t *testing.T) {
	system := System{
		Filesystem: map[string]FilesystemEntry{
			"/": {MountPoint: "/"},
		},
	}

	err := system.IsValid()
	assert.ErrorContains(t, err, "invalid filesystem (/)")
	assert.ErrorContains(t, err, "invalid 'device' value: must not be empty")
}

func TestSystemIsValidMountPointMismatch(t *testing.T) {
	system := System{
		Filesystem: map[string]FilesystemEntry{
			"/": {MountPoint: "/boot", Device: "/dev/sda1"},
		},
	}

	err := system.IsValid()
	assert.ErrorContains(t, err, "'mountPoint' (/boot) does not match")
}

func TestSystemIsValidDiskDevice(t *testing.T) {
	system := System{
		Disks: map[string]Disk{
			"sda": {Device: ""},
		},
	}

	err := system.IsValid()
	assert.ErrorContains(t, err, "invalid disk (sda)")
}

func TestSystemIsValidRelativeMountLocation(t *testing.T) {
	system := System{
		MountInstance: &HostMountInstance{Location: "mnt/web01"},
	}

	err := system.IsValid()
	assert.ErrorContains(t, err, "must be an absolute path")
}

func TestSystemIsValidDoesNotRequireRoot(t *testing.T) {
	// Missing filesystems are reported when the install target is resolved.
	system := System{}
	assert.NoError(t, system.IsValid())
}

func TestBuildStateIsValidNilSystem(t *testing.T) {
	state := BuildState{
		Systems: map[string]*System{"web01": nil},
	}

	err := state.IsValid()
	assert.ErrorContains(t, err, "invalid system (web01): must not be empty")
}

func TestSystemMarshalRoundTripKeepsMountInstance(t *testing.T) {
	var state BuildState
	require.NoError(t, UnmarshalAndValidateYaml([]byte(web01StateYaml), &state))

	yamlString, err := MarshalYaml(&state)
	require.NoError(t, err)
	assert.Contains(t, yamlString, "location: /mnt/web01")

	var reloaded BuildState
	require.NoError(t, UnmarshalAndValidateYaml([]byte(yamlString), &reloaded))
	system, ok := reloaded.Lookup("web01")
	require.True(t, ok)
	assert.Equal(t, "/mnt/web01", system.MountInstance.SystemMountLocation())
}

func TestLoadBuildStateFile(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(stateFile, []byte(web01StateYaml), 0o644))

	state, err := LoadBuildStateFile(stateFile)
	require.NoError(t, err)

	_, ok := state.Lookup("web01")
	assert.True(t, ok)
}

func TestLoadBuildStateFileMissing(t *testing.T) {
	_, err := LoadBuildStateFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHostMountInstanceVerifyMountedNotMountPoint(t *testing.T) {
	mount := HostMountInstance{Location: t.TempDir()}
	err := mount.VerifyMounted()
	assert.ErrorContains(t, err, "is not a mount point")
}
