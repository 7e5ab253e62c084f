// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package grubinstalllib

import (
	"context"
	"strings"

	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
	"github.com/systembuild/bootloader-tools/toolkit/tools/systembuildapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ResolvedTarget is where the boot loader gets installed.
type ResolvedTarget struct {
	// The whole-disk device that receives the boot loader (e.g. /dev/sda).
	Device string
	// The disk entry for Device.
	DeviceDescriptor systembuildapi.Disk
	// Name of the disk entry in the system's disk table.
	DiskName string
	// The filesystem that selected the disk. Either /boot or /.
	PathToSystemDevice string
	FilesystemEntry    systembuildapi.FilesystemEntry
	FilesystemInfo     systembuildapi.FilesystemInfo
	// The fstab identifier of the root filesystem.
	RootFstabId string
	// The host directory where the system's root filesystem is mounted.
	SystemRoot string
}

// ResolveTarget finds the disk that must receive the boot loader.
// A separate /boot filesystem takes precedence over /.
func ResolveTarget(ctx context.Context, systemName string, system *systembuildapi.System) (*ResolvedTarget, error) {
	_, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "resolve_target")
	defer span.End()

	if system == nil {
		return nil, newConfigurationErrorf("system '%s' undefined", systemName)
	}

	if system.Filesystem == nil {
		return nil, newConfigurationErrorf("system '%s' has no filesystem", systemName)
	}

	if system.MountInstance == nil {
		return nil, newConfigurationErrorf("system '%s' is not mounted", systemName)
	}

	var target *ResolvedTarget

	if bootEntry, ok := system.Filesystem[systembuildapi.BootMountPath]; ok {
		diskName, disk, found := findDiskForDevice(system, bootEntry.Device)
		if !found {
			return nil, newConfigurationErrorf(
				"/boot is defined as its own filesystem on '%s', but no actual disk was found", bootEntry.Device)
		}

		if !disk.Real {
			return nil, newConfigurationErrorf("/boot is not on a real disk (%s) - this is not supported",
				disk.Device)
		}

		target = newResolvedTarget(system, systembuildapi.BootMountPath, diskName, disk)
	}

	rootEntry, ok := system.Filesystem[systembuildapi.RootMountPath]
	if !ok {
		return nil, newConfigurationErrorf("there is no defined root filesystem")
	}

	if target == nil {
		diskName, disk, found := findDiskForDevice(system, rootEntry.Device)
		if !found || !disk.Real {
			return nil, newConfigurationErrorf(
				"the filesystem for system '%s' does not have a real device to target for booting", systemName)
		}

		target = newResolvedTarget(system, systembuildapi.RootMountPath, diskName, disk)
	}

	target.RootFstabId = rootEntry.FstabId
	target.SystemRoot = system.MountInstance.SystemMountLocation()

	span.SetAttributes(
		attribute.String("device", target.Device),
		attribute.String("filesystem", target.PathToSystemDevice),
	)

	logger.Log.Debugf("Boot loader target for system (%s): device (%s) from filesystem (%s), root (%s)",
		systemName, target.Device, target.PathToSystemDevice, target.SystemRoot)

	return target, nil
}

func newResolvedTarget(system *systembuildapi.System, path string, diskName string, disk systembuildapi.Disk,
) *ResolvedTarget {
	return &ResolvedTarget{
		Device:             disk.Device,
		DeviceDescriptor:   disk,
		DiskName:           diskName,
		PathToSystemDevice: path,
		FilesystemEntry:    system.Filesystem[path],
		FilesystemInfo:     system.FilesystemInfo[path],
	}
}

// findDiskForDevice returns the first disk, ordered by name, whose device path is a prefix of device.
func findDiskForDevice(system *systembuildapi.System, device string) (string, systembuildapi.Disk, bool) {
	matches := []string(nil)
	for _, name := range system.SortedDiskNames() {
		if strings.HasPrefix(device, system.Disks[name].Device) {
			matches = append(matches, name)
		}
	}

	if len(matches) == 0 {
		return "", systembuildapi.Disk{}, false
	}

	if len(matches) > 1 {
		logger.Log.Warnf("Multiple disks (%s) match device (%s). Using (%s).", strings.Join(matches, ", "),
			device, matches[0])
	}

	return matches[0], system.Disks[matches[0]], true
}
