// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package systembuildapi

import (
	"fmt"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"gopkg.in/yaml.v3"
)

// MountInstance reports where a system is currently mounted on the host.
// It is owned by the step that mounted the system.
type MountInstance interface {
	SystemMountLocation() string
}

// HostMountInstance is a mount recorded in the build state file.
type HostMountInstance struct {
	// The host directory where the system's root filesystem is mounted.
	Location string `yaml:"location" json:"location"`
}

func (m *HostMountInstance) SystemMountLocation() string {
	return m.Location
}

func (m *HostMountInstance) UnmarshalYAML(value *yaml.Node) error {
	err := checkKnownFields(value, "HostMountInstance", []string{"location"})
	if err != nil {
		return err
	}

	type IntermediateTypeHostMountInstance HostMountInstance
	err = value.Decode((*IntermediateTypeHostMountInstance)(m))
	if err != nil {
		return fmt.Errorf("failed to parse HostMountInstance struct:\n%w", err)
	}
	return nil
}

func (m *HostMountInstance) IsValid() error {
	if m.Location == "" {
		return fmt.Errorf("invalid 'location' value: must not be empty")
	}

	if !filepath.IsAbs(m.Location) {
		return fmt.Errorf("invalid 'location' value (%s): must be an absolute path", m.Location)
	}

	return nil
}

// VerifyMounted checks that the location is an active mount point on the host.
func (m *HostMountInstance) VerifyMounted() error {
	mounted, err := mountinfo.Mounted(m.Location)
	if err != nil {
		return fmt.Errorf("failed to check if (%s) is a mount point:\n%w", m.Location, err)
	}

	if !mounted {
		return fmt.Errorf("system mount location (%s) is not a mount point", m.Location)
	}

	return nil
}
