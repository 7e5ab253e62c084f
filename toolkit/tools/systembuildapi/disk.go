// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package systembuildapi

import (
	"fmt"

	"github.com/asaskevich/govalidator"
	"gopkg.in/yaml.v3"
)

// Disk is a block device that holds one or more of the system's filesystems.
type Disk struct {
	// The device path of the whole disk (e.g. /dev/loop0).
	Device string `yaml:"device" json:"device"`
	// Whether the disk is an actual block device, as opposed to a placeholder.
	Real bool `yaml:"real" json:"real,omitempty"`
}

func (d *Disk) UnmarshalYAML(value *yaml.Node) error {
	err := checkKnownFields(value, "Disk", []string{"device", "real"})
	if err != nil {
		return err
	}

	type IntermediateTypeDisk Disk
	err = value.Decode((*IntermediateTypeDisk)(d))
	if err != nil {
		return fmt.Errorf("failed to parse Disk struct:\n%w", err)
	}
	return nil
}

func (d *Disk) IsValid() error {
	if d.Device == "" {
		return fmt.Errorf("invalid 'device' value: must not be empty")
	}

	if !govalidator.IsUnixFilePath(d.Device) {
		return fmt.Errorf("invalid 'device' value (%s): must be a file path", d.Device)
	}

	return nil
}
