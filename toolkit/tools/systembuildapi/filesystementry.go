// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package systembuildapi

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

const (
	RootMountPath = "/"
	BootMountPath = "/boot"
)

// FilesystemEntry is one row of a system's filesystem table.
type FilesystemEntry struct {
	// The mount point inside the system.
	MountPoint string `yaml:"mountPoint" json:"mountPoint,omitempty"`
	// The device backing the filesystem (e.g. /dev/loop0p1).
	Device string `yaml:"device" json:"device"`
	// The filesystem type (e.g. ext4).
	FsType string `yaml:"fsType" json:"fsType,omitempty"`
	// The identifier used for the filesystem in the system's fstab.
	FstabId string `yaml:"fstabId" json:"fstabId,omitempty"`
}

// UnmarshalYAML accepts either the tuple form [mountPoint, device, fsType, fstabId] or a mapping.
func (e *FilesystemEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		if len(value.Content) != 4 {
			return fmt.Errorf("line %d: filesystem entry must have 4 values (mountPoint, device, fsType, fstabId), got %d",
				value.Line, len(value.Content))
		}

		fields := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: filesystem entry values must be strings", item.Line)
			}
			fields = append(fields, item.Value)
		}

		*e = FilesystemEntry{
			MountPoint: fields[0],
			Device:     fields[1],
			FsType:     fields[2],
			FstabId:    fields[3],
		}
		return nil
	}

	err := checkKnownFields(value, "FilesystemEntry", []string{"mountPoint", "device", "fsType", "fstabId"})
	if err != nil {
		return err
	}

	type IntermediateTypeFilesystemEntry FilesystemEntry
	err = value.Decode((*IntermediateTypeFilesystemEntry)(e))
	if err != nil {
		return fmt.Errorf("failed to parse FilesystemEntry struct:\n%w", err)
	}
	return nil
}

// JSONSchemaExtend allows the tuple form alongside the mapping.
func (FilesystemEntry) JSONSchemaExtend(schema *jsonschema.Schema) {
	mapping := *schema
	tupleLength := uint64(4)

	*schema = jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			&mapping,
			{
				Type:        "array",
				Description: "[mountPoint, device, fsType, fstabId]",
				Items:       &jsonschema.Schema{Type: "string"},
				MinItems:    &tupleLength,
				MaxItems:    &tupleLength,
			},
		},
	}
}

func (e *FilesystemEntry) IsValid() error {
	if e.Device == "" {
		return fmt.Errorf("invalid 'device' value: must not be empty")
	}

	if !govalidator.IsUnixFilePath(e.Device) {
		return fmt.Errorf("invalid 'device' value (%s): must be a file path", e.Device)
	}

	if e.MountPoint != "" && !strings.HasPrefix(e.MountPoint, "/") {
		return fmt.Errorf("invalid 'mountPoint' value (%s): must be an absolute path", e.MountPoint)
	}

	return nil
}

// FilesystemInfo holds metadata about a filesystem that the installer passes through.
type FilesystemInfo struct {
	Uuid    string `yaml:"uuid" json:"uuid,omitempty"`
	Label   string `yaml:"label" json:"label,omitempty"`
	Options string `yaml:"options" json:"options,omitempty"`
}

func (i *FilesystemInfo) UnmarshalYAML(value *yaml.Node) error {
	err := checkKnownFields(value, "FilesystemInfo", []string{"uuid", "label", "options"})
	if err != nil {
		return err
	}

	type IntermediateTypeFilesystemInfo FilesystemInfo
	err = value.Decode((*IntermediateTypeFilesystemInfo)(i))
	if err != nil {
		return fmt.Errorf("failed to parse FilesystemInfo struct:\n%w", err)
	}
	return nil
}
