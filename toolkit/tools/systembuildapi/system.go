// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package systembuildapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// System describes a target system prepared by the earlier build steps.
type System struct {
	// Filesystem table, keyed by the mount path.
	Filesystem map[string]FilesystemEntry `yaml:"filesystem" json:"filesystem,omitempty"`
	// Filesystem metadata, keyed by the mount path.
	FilesystemInfo map[string]FilesystemInfo `yaml:"filesystem-info" json:"filesystem-info,omitempty"`
	// Disks that hold the system's filesystems, keyed by disk name.
	Disks map[string]Disk `yaml:"disks" json:"disks,omitempty"`
	// Where the system is mounted. Nil if the system is not mounted.
	MountInstance MountInstance `yaml:"-" json:"mountInstance,omitempty"`
}

type systemYaml struct {
	Filesystem     map[string]FilesystemEntry `yaml:"filesystem"`
	FilesystemInfo map[string]FilesystemInfo  `yaml:"filesystem-info"`
	Disks          map[string]Disk            `yaml:"disks"`
	MountInstance  *HostMountInstance         `yaml:"mountInstance"`
}

func (s *System) UnmarshalYAML(value *yaml.Node) error {
	err := checkKnownFields(value, "System", []string{"filesystem", "filesystem-info", "disks", "mountInstance"})
	if err != nil {
		return err
	}

	var intermediate systemYaml
	err = value.Decode(&intermediate)
	if err != nil {
		return fmt.Errorf("failed to parse System struct:\n%w", err)
	}

	*s = System{
		Filesystem:     intermediate.Filesystem,
		FilesystemInfo: intermediate.FilesystemInfo,
		Disks:          intermediate.Disks,
	}

	// Assigning a nil *HostMountInstance would produce a non-nil interface.
	if intermediate.MountInstance != nil {
		s.MountInstance = intermediate.MountInstance
	}

	return nil
}

func (s System) MarshalYAML() (interface{}, error) {
	intermediate := systemYaml{
		Filesystem:     s.Filesystem,
		FilesystemInfo: s.FilesystemInfo,
		Disks:          s.Disks,
	}

	if s.MountInstance != nil {
		intermediate.MountInstance = &HostMountInstance{
			Location: s.MountInstance.SystemMountLocation(),
		}
	}

	return intermediate, nil
}

// JSONSchemaExtend describes the mount in the form stored in the build state file.
func (System) JSONSchemaExtend(schema *jsonschema.Schema) {
	properties := jsonschema.NewProperties()
	properties.Set("location", &jsonschema.Schema{
		Type:        "string",
		Description: "The host directory where the system's root filesystem is mounted.",
	})

	schema.Properties.Set("mountInstance", &jsonschema.Schema{
		Type:                 "object",
		Properties:           properties,
		Required:             []string{"location"},
		AdditionalProperties: jsonschema.FalseSchema,
	})
}

// IsValid checks that the entries are well formed.
// Whether the system can be made bootable is decided when the install target is resolved.
func (s *System) IsValid() error {
	for _, path := range sortedKeys(s.Filesystem) {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("invalid filesystem path (%s): must be an absolute path", path)
		}

		entry := s.Filesystem[path]
		err := entry.IsValid()
		if err != nil {
			return fmt.Errorf("invalid filesystem (%s):\n%w", path, err)
		}

		if entry.MountPoint != "" && entry.MountPoint != path {
			return fmt.Errorf("invalid filesystem (%s): 'mountPoint' (%s) does not match", path, entry.MountPoint)
		}
	}

	for _, name := range sortedKeys(s.Disks) {
		disk := s.Disks[name]
		err := disk.IsValid()
		if err != nil {
			return fmt.Errorf("invalid disk (%s):\n%w", name, err)
		}
	}

	if hostMount, ok := s.MountInstance.(*HostMountInstance); ok {
		err := hostMount.IsValid()
		if err != nil {
			return fmt.Errorf("invalid mountInstance:\n%w", err)
		}
	}

	return nil
}

// SortedDiskNames returns the disk names in a stable order.
func (s *System) SortedDiskNames() []string {
	return sortedKeys(s.Disks)
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
