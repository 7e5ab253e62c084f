// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package systembuildapi

import (
	"fmt"
)

// BuildState holds the systems recorded by the earlier build steps.
// It is owned by the caller and treated as read-only by the installer.
type BuildState struct {
	Systems map[string]*System `yaml:"systems" json:"systems"`
}

// SystemLookup finds a system by its identifier.
type SystemLookup interface {
	Lookup(systemName string) (*System, bool)
}

// SystemKey returns the tagged key under which the build records a system.
func SystemKey(systemName string) string {
	return fmt.Sprintf("__SystemBuild_%s__", systemName)
}

// Lookup returns the system stored under the tagged key, falling back to the bare name.
func (b *BuildState) Lookup(systemName string) (*System, bool) {
	if b == nil {
		return nil, false
	}

	for _, key := range []string{SystemKey(systemName), systemName} {
		system, ok := b.Systems[key]
		if ok && system != nil {
			return system, true
		}
	}

	return nil, false
}

func (b *BuildState) IsValid() error {
	for _, name := range sortedKeys(b.Systems) {
		system := b.Systems[name]
		if system == nil {
			return fmt.Errorf("invalid system (%s): must not be empty", name)
		}

		err := system.IsValid()
		if err != nil {
			return fmt.Errorf("invalid system (%s):\n%w", name, err)
		}
	}

	return nil
}

// LoadBuildStateFile reads and validates a build state file.
func LoadBuildStateFile(path string) (*BuildState, error) {
	var state BuildState
	err := UnmarshalAndValidateYamlFile(path, &state)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
