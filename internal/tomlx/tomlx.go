// SPDX-License-Identifier: Apache-2.0

// Package tomlx provides utilities for patching TOML configuration files.
//
// Repositories carry a forgeview.toml sidecar whose keys belong to the user
// as much as to us. Schema upgrades that touch these files must preserve
// everything they do not understand, so updates go through a generic map and
// merge recursively instead of round-tripping a typed struct.
package tomlx

import (
	"bytes"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/forgeview/forgeview/pkg/fsx"
	"github.com/joomcode/errorx"
)

// maxConfigSize bounds sidecar config reads; these files are hand-edited and
// small.
const maxConfigSize = 1 << 20

// Load reads a TOML file into a generic map, preserving every key.
func Load(files fsx.Manager, path string) (map[string]any, error) {
	payload, err := files.ReadFile(path, maxConfigSize)
	if err != nil {
		return nil, err
	}

	config := map[string]any{}
	if err := toml.Unmarshal(payload, &config); err != nil {
		return nil, errorx.IllegalFormat.Wrap(err, "failed to parse %s", path)
	}

	return config, nil
}

// GetString navigates a dotted key path and returns the string value at the
// leaf, reporting false when any segment is missing or not a string.
func GetString(config map[string]any, path string) (string, bool) {
	keys := strings.Split(path, ".")
	m := config
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			return "", false
		}
		m = next
	}

	s, ok := m[keys[len(keys)-1]].(string)
	return s, ok
}

// SetNested sets a dotted key path, creating intermediate tables as needed.
// An existing non-table value along the path is replaced.
func SetNested(config map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	m := config

	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}

	m[keys[len(keys)-1]] = value
}

// Merge recursively merges updates into target. Tables merge key by key;
// everything else is assigned, so keys absent from updates survive untouched.
func Merge(target, updates map[string]any) {
	for key, value := range updates {
		if table, ok := value.(map[string]any); ok {
			existing, ok := target[key].(map[string]any)
			if !ok {
				existing = map[string]any{}
				target[key] = existing
			}
			Merge(existing, table)
			continue
		}

		target[key] = value
	}
}

// UpdateFile loads a TOML file, merges the updates into it, and writes the
// result back atomically. Keys not named by updates are preserved.
func UpdateFile(files fsx.Manager, path string, updates map[string]any) error {
	config, err := Load(files, path)
	if err != nil {
		return err
	}

	Merge(config, updates)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return errorx.IllegalState.Wrap(err, "failed to encode %s", path)
	}

	return files.WriteFileAtomic(path, buf.Bytes())
}
