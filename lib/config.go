// config - optional per-run defaults loaded from .cvssuckrc.yaml.
//
// Grounded on kfsone-svn-go's rules.go: a small struct decoded by
// gopkg.in/yaml.v3, defaulted before the file is read so a missing or
// empty file is not an error, with CLI flags applied on top afterward.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// RunDefaults holds per-run defaults that CLI flags may override. It is
// the decoded shape of an optional .cvssuckrc.yaml, not the final resolved
// configuration for a run (that is main's runConfig).
type RunDefaults struct {
	OutputDir    string   `yaml:"output-dir,omitempty"`
	LockDir      string   `yaml:"lock-dir,omitempty"`
	BreadthFirst bool     `yaml:"breadth-first,omitempty"`
	Debug        []string `yaml:"debug,omitempty"`
	Introduce11  bool     `yaml:"introduce-1.1,omitempty"`
}

// LoadRunDefaults looks for .cvssuckrc.yaml first in dir (typically the
// working directory) and then in the user's home directory, returning the
// first one found decoded, or zero-valued RunDefaults if neither exists.
// A malformed file that does exist is reported as an error.
func LoadRunDefaults(dir string) (RunDefaults, error) {
	var defaults RunDefaults
	for _, candidate := range candidatePaths(dir) {
		data, err := os.ReadFile(candidate)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return defaults, err
		}
		if err := yaml.Unmarshal(data, &defaults); err != nil {
			return defaults, err
		}
		return defaults, nil
	}
	return defaults, nil
}

func candidatePaths(dir string) []string {
	const name = ".cvssuckrc.yaml"
	var paths []string
	if dir != "" {
		paths = append(paths, filepath.Join(dir, name))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" && home != dir {
		paths = append(paths, filepath.Join(home, name))
	}
	return paths
}

// DebugMask resolves the defaults' debug token list against the closed
// set recognized by ParseDebugTags.
func (d RunDefaults) DebugMask() (uint, error) {
	mask := uint(0)
	for _, tok := range d.Debug {
		m, err := ParseDebugTags(tok)
		if err != nil {
			return 0, err
		}
		mask |= m
	}
	return mask, nil
}
