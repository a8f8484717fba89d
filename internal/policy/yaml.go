// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lltap/lltap/internal/ex"
)

// FileConfig is the optional lltap.yaml selection-policy file: sugar over
// the same fields the `lltap go` CLI flags expose, for projects that
// prefer a checked-in config to a long command line. CLI flags always
// take precedence; a field only applies where its CLI counterpart was
// left at its zero value (see Merge).
type FileConfig struct {
	InstFuncs     []string `yaml:"inst-func"`
	InstFuncsRe   []string `yaml:"inst-funcs-re"`
	NoInstFuncs   []string `yaml:"no-inst-func"`
	NoInstFuncsRe []string `yaml:"no-inst-funcs-re"`
	InstMode      Mode     `yaml:"inst-mode"`
	NoInstFptrs   bool     `yaml:"no-inst-fptrs"`
	HookNamespace string   `yaml:"hook-namespace"`
}

// LoadFile parses an lltap.yaml selection-policy file at path. A missing
// file is not an error: callers should treat it as "no file config" and
// proceed with CLI flags alone.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil //nolint:nilnil // absent file means "no config", not an error
		}
		return nil, ex.Wrapf(err, "reading %s", path)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ex.Wrapf(err, "parsing %s", path)
	}
	return &cfg, nil
}

// Merge layers file on top of flags: every flags field that is already
// non-zero wins; a zero-valued flags field is filled in from file. A nil
// file is a no-op, returning flags unchanged.
func Merge(flags FileConfig, file *FileConfig) FileConfig {
	if file == nil {
		return flags
	}
	merged := flags
	if len(merged.InstFuncs) == 0 {
		merged.InstFuncs = file.InstFuncs
	}
	if len(merged.InstFuncsRe) == 0 {
		merged.InstFuncsRe = file.InstFuncsRe
	}
	if len(merged.NoInstFuncs) == 0 {
		merged.NoInstFuncs = file.NoInstFuncs
	}
	if len(merged.NoInstFuncsRe) == 0 {
		merged.NoInstFuncsRe = file.NoInstFuncsRe
	}
	if merged.InstMode == "" {
		merged.InstMode = file.InstMode
	}
	if !merged.NoInstFptrs {
		merged.NoInstFptrs = file.NoInstFptrs
	}
	if merged.HookNamespace == "" {
		merged.HookNamespace = file.HookNamespace
	}
	return merged
}
