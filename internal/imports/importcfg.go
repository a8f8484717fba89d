// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Package imports manages the Go toolchain's importcfg files and AST
// import declarations on behalf of the toolexec compiler interceptor: it
// parses the importcfg the go command hands the compiler, resolves
// package export archives so trampoline-generated code can reference the
// lltap runtime package, and rewrites dst import blocks when a generated
// constructor needs a new import.
package imports

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/lltap/lltap/internal/ex"
)

// Config is the parsed contents of an importcfg (or importcfg.link) file,
// the file the go command passes to the compiler/linker via -importcfg.
type Config struct {
	PackageFile map[string]string
	ImportMap   map[string]string
	Extras      []string
}

// ParseFile parses the importcfg file at filename.
func ParseFile(filename string) (Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Config{}, ex.Wrapf(err, "opening importcfg %s", filename)
	}
	defer file.Close()
	return parse(file)
}

func parse(r io.Reader) (Config, error) {
	var cfg Config
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		directive, data, found := strings.Cut(line, " ")
		if !found {
			cfg.Extras = append(cfg.Extras, line)
			continue
		}

		switch directive {
		case "packagefile":
			importPath, archive, hasEq := strings.Cut(data, "=")
			if !hasEq {
				cfg.Extras = append(cfg.Extras, line)
				continue
			}
			if cfg.PackageFile == nil {
				cfg.PackageFile = make(map[string]string)
			}
			cfg.PackageFile[importPath] = archive

		case "importmap":
			importPath, mappedTo, hasEq := strings.Cut(data, "=")
			if !hasEq {
				cfg.Extras = append(cfg.Extras, line)
				continue
			}
			if cfg.ImportMap == nil {
				cfg.ImportMap = make(map[string]string)
			}
			cfg.ImportMap[importPath] = mappedTo

		default:
			cfg.Extras = append(cfg.Extras, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return cfg, ex.Wrap(err)
	}
	return cfg, nil
}

// WriteFile writes cfg to filename in importcfg format.
func (c *Config) WriteFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return ex.Wrapf(err, "creating importcfg %s", filename)
	}
	defer file.Close()
	return c.write(file)
}

func (c *Config) write(w io.Writer) error {
	importMapKeys := make([]string, 0, len(c.ImportMap))
	for name := range c.ImportMap {
		importMapKeys = append(importMapKeys, name)
	}
	sort.Strings(importMapKeys)
	for _, name := range importMapKeys {
		if _, err := fmt.Fprintf(w, "importmap %s=%s\n", name, c.ImportMap[name]); err != nil {
			return ex.Wrap(err)
		}
	}

	packageFileKeys := make([]string, 0, len(c.PackageFile))
	for name := range c.PackageFile {
		packageFileKeys = append(packageFileKeys, name)
	}
	sort.Strings(packageFileKeys)
	for _, name := range packageFileKeys {
		if _, err := fmt.Fprintf(w, "packagefile %s=%s\n", name, c.PackageFile[name]); err != nil {
			return ex.Wrap(err)
		}
	}

	for _, data := range c.Extras {
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return ex.Wrap(err)
		}
	}
	return nil
}

// HasPackage reports whether importPath already has a resolved export
// archive, i.e. whether the package being compiled already depends on it
// (directly or transitively) and the lltap runtime import Phase.Run
// adds would therefore be free.
func (c *Config) HasPackage(importPath string) bool {
	_, ok := c.PackageFile[importPath]
	return ok
}
