// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy implements the pass's selection policy: the compile-time
// configuration (whitelist/blacklist by name or regex, inst-mode,
// function-pointer rewriting, hook namespacing) that decides whether a
// given callee is eligible for trampoline substitution.
//
// A Policy is assembled once, by the CLI's go/toolexec entry point, and
// persisted to the build work directory as JSON so that every per-package
// toolexec subprocess (each a freshly exec'd process with no memory of the
// parent's flag parsing) can reload the same configuration.
package policy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/util"
)

// Mode restricts instrumentation to callees defined in the compiled unit,
// callees merely declared (imported), or both.
type Mode string

const (
	ModeInternal Mode = "internal"
	ModeExternal Mode = "external"
	ModeBoth     Mode = "both"
)

func (m Mode) valid() bool {
	switch m {
	case ModeInternal, ModeExternal, ModeBoth:
		return true
	default:
		return false
	}
}

// fileName is the policy snapshot's name under the build work directory.
const fileName = "policy.json"

// Policy is the compile-time selection configuration, see Eligible for
// the selection logic it implements.
type Policy struct {
	InstFuncs       []string `json:"inst_funcs,omitempty"`
	InstFuncsRe     []string `json:"inst_funcs_re,omitempty"`
	NoInstFuncs     []string `json:"no_inst_funcs,omitempty"`
	NoInstFuncsRe   []string `json:"no_inst_funcs_re,omitempty"`
	InstMode        Mode     `json:"inst_mode,omitempty"`
	NoInstFptrs     bool     `json:"no_inst_fptrs,omitempty"`
	HookNamespace   string   `json:"hook_namespace,omitempty"`

	instFuncSet     map[string]struct{}   `json:"-"`
	noInstFuncSet   map[string]struct{}   `json:"-"`
	instFuncsRe     []*regexp.Regexp      `json:"-"`
	noInstFuncsRe   []*regexp.Regexp      `json:"-"`
}

// New builds a Policy from its raw fields and compiles its regexes. A
// regex that fails to compile or an unrecognized InstMode is a
// configuration error.
func New(instFuncs, instFuncsRe, noInstFuncs, noInstFuncsRe []string, mode Mode, noFptrs bool, namespace string) (*Policy, error) {
	if mode == "" {
		mode = ModeBoth
	}
	if !mode.valid() {
		return nil, ex.Newf("lltap: unknown inst-mode %q", mode)
	}

	p := &Policy{
		InstFuncs:     instFuncs,
		InstFuncsRe:   instFuncsRe,
		NoInstFuncs:   noInstFuncs,
		NoInstFuncsRe: noInstFuncsRe,
		InstMode:      mode,
		NoInstFptrs:   noFptrs,
		HookNamespace: namespace,
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) compile() error {
	p.instFuncSet = toSet(p.InstFuncs)
	p.noInstFuncSet = toSet(p.NoInstFuncs)

	for _, pat := range p.InstFuncsRe {
		re, err := regexp.Compile(pat)
		if err != nil {
			return ex.Wrapf(err, "lltap: bad inst-funcs-re %q", pat)
		}
		p.instFuncsRe = append(p.instFuncsRe, re)
	}
	for _, pat := range p.NoInstFuncsRe {
		re, err := regexp.Compile(pat)
		if err != nil {
			return ex.Wrapf(err, "lltap: bad no-inst-funcs-re %q", pat)
		}
		p.noInstFuncsRe = append(p.noInstFuncsRe, re)
	}
	if p.InstMode == "" {
		p.InstMode = ModeBoth
	}
	return nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// reservedSubstring is excluded from instrumentation unconditionally: a
// callee whose name contains it is necessarily part of LLTap's own
// runtime or generated machinery, and self-interposition would deadlock
// the Hook Manager's mutex.
const reservedSubstring = "lltap"

// compilerIntrinsicPrefixes names the prefixes of runtime-support and
// init-generated symbols that are never legitimate interposition
// targets: the runtime and reflect packages, and init-generated names.
var compilerIntrinsicPrefixes = []string{
	"runtime.",
	"reflect.",
	"init.",
}

// IsCompilerIntrinsic reports whether name denotes a compiler-synthesized
// pseudo-function rather than a user-visible callee: init and main.init,
// anonymous closures (a name containing ".func" and ending in digits, as
// in pkg.Foo.func1), and any name carrying one of
// compilerIntrinsicPrefixes. Generic instantiation thunks are not
// recognized.
func IsCompilerIntrinsic(name string) bool {
	if name == "init" || name == "main.init" {
		return true
	}
	if strings.Contains(name, ".func") && hasTrailingDigits(name) {
		return true
	}
	for _, prefix := range compilerIntrinsicPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func hasTrailingDigits(name string) bool {
	i := len(name) - 1
	if i < 0 || name[i] < '0' || name[i] > '9' {
		return false
	}
	for ; i >= 0 && name[i] >= '0' && name[i] <= '9'; i-- {
	}
	return true
}

// Eligible implements the selection logic: names containing "lltap" and
// compiler intrinsics are unconditionally excluded; if any whitelist is
// configured, name must match it; blacklist membership overrides a
// whitelist match; name must finally match defined against InstMode.
func (p *Policy) Eligible(name string, defined bool) bool {
	if strings.Contains(name, reservedSubstring) {
		return false
	}
	if IsCompilerIntrinsic(name) {
		return false
	}

	if p.hasWhitelist() && !p.matchesWhitelist(name) {
		return false
	}
	if p.matchesBlacklist(name) {
		return false
	}
	return p.matchesMode(defined)
}

func (p *Policy) hasWhitelist() bool {
	return len(p.instFuncSet) > 0 || len(p.instFuncsRe) > 0
}

func (p *Policy) matchesWhitelist(name string) bool {
	if _, ok := p.instFuncSet[name]; ok {
		return true
	}
	for _, re := range p.instFuncsRe {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (p *Policy) matchesBlacklist(name string) bool {
	if _, ok := p.noInstFuncSet[name]; ok {
		return true
	}
	for _, re := range p.noInstFuncsRe {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (p *Policy) matchesMode(defined bool) bool {
	switch p.InstMode {
	case ModeInternal:
		return defined
	case ModeExternal:
		return !defined
	default:
		return true
	}
}

// HookedName returns the name a callee is registered under in the Hook
// Manager: itself, or namespace_name when HookNamespace is set.
func (p *Policy) HookedName(name string) string {
	if p.HookNamespace == "" {
		return name
	}
	return p.HookNamespace + "_" + name
}

// Save persists p as JSON under the build work directory so that
// per-package toolexec subprocesses, each a fresh process, can reload it
// via Load.
func Save(p *Policy) error {
	path := util.GetBuildTemp(fileName)
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ex.Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ex.Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ex.Wrap(err)
	}
	return nil
}

// Load reads back a Policy previously persisted by Save, recompiling its
// regexes.
func Load() (*Policy, error) {
	path := util.GetBuildTemp(fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ex.Wrap(err)
	}
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ex.Wrap(err)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}
