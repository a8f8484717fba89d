// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package imports

import (
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/dave/dst"
)

// parseFile extracts all imports from root into path<->alias maps.
func parseFile(root *dst.File) (aliasToPath, pathToAlias map[string]string) {
	aliasToPath = make(map[string]string)
	pathToAlias = make(map[string]string)

	for _, decl := range root.Decls {
		genDecl, ok := decl.(*dst.GenDecl)
		if !ok || genDecl.Tok != token.IMPORT {
			continue
		}
		for _, spec := range genDecl.Specs {
			importSpec, isImport := spec.(*dst.ImportSpec)
			if !isImport || importSpec.Path == nil {
				continue
			}
			importPath := strings.Trim(importSpec.Path.Value, `"`)

			var alias string
			if importSpec.Name != nil {
				alias = importSpec.Name.Name
			} else {
				alias = defaultAlias(importPath)
			}

			aliasToPath[alias] = importPath
			pathToAlias[importPath] = alias
		}
	}
	return aliasToPath, pathToAlias
}

// defaultAlias guesses a package's identifier from its import path, the
// same heuristic the go command itself falls back to: the last path
// element. AddImport uses it to omit an alias equal to this default, and
// parseFile uses it to name imports written without an alias.
func defaultAlias(importPath string) string {
	if i := strings.LastIndexByte(importPath, '/'); i >= 0 {
		return importPath[i+1:]
	}
	return importPath
}

func findImportDecl(root *dst.File) *dst.GenDecl {
	for _, decl := range root.Decls {
		genDecl, ok := decl.(*dst.GenDecl)
		if ok && genDecl.Tok == token.IMPORT {
			return genDecl
		}
	}
	return nil
}

// AliasToPath returns root's import alias -> import path map, the same
// information AddImport/HasImport resolve internally, exposed so callers
// that need to resolve a *dst.SelectorExpr call's package (e.g. deciding
// whether pkgalias.Func is a call into an imported package) don't have to
// re-walk the import block themselves.
func AliasToPath(root *dst.File) map[string]string {
	aliasToPath, _ := parseFile(root)
	return aliasToPath
}

// HasImport reports whether root already imports importPath.
func HasImport(root *dst.File, importPath string) bool {
	_, pathToAlias := parseFile(root)
	_, ok := pathToAlias[importPath]
	return ok
}

// AddImport ensures root imports importPath under alias, inserting a new
// import declaration (or appending to the first existing one) only if it
// is not already present. It is idempotent: calling it twice for the same
// path is a no-op the second time.
func AddImport(root *dst.File, alias, importPath string) {
	_, pathToAlias := parseFile(root)
	if _, exists := pathToAlias[importPath]; exists {
		return
	}

	spec := &dst.ImportSpec{
		Path: &dst.BasicLit{Value: strconv.Quote(importPath)},
	}
	if alias != "" && alias != defaultAlias(importPath) {
		spec.Name = dst.NewIdent(alias)
	}

	if decl := findImportDecl(root); decl != nil {
		decl.Specs = append(decl.Specs, spec)
		return
	}

	newDecl := &dst.GenDecl{
		Tok:   token.IMPORT,
		Specs: []dst.Spec{spec},
	}
	root.Decls = append([]dst.Decl{newDecl}, root.Decls...)
}

// CollectPaths returns the sorted set of import paths present in root.
func CollectPaths(root *dst.File) []string {
	_, pathToAlias := parseFile(root)
	paths := make([]string, 0, len(pathToAlias))
	for path := range pathToAlias {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
