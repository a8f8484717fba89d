// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Package astutil wraps github.com/dave/dst parsing and printing, the same
// decorated-AST library the pass uses to mutate Go source while preserving
// comments and formatting.
package astutil

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"

	"github.com/lltap/lltap/internal/ex"
)

// Parser parses one or more files (or source snippets) against a shared
// token.FileSet, the unit dst requires to preserve accurate positions.
type Parser struct {
	fset *token.FileSet
	dec  *decorator.Decorator
}

func NewParser() *Parser {
	return &Parser{fset: token.NewFileSet()}
}

// Parse parses the file at filePath into a decorated AST.
func (p *Parser) Parse(filePath string, mode parser.Mode) (*dst.File, error) {
	name := filepath.Base(filePath)
	file, err := os.Open(filePath)
	if err != nil {
		return nil, ex.Wrapf(err, "opening file %s", filePath)
	}
	defer file.Close()

	astFile, err := parser.ParseFile(p.fset, name, file, mode)
	if err != nil {
		return nil, ex.Wrapf(err, "parsing file %s", filePath)
	}
	p.dec = decorator.NewDecorator(p.fset)
	dstFile, err := p.dec.DecorateFile(astFile)
	if err != nil {
		return nil, ex.Wrapf(err, "decorating file %s", filePath)
	}
	return dstFile, nil
}

// ParseSource parses a complete, self-contained source snippet (used by
// ParseTypeExpr and by tests that build sample files from strings).
func (p *Parser) ParseSource(source string) (*dst.File, error) {
	if source == "" {
		return nil, ex.New("empty source")
	}
	p.dec = decorator.NewDecorator(p.fset)
	root, err := p.dec.Parse(source)
	if err != nil {
		return nil, ex.Wrap(err)
	}
	return root, nil
}

// WriteFile restores root to Go source and writes it to filePath.
func WriteFile(filePath string, root *dst.File) error {
	file, err := os.Create(filePath)
	if err != nil {
		return ex.Wrapf(err, "creating file %s", filePath)
	}
	defer file.Close()

	r := decorator.NewRestorer()
	if err := r.Fprint(file, root); err != nil {
		return ex.Wrapf(err, "writing file %s", filePath)
	}
	return nil
}

// PrintFile renders root back to Go source as a string, the in-memory
// counterpart of WriteFile used by tests that compare generated source
// literally instead of round-tripping through disk.
func PrintFile(root *dst.File) (string, error) {
	var buf bytes.Buffer
	r := decorator.NewRestorer()
	if err := r.Fprint(&buf, root); err != nil {
		return "", ex.Wrap(err)
	}
	return buf.String(), nil
}

// ParseFile parses filePath with comments retained; the mode most callers
// want.
func ParseFile(filePath string) (*dst.File, error) {
	return NewParser().Parse(filePath, parser.ParseComments)
}

// ParseTypeExpr parses typeStr (e.g. "int", "*bytes.Buffer", "map[string]int")
// as a standalone dst type expression, by round-tripping it through a
// throwaway `var` declaration, parsed with ParseSource, and pulling the
// declared type back out, rather than a bespoke type-expression parser.
func ParseTypeExpr(typeStr string) (dst.Expr, error) {
	src := "package lltap_typeexpr\n\nvar __lltap_x " + typeStr + "\n"
	root, err := NewParser().ParseSource(src)
	if err != nil {
		return nil, ex.Wrapf(err, "parsing type expression %q", typeStr)
	}
	for _, decl := range root.Decls {
		genDecl, ok := decl.(*dst.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range genDecl.Specs {
			if valueSpec, ok := spec.(*dst.ValueSpec); ok && valueSpec.Type != nil {
				return valueSpec.Type, nil
			}
		}
	}
	return nil, ex.Newf("lltap: no type declaration found parsing %q", typeStr)
}
