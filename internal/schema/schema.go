// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package schema bundles the scan model XSD and builds validation contexts from it.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/jacoelho/xsd"
)

// SchemaName is the logical name of the bundled schema document.
const SchemaName = "model-v1.xsd"

//go:embed model-v1.xsd
var bundled embed.FS

// LoadError reports that the schema resource could not be read or compiled.
// It indicates a packaging defect, not a problem with a document.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load schema %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Validator compiles a schema resource on first use and hands out contexts over it.
// It is safe for concurrent use.
type Validator struct {
	fsys    fs.FS
	name    string
	compile func() (*xsd.Schema, error)
}

// New returns a validator for the schema document name inside fsys.
func New(fsys fs.FS, name string) *Validator {
	v := &Validator{fsys: fsys, name: name}
	v.compile = sync.OnceValues(v.load)
	return v
}

var defaultValidator = sync.OnceValue(func() *Validator {
	return New(bundled, SchemaName)
})

// Default returns the process-wide validator for the bundled schema.
func Default() *Validator {
	return defaultValidator()
}

// Name returns the schema document name.
func (v *Validator) Name() string { return v.name }

// Context returns a validation context. The compiled schema is immutable and
// shared, so the first failure is returned again on every call.
func (v *Validator) Context() (*Context, error) {
	s, err := v.compile()
	if err != nil {
		return nil, err
	}
	return &Context{schema: s}, nil
}

func (v *Validator) load() (*xsd.Schema, error) {
	if v.fsys == nil {
		return nil, &LoadError{Name: v.name, Err: fs.ErrNotExist}
	}
	if _, err := fs.Stat(v.fsys, v.name); err != nil {
		return nil, &LoadError{Name: v.name, Err: err}
	}
	s, err := xsd.LoadWithOptions(v.fsys, v.name, xsd.NewLoadOptions())
	if err != nil {
		return nil, &LoadError{Name: v.name, Err: err}
	}
	return s, nil
}

// Context validates document instances against a compiled schema.
type Context struct {
	schema *xsd.Schema
}

// Validate checks a whole document. Violations are reported as the
// xsd/errors.ValidationList produced by the engine.
func (c *Context) Validate(r io.Reader) error {
	return c.schema.Validate(r)
}

// ValidateBytes is Validate over an in-memory document.
func (c *Context) ValidateBytes(doc []byte) error {
	return c.schema.Validate(bytes.NewReader(doc))
}

// Bytes returns a copy of the bundled schema document.
func Bytes() ([]byte, error) {
	data, err := bundled.ReadFile(SchemaName)
	if err != nil {
		return nil, &LoadError{Name: SchemaName, Err: err}
	}
	return data, nil
}
