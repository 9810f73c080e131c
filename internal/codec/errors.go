// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"errors"
	"fmt"

	xsderrors "github.com/jacoelho/xsd/errors"
)

// Kind classifies a codec failure.
type Kind int

const (
	// KindSchemaLoad: the bundled schema resource is missing or corrupt.
	KindSchemaLoad Kind = iota + 1
	// KindMalformedDocument: the input cannot be read or is not well-formed XML.
	KindMalformedDocument
	// KindValidation: well-formed XML (or an encoded model) violates the schema.
	KindValidation
	// KindWrite: the output destination could not be written.
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindSchemaLoad:
		return "schema_load"
	case KindMalformedDocument:
		return "malformed_document"
	case KindValidation:
		return "validation"
	case KindWrite:
		return "write"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrSchemaLoad matches failures of kind KindSchemaLoad.
	// Use errors.Is(err, ErrSchemaLoad) instead of string matching.
	ErrSchemaLoad = errors.New("schema load error")
	// ErrMalformedDocument matches failures of kind KindMalformedDocument.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrValidation matches failures of kind KindValidation.
	ErrValidation = errors.New("configuration does not comply with the model schema")
	// ErrWrite matches failures of kind KindWrite.
	ErrWrite = errors.New("write error")

	// ErrNilModel is returned by Save when no configuration is given.
	ErrNilModel = errors.New("nil configuration")
)

func (k Kind) sentinel() error {
	switch k {
	case KindSchemaLoad:
		return ErrSchemaLoad
	case KindMalformedDocument:
		return ErrMalformedDocument
	case KindValidation:
		return ErrValidation
	case KindWrite:
		return ErrWrite
	default:
		return nil
	}
}

// Error is a classified codec failure. The underlying diagnostic is kept in Err
// and, for schema violations, in Violations.
type Error struct {
	Kind       Kind
	Op         string
	Path       string
	Violations []xsderrors.Validation
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, msg, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
}

// Unwrap exposes both the kind sentinel and the cause, so errors.Is matches the
// kind while errors.As still reaches the original error.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf reports the kind of a classified codec error.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// Violations returns the schema violations carried by err, if any.
func Violations(err error) []xsderrors.Validation {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Violations
	}
	return nil
}

// malformedCodes are engine codes that mean the document is not well-formed.
var malformedCodes = map[string]struct{}{
	string(xsderrors.ErrXMLParse): {},
	string(xsderrors.ErrNoRoot):   {},
}

// classifyViolations maps an engine error to a codec error. Errors that are not
// violation lists are returned unchanged.
func classifyViolations(op, path string, err error) error {
	violations, ok := xsderrors.AsValidations(err)
	if !ok || len(violations) == 0 {
		return err
	}
	for _, v := range violations {
		if _, bad := malformedCodes[v.Code]; bad {
			if op == opSave {
				// Our own output is always well-formed; anything else is unexpected.
				return err
			}
			return &Error{Kind: KindMalformedDocument, Op: op, Path: path, Violations: violations, Err: err}
		}
	}
	return &Error{Kind: KindValidation, Op: op, Path: path, Violations: violations, Err: err}
}
