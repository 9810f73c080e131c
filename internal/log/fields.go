// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService     = "service"
	FieldComponent   = "component"
	FieldOperationID = "operation_id"

	FieldEvent = "event"

	// Codec fields
	FieldOp       = "op"
	FieldPath     = "path"
	FieldKind     = "kind"
	FieldSchema   = "schema"
	FieldBytes    = "bytes"
	FieldDuration = "duration"
)
