// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package codec loads and saves scan configurations as schema-validated XML.
//
// Every document accepted by Load has passed validation against the bundled
// model-v1.xsd before it is decoded, and every document written by Save has
// passed the same validation before the target file is touched. Failures are
// classified as *Error with one of four kinds; use errors.Is with ErrSchemaLoad,
// ErrMalformedDocument, ErrValidation or ErrWrite.
package codec

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	xglog "github.com/psi-fda/scanmodel/internal/log"
	"github.com/psi-fda/scanmodel/internal/metrics"
	"github.com/psi-fda/scanmodel/internal/model"
	"github.com/psi-fda/scanmodel/internal/schema"
	"github.com/rs/zerolog"
)

const (
	opLoad = "load"
	opSave = "save"
)

// Codec converts between model.Configuration and XML files.
// It holds no per-call state and is safe for concurrent use.
type Codec struct {
	validator *schema.Validator
	logger    zerolog.Logger
	recorder  metrics.Recorder
}

// Option configures a Codec.
type Option func(*Codec)

// WithValidator replaces the bundled schema validator.
func WithValidator(v *schema.Validator) Option {
	return func(c *Codec) { c.validator = v }
}

// WithLogger sets the logger used for operation events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Codec) { c.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Codec) { c.recorder = r }
}

// New returns a codec validating against the bundled schema.
func New(opts ...Option) *Codec {
	c := &Codec{
		validator: schema.Default(),
		logger:    xglog.WithComponent("codec"),
		recorder:  metrics.Prometheus{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var std = sync.OnceValue(func() *Codec { return New() })

// Load reads and validates the configuration stored at path.
func Load(path string) (*model.Configuration, error) {
	return std().Load(context.Background(), path)
}

// Save validates cfg and writes it to path.
func Save(cfg *model.Configuration, path string) error {
	return std().Save(context.Background(), cfg, path)
}

// Load reads the file at path, validates it against the schema and decodes it.
// ctx only contributes logging fields; the call always runs to completion.
func (c *Codec) Load(ctx context.Context, path string) (cfg *model.Configuration, err error) {
	started := time.Now()
	defer func() { c.observe(ctx, opLoad, path, started, err) }()

	vctx, err := c.validator.Context()
	if err != nil {
		return nil, &Error{Kind: KindSchemaLoad, Op: opLoad, Path: path, Err: err}
	}

	// #nosec G304 -- configuration file paths are supplied by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindMalformedDocument, Op: opLoad, Path: path, Err: err}
	}

	if verr := vctx.ValidateBytes(data); verr != nil {
		return nil, classifyViolations(opLoad, path, verr)
	}

	return decode(data)
}

// Save encodes cfg, validates the document and atomically replaces the file at
// path. Nothing is written unless the document is valid.
func (c *Codec) Save(ctx context.Context, cfg *model.Configuration, path string) (err error) {
	started := time.Now()
	defer func() { c.observe(ctx, opSave, path, started, err) }()

	data, err := c.marshal(cfg, path)
	if err != nil {
		return err
	}
	if werr := writeFile(ctx, path, data); werr != nil {
		return &Error{Kind: KindWrite, Op: opSave, Path: path, Err: werr}
	}
	return nil
}

// Marshal returns the validated document Save would write for cfg.
func (c *Codec) Marshal(cfg *model.Configuration) ([]byte, error) {
	return c.marshal(cfg, "")
}

func (c *Codec) marshal(cfg *model.Configuration, path string) ([]byte, error) {
	if cfg == nil {
		return nil, ErrNilModel
	}

	vctx, err := c.validator.Context()
	if err != nil {
		return nil, &Error{Kind: KindSchemaLoad, Op: opSave, Path: path, Err: err}
	}

	data, err := encode(cfg)
	if err != nil {
		var textErr *invalidTextError
		if errors.As(err, &textErr) {
			return nil, &Error{Kind: KindValidation, Op: opSave, Path: path, Err: err}
		}
		return nil, err
	}

	if verr := vctx.ValidateBytes(data); verr != nil {
		return nil, classifyViolations(opSave, path, verr)
	}
	return data, nil
}

func (c *Codec) observe(ctx context.Context, op, path string, started time.Time, err error) {
	took := time.Since(started)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
		if kind, ok := KindOf(err); ok {
			result = kind.String()
		}
	}
	c.recorder.ObserveOperation(op, result, took)

	logger := xglog.WithContext(ctx, c.logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "codec."+op+"_failed").
			Str(xglog.FieldOp, op).
			Str(xglog.FieldPath, path).
			Str(xglog.FieldKind, result).
			Str(xglog.FieldSchema, c.validator.Name()).
			Dur(xglog.FieldDuration, took).
			Msg("configuration " + op + " failed")
		return
	}
	logger.Debug().
		Str(xglog.FieldEvent, "codec."+op+"_ok").
		Str(xglog.FieldOp, op).
		Str(xglog.FieldPath, path).
		Str(xglog.FieldSchema, c.validator.Name()).
		Dur(xglog.FieldDuration, took).
		Msg("configuration " + op + " completed")
}
