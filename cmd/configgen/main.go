// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// configgen writes starter scan configurations and prints the bundled schema.
//
// Usage:
//
//	configgen -o scan.xml            minimal configuration
//	configgen -o scan.xml -template  configuration using every element type
//	configgen -schema                print model-v1.xsd to stdout
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/psi-fda/scanmodel/internal/codec"
	xglog "github.com/psi-fda/scanmodel/internal/log"
	"github.com/psi-fda/scanmodel/internal/model"
	"github.com/psi-fda/scanmodel/internal/schema"
	"github.com/psi-fda/scanmodel/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("configgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	out := fs.String("o", "", "output path for the generated configuration")
	template := fs.Bool("template", false, "write a configuration that uses every element type")
	printSchema := fs.Bool("schema", false, "print the bundled XML schema and exit")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	}

	xglog.Configure(xglog.Config{Level: *logLevel, Output: stderr, Service: "configgen"})

	if *printSchema {
		data, err := schema.Bytes()
		if err != nil {
			return fail(stderr, err)
		}
		if _, err := stdout.Write(data); err != nil {
			return fail(stderr, err)
		}
		return 0
	}

	if *out == "" {
		_, _ = fmt.Fprintln(stderr, "configgen: -o is required (or use -schema)")
		fs.Usage()
		return 2
	}

	cfg := model.New()
	if *template {
		cfg = model.Template()
	}

	ctx := xglog.ContextWithOperationID(context.Background(), "configgen")
	if err := codec.New().Save(ctx, cfg, *out); err != nil {
		return fail(stderr, err)
	}
	_, _ = fmt.Fprintf(stdout, "wrote %s\n", *out)
	return 0
}

func fail(w io.Writer, err error) int {
	_, _ = fmt.Fprintf(w, "configgen: %v\n", err)
	return 1
}
