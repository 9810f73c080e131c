// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// validate is a CLI tool to validate scan configuration XML files against the
// bundled model schema.
//
// Usage:
//
//	validate -f scan.xml
//	validate --file scan.xml -dump yaml
//	validate -f scan.xml -watch        revalidate on every change until interrupted
//	validate -f scan.xml -metrics      append codec metrics in Prometheus text format
//
// Exit codes:
//   - 0: Configuration is valid
//   - 1: Configuration is invalid (malformed, schema violation or schema load error)
//   - 2: Usage error (missing required flag)
//
// In watch mode the exit code is 0 once interrupted, or 1 if the watcher
// cannot start.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/psi-fda/scanmodel/internal/codec"
	xglog "github.com/psi-fda/scanmodel/internal/log"
	"github.com/psi-fda/scanmodel/internal/metrics"
	"github.com/psi-fda/scanmodel/internal/model"
	"github.com/psi-fda/scanmodel/internal/reload"
	"github.com/psi-fda/scanmodel/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runContext(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(args []string, stdout, stderr io.Writer) int {
	return runContext(context.Background(), args, stdout, stderr)
}

func runContext(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		file        string
		dump        string
		logLevel    string
		showVersion bool
		watch       bool
		dumpMetrics bool
	)
	fs.StringVar(&file, "file", "", "path to XML configuration file")
	fs.StringVar(&file, "f", "", "path to XML configuration file (shorthand)")
	fs.StringVar(&dump, "dump", "", "print the decoded configuration (supported: yaml)")
	fs.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.BoolVar(&watch, "watch", false, "keep running and revalidate the file whenever it changes")
	fs.BoolVar(&dumpMetrics, "metrics", false, "print codec metrics in Prometheus text format on exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	}

	if file == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --file is required")
		_, _ = fmt.Fprintln(stderr, "")
		_, _ = fmt.Fprintln(stderr, "Usage:")
		_, _ = fmt.Fprintln(stderr, "  validate -f scan.xml")
		_, _ = fmt.Fprintln(stderr, "  validate --file scan.xml -dump yaml")
		return 2
	}
	if dump != "" && dump != "yaml" {
		_, _ = fmt.Fprintf(stderr, "Error: unsupported dump format %q (supported: yaml)\n", dump)
		return 2
	}

	xglog.Configure(xglog.Config{Level: logLevel, Output: stderr, Service: "validate"})
	if logLevel != "" {
		if err := xglog.SetLevel(logLevel); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: invalid log level %q\n", logLevel)
			return 2
		}
	}

	ctx = xglog.ContextWithOperationID(ctx, "validate")
	code := validateOnce(ctx, file, dump, stdout, stderr)
	if watch {
		code = watchFile(ctx, file, dump, stdout, stderr)
	}

	if dumpMetrics {
		if err := metrics.WriteText(stdout, prometheus.DefaultGatherer); err != nil {
			_, _ = fmt.Fprintf(stderr, "Metrics error: %v\n", err)
			return 1
		}
	}
	return code
}

func validateOnce(ctx context.Context, file, dump string, stdout, stderr io.Writer) int {
	cfg, err := codec.New().Load(ctx, file)
	if err != nil {
		reportLoadError(stderr, file, err)
		return 1
	}
	return reportValid(stdout, stderr, file, dump, cfg)
}

func reportValid(stdout, stderr io.Writer, file, dump string, cfg *model.Configuration) int {
	if dump == "yaml" {
		out, err := dumpYAML(cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Dump error: %v\n", err)
			return 1
		}
		_, _ = stdout.Write(out)
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "✓ %s is valid\n", file)
	return 0
}

// watchFile reports every change to file until ctx is cancelled. The first
// result has already been printed by validateOnce.
func watchFile(ctx context.Context, file, dump string, stdout, stderr io.Writer) int {
	holder := reload.New(file, codec.New(), reload.WithFailureHandler(func(err error) {
		reportLoadError(stderr, file, err)
	}))

	updates := make(chan *model.Configuration, 1)
	holder.Subscribe(updates)
	if err := holder.Start(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Watch error: %v\n", err)
		return 1
	}
	defer holder.Stop()

	_, _ = fmt.Fprintf(stdout, "watching %s (interrupt to stop)\n", file)
	for {
		select {
		case <-ctx.Done():
			return 0
		case cfg := <-updates:
			reportValid(stdout, stderr, file, dump, cfg)
		}
	}
}

func reportLoadError(w io.Writer, file string, err error) {
	kind, ok := codec.KindOf(err)
	switch {
	case ok && kind == codec.KindValidation:
		_, _ = fmt.Fprintf(w, "Validation error in %s:\n", file)
	case errors.Is(err, codec.ErrSchemaLoad):
		_, _ = fmt.Fprintf(w, "Schema error while checking %s:\n", file)
	default:
		_, _ = fmt.Fprintf(w, "Configuration error in %s:\n", file)
	}

	violations := codec.Violations(err)
	if len(violations) == 0 {
		_, _ = fmt.Fprintf(w, "  %v\n", err)
		return
	}
	for _, v := range violations {
		if v.Line > 0 {
			_, _ = fmt.Fprintf(w, "  line %d, column %d: ", v.Line, v.Column)
		} else {
			_, _ = fmt.Fprint(w, "  ")
		}
		_, _ = fmt.Fprintf(w, "[%s] %s", v.Code, v.Message)
		if v.Path != "" {
			_, _ = fmt.Fprintf(w, " at %s", v.Path)
		}
		_, _ = fmt.Fprintln(w)
	}
}
