// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	log "github.com/sirupsen/logrus"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type ValidateCmd struct{}
type UpdateCmd struct{}
type DiffCmd struct{}
type DropCmd struct{}
type PingCmd struct{}

type LdsyncArgs struct {
	// Subcommands that can be run
	Validate *ValidateCmd `arg:"subcommand:validate" help:"validate every dataset against the shacl profile"`
	Update   *UpdateCmd   `arg:"subcommand:update" help:"publish added and changed datasets and remove deleted ones"`
	Diff     *DiffCmd     `arg:"subcommand:diff" help:"print what update would change without publishing"`
	Drop     *DropCmd     `arg:"subcommand:drop" help:"drop every graph and reload the background ontologies"`
	Ping     *PingCmd     `arg:"subcommand:ping" help:"check that the triplestore is reachable"`

	Config string `arg:"--config,env:LDSYNC_CONFIG" help:"path to a yaml config file"`

	// Flags that can be set for config particular services / operations
	config.TriplestoreConfig
	config.ValidationConfig
	config.DataConfig
	config.PublishConfig
	config.ReportConfig
	config.ContextConfig

	// Flags that can be set which affect all operations
	LogLevel     string `arg:"--log-level,env:LOG_LEVEL" default:"INFO"`
	UseOtel      bool   `arg:"--use-otel,env:USE_OTEL" help:"export traces and metrics over otlp"`
	OtelEndpoint string `arg:"--otel-endpoint,env:OTEL_ENDPOINT" help:"OpenTelemetry collector endpoint"`
}

// YAMLSections maps the top level keys of the config file to the config sections
func (a *LdsyncArgs) YAMLSections() map[string]any {
	return map[string]any{
		"triplestore": &a.TriplestoreConfig,
		"validation":  &a.ValidationConfig,
		"data":        &a.DataConfig,
		"publish":     &a.PublishConfig,
		"reports":     &a.ReportConfig,
		"context":     &a.ContextConfig,
	}
}

// ToStructuredConfig converts the args to a structured config
// that can be used for more config isolation
func (a LdsyncArgs) ToStructuredConfig() config.SyncConfig {
	return config.SyncConfig{
		Triplestore: a.TriplestoreConfig,
		Validation:  a.ValidationConfig,
		Data:        a.DataConfig,
		Publish:     a.PublishConfig,
		Reports:     a.ReportConfig,
		Context:     a.ContextConfig,
	}
}

type LdsyncRunner struct {
	args LdsyncArgs
	// where reports are rendered
	out io.Writer
}

// NewLdsyncRunner parses the arguments after the binary name.
// arg.ErrHelp is returned after help was printed
func NewLdsyncRunner(cliArgs []string, out io.Writer) (LdsyncRunner, error) {
	args := LdsyncArgs{}
	parser, err := config.Parse("ldsync", cliArgs, &args)
	if err != nil {
		if parser != nil && errors.Is(err, arg.ErrHelp) {
			parser.WriteHelp(out)
		}
		return LdsyncRunner{}, err
	}
	if parser.Subcommand() == nil {
		parser.WriteUsage(out)
		return LdsyncRunner{}, fmt.Errorf("no subcommand provided")
	}
	return LdsyncRunner{args: args, out: out}, nil
}

func (r LdsyncRunner) Run(ctx context.Context) error {
	level, err := log.ParseLevel(r.args.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", r.args.LogLevel, err)
	}
	log.SetLevel(level)

	if r.args.UseOtel || r.args.OtelEndpoint != "" {
		if r.args.OtelEndpoint == "" {
			r.args.OtelEndpoint = opentelemetry.DefaultTracingEndpoint
		}
		log.Infof("Starting opentelemetry traces and exporting to: %s", r.args.OtelEndpoint)
		if err := opentelemetry.InitTracer("ldsync", r.args.OtelEndpoint); err != nil {
			return err
		}
		if err := opentelemetry.InitMetrics(r.args.OtelEndpoint); err != nil {
			return err
		}
		var span otelTrace.Span
		ctx, span = opentelemetry.SubSpanFromCtxWithName(ctx, strings.Join(os.Args, "_"))
		defer opentelemetry.Shutdown(context.Background())
		defer span.End()
	}

	cfg := r.args.ToStructuredConfig()
	switch {
	case r.args.Validate != nil:
		return Validate(ctx, cfg, r.out)
	case r.args.Update != nil:
		return Update(ctx, cfg, r.out, false)
	case r.args.Diff != nil:
		return Update(ctx, cfg, r.out, true)
	case r.args.Drop != nil:
		return Drop(ctx, cfg)
	case r.args.Ping != nil:
		return Ping(ctx, cfg)
	default:
		return fmt.Errorf("unknown ldsync subcommand")
	}
}

func main() {
	runner, err := NewLdsyncRunner(os.Args[1:], os.Stdout)
	if errors.Is(err, arg.ErrHelp) {
		os.Exit(0)
	}
	if err == nil {
		err = runner.Run(context.Background())
	}
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
