// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/internetofwater/ldsync/pkg"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Name of the environment variable pointing at a YAML config file
const ConfigFileEnv = "LDSYNC_CONFIG"

// Implemented by argument structs whose config sections can
// also be read from a YAML file; keys are top level YAML keys
// and values are pointers to the sections
type FileSections interface {
	YAMLSections() map[string]any
}

// ConfigFilePath returns the value of --config in argv, falling back to LDSYNC_CONFIG
func ConfigFilePath(argv []string) string {
	for i, a := range argv {
		if a == "--config" && i+1 < len(argv) {
			return argv[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
	}
	return os.Getenv(ConfigFileEnv)
}

// ReadConfigFile overlays the YAML file at path onto the given sections.
// Keys absent from the file leave the section untouched
func ReadConfigFile(path string, sections map[string]any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &pkg.ConfigurationError{Setting: "--config", Err: err}
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &pkg.ConfigurationError{Setting: "--config", Err: fmt.Errorf("invalid yaml in %s: %w", path, err)}
	}
	for key, node := range raw {
		section, ok := sections[key]
		if !ok {
			return &pkg.ConfigurationError{Setting: "--config", Err: fmt.Errorf("unknown section %q in %s", key, path)}
		}
		if err := node.Decode(section); err != nil {
			return &pkg.ConfigurationError{Setting: "--config", Err: fmt.Errorf("invalid section %q in %s: %w", key, path, err)}
		}
	}
	log.Debugf("Read config file %s", path)
	return nil
}

// Parse fills dest with defaults, then the YAML config file, then
// environment variables and finally command line flags, so that
// each source overrides the ones before it
func Parse(program string, argv []string, dest FileSections) (*arg.Parser, error) {
	defaults, err := arg.NewParser(arg.Config{Program: program, IgnoreEnv: true}, dest)
	if err != nil {
		return nil, err
	}
	if err := defaults.Parse(nil); err != nil {
		return nil, err
	}

	if path := ConfigFilePath(argv); path != "" {
		if err := ReadConfigFile(path, dest.YAMLSections()); err != nil {
			return nil, err
		}
	}

	parser, err := arg.NewParser(arg.Config{Program: program, IgnoreDefault: true}, dest)
	if err != nil {
		return nil, err
	}
	return parser, parser.Parse(argv)
}
