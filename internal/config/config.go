// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/internetofwater/ldsync/pkg"
)

// The profile used to validate datasets when none is configured
const DefaultProfile = "https://raw.githubusercontent.com/surroundaustralia/ogcldapi-profile/master/validator.shacl.ttl"

const (
	Fuseki  = "fuseki"
	GraphDB = "graphdb"
)

// The top level config for all ldsync operations
type SyncConfig struct {
	Triplestore TriplestoreConfig
	Validation  ValidationConfig
	Data        DataConfig
	Publish     PublishConfig
	Reports     ReportConfig
	Context     ContextConfig
}

// The config for sparql and graph interactions
type TriplestoreConfig struct {
	DbType   string  `arg:"--db-type,env:DB_TYPE" help:"type of triplestore; fuseki or graphdb" default:"fuseki" yaml:"db_type"`
	BaseURI  string  `arg:"--db-base-uri,env:DB_BASE_URI" help:"base url of the fuseki dataset or graphdb repository" yaml:"db_base_uri"`
	Username string  `arg:"--db-username,env:DB_USERNAME" help:"username for basic auth against the triplestore" yaml:"db_username"`
	Password string  `arg:"--db-password,env:DB_PASSWORD" help:"password for basic auth against the triplestore" yaml:"db_password"`
	Timeout  float64 `arg:"--timeout,env:TIMEOUT" help:"seconds to wait for a triplestore response" default:"20" yaml:"timeout"`
}

// TimeoutDuration returns the configured timeout; zero or negative values disable it
func (c TriplestoreConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 0
	}
	return time.Duration(c.Timeout * float64(time.Second))
}

// Validate checks the settings needed by commands that talk to the triplestore
func (c TriplestoreConfig) Validate() error {
	switch strings.ToLower(c.DbType) {
	case Fuseki, GraphDB:
	default:
		return &pkg.ConfigurationError{Setting: "DB_TYPE", Err: fmt.Errorf("unknown triplestore type %q; expected %s or %s", c.DbType, Fuseki, GraphDB)}
	}
	if c.BaseURI == "" {
		return &pkg.ConfigurationError{Setting: "DB_BASE_URI", Err: errors.New("a base uri is required")}
	}
	parsed, err := url.Parse(c.BaseURI)
	if err != nil {
		return &pkg.ConfigurationError{Setting: "DB_BASE_URI", Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &pkg.ConfigurationError{Setting: "DB_BASE_URI", Err: fmt.Errorf("%s is not an http(s) url", c.BaseURI)}
	}
	if c.Password != "" && c.Username == "" {
		return &pkg.ConfigurationError{Setting: "DB_USERNAME", Err: errors.New("a password was set without a username")}
	}
	return nil
}

// The config for shacl validation
type ValidationConfig struct {
	Profile         string `arg:"--profile,env:PROFILE" help:"path or url of the shacl profile" default:"https://raw.githubusercontent.com/surroundaustralia/ogcldapi-profile/master/validator.shacl.ttl" yaml:"profile"`
	ShowWarnings    bool   `arg:"--show-warnings,env:SHOW_WARNINGS" help:"print warnings along with errors" default:"true" yaml:"show_warnings"`
	WarningsInvalid bool   `arg:"--warnings-invalid,env:WARNINGS_INVALID" help:"treat warnings as validation failures" yaml:"warnings_invalid"`
}

// The config for reading local files
type DataConfig struct {
	DataDir     string `arg:"--data-dir,env:DATA_DIR" help:"directory holding the dataset files" default:"data" yaml:"data_dir"`
	OntologyDir string `arg:"--ontology-dir,env:ONTOLOGY_DIR" help:"directory holding the background ontologies" default:"ontologies" yaml:"ontology_dir"`
	Workers     int    `arg:"--workers,env:WORKERS" help:"number of files parsed concurrently" default:"4" yaml:"workers"`
}

// The config for publishing to the triplestore
type PublishConfig struct {
	DropOnStart bool `arg:"--drop-on-start,env:DROP_ON_START" help:"drop every graph and reload the ontologies before updating" yaml:"drop_on_start"`
}

// The config for uploading run reports to s3; reports are
// only uploaded when a bucket is set
type ReportConfig struct {
	Address   string `arg:"--s3-address,env:S3_ADDRESS" help:"The address of the s3 server" default:"127.0.0.1" yaml:"address"`
	Port      int    `arg:"--s3-port,env:S3_PORT" default:"9000" yaml:"port"`
	Accesskey string `arg:"--s3-access-key,env:S3_ACCESS_KEY" help:"Access Key (i.e. username)" default:"minioadmin" yaml:"access_key"`
	Secretkey string `arg:"--s3-secret-key,env:S3_SECRET_KEY" help:"Secret Key (i.e. password)" default:"minioadmin" yaml:"secret_key"`
	Bucket    string `arg:"--report-bucket,env:REPORT_BUCKET" help:"The s3 bucket to upload run reports to" yaml:"bucket"`
	Region    string `arg:"--s3-region,env:S3_REGION" help:"region for the s3 server" yaml:"region"`
	SSL       bool   `arg:"--s3-ssl,env:S3_SSL" help:"Use SSL when connecting to s3" yaml:"ssl"`
}

// Enabled reports whether reports should be uploaded
func (c ReportConfig) Enabled() bool {
	return c.Bucket != ""
}

// Maps a remote JSON-LD context to a local file
type ContextMap struct {
	Prefix string
	File   string
}

// The config for jsonld context operations
type ContextConfig struct {
	// whether or not to cache the context when
	// decoding json-ld
	Cache             bool              `arg:"--cache-context,env:CACHE_CONTEXT" help:"cache remote json-ld contexts" yaml:"cache"`
	PrefixToFileCache map[string]string `arg:"--context-file" help:"context url to local file mapping; used for caching" yaml:"prefix_to_file"`
}

// ContextMaps returns the prefix to file mapping in a stable order
func (c ContextConfig) ContextMaps() []ContextMap {
	var maps []ContextMap
	for prefix, file := range c.PrefixToFileCache {
		maps = append(maps, ContextMap{Prefix: prefix, File: file})
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].Prefix < maps[j].Prefix })
	return maps
}
