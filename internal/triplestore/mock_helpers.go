// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"context"
	"fmt"

	"github.com/internetofwater/ldsync/internal/common"
	"github.com/internetofwater/ldsync/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// The name of the dataset created inside the fuseki container
const FusekiDataset = "ds"

type FusekiContainer struct {
	Container testcontainers.Container
	Client    *FusekiClient
	Config    config.TriplestoreConfig
}

// Spin up a local fuseki container with an in memory dataset and the associated client
func NewFusekiContainer(ctx context.Context) (FusekiContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "stain/jena-fuseki",
		Name:         "fusekiTestcontainer", // the name used for ryuk cleanup
		ExposedPorts: []string{"3030/tcp"},
		Env: map[string]string{
			"ADMIN_PASSWORD":   "admin",
			"FUSEKI_DATASET_1": FusekiDataset,
		},
		WaitingFor: wait.ForHTTP("/$/ping").WithPort("3030/tcp"),
	}
	fusekiC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		Reuse:            true,
	})
	if err != nil {
		return FusekiContainer{}, err
	}
	port, err := fusekiC.MappedPort(ctx, "3030/tcp")
	if err != nil {
		return FusekiContainer{}, err
	}
	host, err := fusekiC.Host(ctx)
	if err != nil {
		return FusekiContainer{}, err
	}

	cfg := config.TriplestoreConfig{
		DbType:  config.Fuseki,
		BaseURI: fmt.Sprintf("http://%s:%s/%s", host, port.Port(), FusekiDataset),
		Timeout: 20,
	}
	client := NewFusekiClient(cfg, common.NewSparqlClient(cfg.TimeoutDuration()))
	return FusekiContainer{Container: fusekiC, Client: client, Config: cfg}, nil
}

type GraphDBContainer struct {
	Container testcontainers.Container
	Client    *GraphDbClient
	Config    config.TriplestoreConfig
}

// Spin up a local graphdb container, create the repository
// described by configPath and return the associated client
func NewGraphDBContainer(ctx context.Context, repositoryName string, configPath string) (GraphDBContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "khaller/graphdb-free",
		Name:         "graphdbTestcontainer", // the name used for ryuk cleanup
		ExposedPorts: []string{"7200/tcp"},
		// We use a regex here since graphdb adds additional context info at the
		// start of the log message like the date / time
		WaitingFor: wait.ForLog(".*Started GraphDB in workbench mode at port 7200").AsRegexp(),
	}
	graphdbC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		Reuse:            true,
	})
	if err != nil {
		return GraphDBContainer{}, err
	}
	// 7200 is the default http endpoint
	port, err := graphdbC.MappedPort(ctx, "7200/tcp")
	if err != nil {
		return GraphDBContainer{}, err
	}
	host, err := graphdbC.Host(ctx)
	if err != nil {
		return GraphDBContainer{}, err
	}

	cfg := config.TriplestoreConfig{
		DbType:  config.GraphDB,
		BaseURI: fmt.Sprintf("http://%s:%s/repositories/%s", host, port.Port(), repositoryName),
		Timeout: 20,
	}
	client, err := NewGraphDbClient(cfg, common.NewSparqlClient(cfg.TimeoutDuration()))
	if err != nil {
		return GraphDBContainer{}, err
	}
	if err := client.CreateRepositoryIfNotExists(ctx, configPath); err != nil {
		return GraphDBContainer{}, fmt.Errorf("failed to create repository when initializing graphdb container: %w", err)
	}
	return GraphDBContainer{Container: graphdbC, Client: client, Config: cfg}, nil
}
