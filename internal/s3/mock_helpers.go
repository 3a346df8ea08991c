// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"fmt"

	"github.com/internetofwater/ldsync/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// A struct to represent the minio container
type MinioContainer struct {
	// the container itself. used for testcontainer cleanup
	Container testcontainers.Container
	// the settings a report upload would use to reach this container
	Config        config.ReportConfig
	ClientWrapper *MinioClientWrapper
}

// Spin up a local minio container with default credentials and create the bucket
func NewMinioContainer(ctx context.Context, bucket string) (MinioContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForHTTP("/minio/health/live").WithPort("9000"),
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd: []string{"server", "/data"},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return MinioContainer{}, fmt.Errorf("generic container: %w", err)
	}

	hostname, err := container.Host(ctx)
	if err != nil {
		return MinioContainer{}, fmt.Errorf("get hostname: %w", err)
	}
	apiPort, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		return MinioContainer{}, fmt.Errorf("get api port: %w", err)
	}

	cfg := config.ReportConfig{
		Address:   hostname,
		Port:      apiPort.Int(),
		Accesskey: "minioadmin",
		Secretkey: "minioadmin",
		Bucket:    bucket,
	}
	client, err := NewMinioClientWrapper(cfg)
	if err != nil {
		return MinioContainer{}, fmt.Errorf("minio client: %w", err)
	}
	if err := client.MakeDefaultBucket(ctx); err != nil {
		return MinioContainer{}, fmt.Errorf("make bucket: %w", err)
	}
	return MinioContainer{Container: container, Config: cfg, ClientWrapper: client}, nil
}
