package notary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerRunner executes commands inside a running container through the
// Docker Engine exec API.
type DockerRunner struct {
	client    *client.Client
	container string
}

// NewDockerRunner connects to the daemon at host (environment defaults when
// empty) and targets container.
func NewDockerRunner(host, container string) (*DockerRunner, error) {
	container = strings.TrimSpace(container)
	if container == "" {
		return nil, errors.New("container name required")
	}
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerRunner{client: cli, container: container}, nil
}

// Run creates an exec instance, streams its demultiplexed output and fails
// when the process exits non-zero.
func (r *DockerRunner) Run(ctx context.Context, dir string, argv []string) (string, string, error) {
	if len(argv) == 0 {
		return "", "", errors.New("empty command")
	}
	created, err := r.client.ContainerExecCreate(ctx, r.container, types.ExecConfig{
		Cmd:          argv,
		WorkingDir:   dir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", "", fmt.Errorf("notary container %s not found", r.container)
		}
		return "", "", fmt.Errorf("create exec: %w", err)
	}

	attach, err := r.client.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return "", "", fmt.Errorf("attach exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("read exec output: %w", err)
	}

	inspect, err := r.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return stdout.String(), stderr.String(), fmt.Errorf("run %s: exit status %d", argv[0], inspect.ExitCode)
	}
	return stdout.String(), stderr.String(), nil
}

// Close releases the docker client.
func (r *DockerRunner) Close() error {
	return r.client.Close()
}
