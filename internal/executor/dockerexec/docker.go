// Package dockerexec is an optional reference Executor implementation that
// runs a session's work inside a throwaway container bind-mounted to the
// session's worktree. It is grounded in the teacher's own Docker-backed
// agent runtime, adapted from a Docker-volume-per-repo model to a
// bind-mount-the-worktree model since the bridge's worktrees already live
// on the host filesystem.
package dockerexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/executor"
)

// Executor runs each session's work in a fresh container from Image,
// mounting the session's worktree at /workspace and invoking Cmd inside it.
type Executor struct {
	client *client.Client
	image  string
	cmd    []string

	cancelled map[string]bool
}

// New constructs a Docker-backed Executor talking to the daemon at host (an
// empty host uses the environment's default, matching client.FromEnv).
func New(host, image string, cmd []string) (*Executor, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.FromEnv)
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("dockerexec.New: %w", err)
	}
	if len(cmd) == 0 {
		cmd = []string{"/bin/sh", "-c", "echo no command configured"}
	}
	return &Executor{client: cli, image: image, cmd: cmd, cancelled: make(map[string]bool)}, nil
}

func (e *Executor) Close() error { return e.client.Close() }

func (e *Executor) Execute(ctx context.Context, ec executor.ExecutionContext) (executor.ExecutionResult, error) {
	start := time.Now()

	containerCfg := &container.Config{
		Image:      e.image,
		Cmd:        e.cmd,
		WorkingDir: "/workspace",
		Env:        envPairs(ec.Context),
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: ec.WorkingDir,
			Target: "/workspace",
		}},
		AutoRemove: false,
	}

	resp, err := e.client.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, "bridge-"+ec.Session.ID)
	if err != nil {
		return executor.ExecutionResult{}, fmt.Errorf("dockerexec.Executor.Execute: create: %w: %v", domain.ErrExecutor, err)
	}
	defer func() { _ = e.client.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true}) }()

	if err := e.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return executor.ExecutionResult{}, fmt.Errorf("dockerexec.Executor.Execute: start: %w: %v", domain.ErrExecutor, err)
	}

	waitCh, errCh := e.client.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case result := <-waitCh:
		exitCode = result.StatusCode
		if result.Error != nil {
			return executor.ExecutionResult{}, fmt.Errorf("dockerexec.Executor.Execute: %w: %s", domain.ErrExecutor, result.Error.Message)
		}
	case waitErr := <-errCh:
		return executor.ExecutionResult{}, fmt.Errorf("dockerexec.Executor.Execute: wait: %w: %v", domain.ErrExecutor, waitErr)
	case <-ctx.Done():
		_ = e.client.ContainerStop(context.Background(), resp.ID, container.StopOptions{})
		return executor.ExecutionResult{}, fmt.Errorf("dockerexec.Executor.Execute: %w: %v", domain.ErrExecutor, ctx.Err())
	}

	output, err := e.readLogs(resp.ID)
	if err != nil {
		output = ""
	}

	return executor.ExecutionResult{
		Success:  exitCode == 0,
		Output:   output,
		ExitCode: int(exitCode),
		Duration: time.Since(start),
	}, nil
}

func (e *Executor) CancelSession(sessionID string) error {
	e.cancelled[sessionID] = true
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.client.ContainerStop(ctx, "bridge-"+sessionID, container.StopOptions{})
}

func (e *Executor) readLogs(containerID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, err := e.client.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil && err != io.EOF {
		return "", err
	}
	return stdout.String() + stderr.String(), nil
}

func envPairs(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}
