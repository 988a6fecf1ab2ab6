// Package sandbox runs one benchmark invocation inside a container so the
// measurement is isolated from host daemons and stray processes. The binary
// under test is bind-mounted read-only; nothing is written into the
// container's filesystem that outlives a run.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const binaryTarget = "/bench/binary"

type RunOpts struct {
	Image   string
	Binary  string // absolute host path of the binary under test
	Args    []string
	Timeout time.Duration
	// CPULimit pins the container's CPU budget (in whole CPUs); 0 leaves it
	// unlimited. Benchmarks normally run unlimited so the measurement
	// reflects the host.
	CPULimit float64
}

type RunResult struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
	Output   []byte
}

// Run executes the benchmark command in a fresh container and captures its
// combined output. A timeout kills the container and reports TimedOut
// rather than returning an error, so one slow benchmark degrades to a
// skipped transcript instead of aborting the batch.
func Run(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	mounts := []mount.Mount{
		{
			Type:     mount.TypeBind,
			Source:   opts.Binary,
			Target:   binaryTarget,
			ReadOnly: true,
		},
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		Init:   &initTrue,
	}
	if opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(opts.CPULimit * 1e9)
	}

	containerCfg := &container.Config{
		Image:  opts.Image,
		Cmd:    append([]string{binaryTarget}, opts.Args...),
		Labels: map[string]string{"optbench": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				return &RunResult{
					ExitCode: 124,
					TimedOut: true,
					Duration: time.Since(start),
					Output:   collectLogs(cli, containerID),
				}, nil
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			return &RunResult{
				ExitCode: int(status.StatusCode),
				TimedOut: false,
				Duration: time.Since(start),
				Output:   collectLogs(cli, containerID),
			}, nil
		}
	}
}

func collectLogs(cli *client.Client, containerID string) []byte {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return data
}
