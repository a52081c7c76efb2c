package autoheal

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandRunner executes one sanitized, fully-instantiated shell command
// and reports its outcome. The production implementation shells out
// locally; tests substitute a fake.
type CommandRunner interface {
	Run(ctx context.Context, command string) (stdout, stderr string, err error)
}

// localRunner runs commands via /bin/sh -c on the local host.
type localRunner struct{}

// NewLocalRunner returns the production CommandRunner.
func NewLocalRunner() CommandRunner { return localRunner{} }

func (localRunner) Run(ctx context.Context, command string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
