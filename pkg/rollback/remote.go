package rollback

import (
	"context"

	"github.com/opsloom/sentinel/pkg/executor"
)

// RemoteRestorer implements Restorer over the Remote Executor, locating
// the most recent backup directory with `ls -dt /tmp/backup-*`.
type RemoteRestorer struct {
	exec *executor.Executor
}

// NewRemoteRestorer constructs a RemoteRestorer.
func NewRemoteRestorer(exec *executor.Executor) *RemoteRestorer {
	return &RemoteRestorer{exec: exec}
}

// Snapshot is a no-op for remote restore: rollback restores from a backup
// the deploy prelude already took, it does not take a new one.
func (r *RemoteRestorer) Snapshot(ctx context.Context, targets any) error {
	return nil
}

// RestoreFromBackup copies the most recent /tmp/backup-* directory back
// over the application directory.
func (r *RemoteRestorer) RestoreFromBackup(ctx context.Context, targets any) error {
	cmd := `latest=$(ls -dt /tmp/backup-* | head -n1) && cp -a "$latest/." /opt/app/`
	_, err := r.exec.Execute(ctx, targets, cmd, executor.Options{Parallel: true})
	return err
}

// RestartServices restarts the managed application service on targets.
func (r *RemoteRestorer) RestartServices(ctx context.Context, targets any) error {
	_, err := r.exec.Execute(ctx, targets, "systemctl restart app", executor.Options{Parallel: true})
	return err
}
