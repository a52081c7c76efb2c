package deploy

import (
	"context"
	"fmt"

	"github.com/opsloom/sentinel/pkg/executor"
)

// RemoteBackuper implements Backuper over the Remote Executor, shelling out
// to cp/rsync/systemctl: create backups on target servers
// (/tmp/backup-<ts>), upload patched files, restart services if required.
type RemoteBackuper struct {
	exec     *executor.Executor
	patchDir string // local directory patched files are staged in before upload
}

// NewRemoteBackuper constructs a RemoteBackuper. patchDir is the local
// staging directory the patch generator writes rewritten files to.
func NewRemoteBackuper(exec *executor.Executor, patchDir string) *RemoteBackuper {
	return &RemoteBackuper{exec: exec, patchDir: patchDir}
}

// Backup snapshots the application directory on targets into a
// timestamped backup directory under /tmp.
func (b *RemoteBackuper) Backup(ctx context.Context, targets any) error {
	cmd := `ts=$(date +%s); mkdir -p /tmp/backup-$ts && cp -a /opt/app/. /tmp/backup-$ts/`
	_, err := b.exec.Execute(ctx, targets, cmd, executor.Options{Parallel: true})
	return err
}

// Upload rsyncs the locally staged patch output for patchID onto targets.
func (b *RemoteBackuper) Upload(ctx context.Context, targets any, patchID string) error {
	cmd := fmt.Sprintf(`rsync -a %s/%s/ /opt/app/`, b.patchDir, patchID)
	_, err := b.exec.Execute(ctx, targets, cmd, executor.Options{Parallel: true})
	return err
}

// RestartServices restarts the managed application service on targets.
func (b *RemoteBackuper) RestartServices(ctx context.Context, targets any) error {
	_, err := b.exec.Execute(ctx, targets, "systemctl restart app", executor.Options{Parallel: true})
	return err
}
