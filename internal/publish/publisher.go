package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/JonMunkholm/dbexport/internal/logging"
)

// DefaultBlockSize is the upload block size used when none is configured.
const DefaultBlockSize = 128 * 1024

// TempSuffix marks an upload that has not been swapped in yet.
const TempSuffix = ".part"

// Publisher runs uploads and downloads against one remote.
type Publisher struct {
	Name      string // label used in logs: "ftps", "gcs"
	Dial      Dialer
	Dir       string // target directory; created when missing
	BlockSize int
}

// Publish uploads localPath to Dir/remoteName.
//
// The file is stored as remoteName.part, the previous remoteName is deleted
// and the upload is renamed into place. The remote size is then compared
// with the local size; on mismatch the new object is deleted and an
// *IntegrityError is returned. The session is closed on every path.
func (p *Publisher) Publish(ctx context.Context, localPath, remoteName string) error {
	logger := logging.WithFields(ctx, "remote", p.Name, "file", remoteName)

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	localSize := info.Size()

	r, err := p.Dial(ctx)
	if err != nil {
		return &TransferError{Op: "connect", Err: err}
	}
	defer p.quit(ctx, r)

	if err := p.selectDir(ctx, r); err != nil {
		return err
	}

	tmpName := remoteName + TempSuffix
	tryBestEffort(ctx, "delete orphan", tmpName, func() error { return r.Delete(tmpName) })

	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Info("upload started", "bytes", localSize, "temp", tmpName)
	if err := p.upload(r, localPath, tmpName); err != nil {
		return err
	}

	tryBestEffort(ctx, "delete previous", remoteName, func() error { return r.Delete(remoteName) })
	if err := r.Rename(tmpName, remoteName); err != nil {
		return &TransferError{Op: "rename", Path: tmpName, Err: err}
	}

	if entries, err := r.List(remoteName); err == nil {
		logger.Debug("remote listing", "entries", entries)
	}

	remoteSize, err := r.FileSize(remoteName)
	if err != nil || remoteSize != localSize {
		integrity := &IntegrityError{
			Path:        path.Join(p.Dir, remoteName),
			Remote:      remoteSize,
			Local:       localSize,
			RemoteKnown: err == nil,
			Err:         err,
		}
		integrity.Stale = !tryBestEffort(ctx, "delete mismatched", remoteName, func() error {
			return r.Delete(remoteName)
		})
		return integrity
	}

	logger.Info("upload verified", "bytes", remoteSize)
	return nil
}

// Fetch downloads remotePath to localPath. A relative remotePath is taken
// relative to Dir. The local file only appears once the download completes.
func (p *Publisher) Fetch(ctx context.Context, remotePath, localPath string) error {
	if !path.IsAbs(remotePath) && p.Dir != "" {
		remotePath = path.Join(p.Dir, remotePath)
	}
	dir, name := path.Split(remotePath)

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	r, err := p.Dial(ctx)
	if err != nil {
		return &TransferError{Op: "connect", Err: err}
	}
	defer p.quit(ctx, r)

	if dir != "" {
		if err := r.ChangeDir(dir); err != nil {
			return &TransferError{Op: "cwd", Path: dir, Err: err}
		}
	}

	body, err := r.Retrieve(name)
	if err != nil {
		return &TransferError{Op: "retr", Path: remotePath, Err: err}
	}
	defer body.Close()

	tmp := localPath + TempSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	n, err := f.ReadFrom(body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return &TransferError{Op: "retr", Path: remotePath, Err: err}
	}
	if err := os.Rename(tmp, localPath); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	logging.WithFields(ctx, "remote", p.Name).Info("download complete",
		"file", remotePath,
		"local", localPath,
		"bytes", n,
	)
	return nil
}

// selectDir switches to Dir, creating it first when the switch fails.
func (p *Publisher) selectDir(ctx context.Context, r Remote) error {
	if p.Dir == "" {
		return nil
	}
	if err := r.ChangeDir(p.Dir); err == nil {
		return nil
	}
	tryBestEffort(ctx, "mkdir", p.Dir, func() error { return r.MakeDir(p.Dir) })
	if err := r.ChangeDir(p.Dir); err != nil {
		return &TransferError{Op: "cwd", Path: p.Dir, Err: err}
	}
	return nil
}

func (p *Publisher) upload(r Remote, localPath, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer f.Close()

	size := p.BlockSize
	if size <= 0 {
		size = DefaultBlockSize
	}
	if err := r.Store(name, &blockReader{r: f, size: size}); err != nil {
		return &TransferError{Op: "stor", Path: name, Err: err}
	}
	return nil
}

func (p *Publisher) quit(ctx context.Context, r Remote) {
	tryBestEffort(ctx, "quit", p.Name, r.Quit)
}

// tryBestEffort runs fn and reports whether it succeeded. A failure is
// logged at debug level and never returned.
func tryBestEffort(ctx context.Context, op, target string, fn func() error) bool {
	err := fn()
	if err == nil {
		return true
	}
	logging.FromContext(ctx).Debug("best-effort step failed",
		"op", op,
		"target", target,
		"error", err,
	)
	return false
}
