package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/JonMunkholm/dbexport/internal/config"
)

// gcsRemote is a Remote over a Cloud Storage bucket. Directories are object
// name prefixes, so MakeDir has nothing to do and Rename is copy then delete.
type gcsRemote struct {
	// ctx is the context the session was dialed with. Remote methods take
	// no context, so every bucket call of the session runs under it.
	ctx       context.Context
	client    *storage.Client
	bucket    *storage.BucketHandle
	dir       string
	chunkSize int
}

// DialGCS returns a Dialer for the configured mirror bucket. Without a
// credentials file the client uses application default credentials.
func DialGCS(cfg *config.MirrorConfig, blockSize int) Dialer {
	return func(ctx context.Context) (Remote, error) {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}

		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}

		bucket := client.Bucket(cfg.Bucket)
		if _, err := bucket.Attrs(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("gcs bucket %q not accessible: %w", cfg.Bucket, err)
		}

		return &gcsRemote{
			ctx:       ctx,
			client:    client,
			bucket:    bucket,
			chunkSize: blockSize,
		}, nil
	}
}

// objectName maps a name relative to the current directory to an object key.
func (r *gcsRemote) objectName(name string) string {
	if path.IsAbs(name) {
		return strings.TrimPrefix(path.Clean(name), "/")
	}
	return strings.TrimPrefix(path.Join(r.dir, name), "/")
}

func (r *gcsRemote) ChangeDir(dir string) error {
	r.dir = strings.Trim(path.Clean("/"+r.objectName(dir)), "/")
	return nil
}

func (r *gcsRemote) MakeDir(string) error { return nil }

func (r *gcsRemote) Delete(name string) error {
	return r.bucket.Object(r.objectName(name)).Delete(r.ctx)
}

func (r *gcsRemote) Store(name string, data io.Reader) error {
	w := r.bucket.Object(r.objectName(name)).NewWriter(r.ctx)
	if r.chunkSize > 0 {
		w.ChunkSize = r.chunkSize
	}
	w.ContentType = contentType(name)

	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("copy to object writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// contentType picks the object content type from the final name of an
// upload, ignoring the temporary suffix.
func contentType(name string) string {
	switch path.Ext(strings.TrimSuffix(name, TempSuffix)) {
	case ".gz":
		return "application/gzip"
	case ".json":
		return "application/json"
	case ".db":
		return "application/vnd.sqlite3"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

func (r *gcsRemote) Rename(from, to string) error {
	src := r.bucket.Object(r.objectName(from))
	dst := r.bucket.Object(r.objectName(to))
	if _, err := dst.CopierFrom(src).Run(r.ctx); err != nil {
		return fmt.Errorf("copy %s: %w", from, err)
	}
	return src.Delete(r.ctx)
}

func (r *gcsRemote) FileSize(name string) (int64, error) {
	attrs, err := r.bucket.Object(r.objectName(name)).Attrs(r.ctx)
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

func (r *gcsRemote) List(name string) ([]string, error) {
	var lines []string
	it := r.bucket.Objects(r.ctx, &storage.Query{Prefix: r.objectName(name)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("%s %d %s", attrs.Name, attrs.Size, attrs.Updated.Format("2006-01-02 15:04")))
	}
}

func (r *gcsRemote) Retrieve(name string) (io.ReadCloser, error) {
	return r.bucket.Object(r.objectName(name)).NewReader(r.ctx)
}

func (r *gcsRemote) Quit() error { return r.client.Close() }
