// Package publish moves files to and from remote storage. Publish swaps a
// file in atomically: observers see either the previous object or the new
// one, never a partial upload.
package publish

import (
	"context"
	"io"
)

// Remote is a connected session against a remote file store. Paths are
// relative to the current directory set by ChangeDir.
type Remote interface {
	ChangeDir(dir string) error
	MakeDir(dir string) error
	Delete(name string) error
	Store(name string, r io.Reader) error
	Rename(from, to string) error
	FileSize(name string) (int64, error)
	List(name string) ([]string, error)
	Retrieve(name string) (io.ReadCloser, error)
	Quit() error
}

// Dialer opens an authenticated Remote session.
type Dialer func(ctx context.Context) (Remote, error)

// blockReader hands data to io.Copy in fixed-size blocks.
type blockReader struct {
	r    io.Reader
	size int
}

func (b *blockReader) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b *blockReader) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, b.size)
	var total int64
	for {
		n, err := io.ReadFull(b.r, buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			total += int64(m)
			if werr != nil {
				return total, werr
			}
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return total, nil
		default:
			return total, err
		}
	}
}
