// Package artifact turns the finished database into a publishable file:
// gzip compression, a SHA-256 digest and the manifest that describes both.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
)

// ChunkSize is the copy buffer used for compression and hashing.
const ChunkSize = 1 << 20

// Compress writes a gzip copy of src to dst at the given level and returns
// the compressed size. Any existing dst is replaced.
func Compress(src, dst string, level int) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("compress: %w", err)
	}
	defer in.Close()

	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("compress: remove %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("compress: %w", err)
	}

	zw, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		out.Close()
		return 0, fmt.Errorf("compress: %w", err)
	}
	if _, err := io.CopyBuffer(zw, in, make([]byte, ChunkSize)); err != nil {
		zw.Close()
		out.Close()
		return 0, fmt.Errorf("compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return 0, fmt.Errorf("compress %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("compress %s: %w", src, err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("compress: %w", err)
	}
	return info.Size(), nil
}

// HashFile returns the lowercase hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, ChunkSize)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
