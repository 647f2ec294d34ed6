package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/JonMunkholm/dbexport/internal/core"
)

// ============================================================================
// Compress Tests
// ============================================================================

func TestCompress_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "my_database.db")

	// Larger than one chunk so the copy loop runs more than once.
	content := bytes.Repeat([]byte("SQLite format 3\x00 inventarioc stock comprasgalpones "), ChunkSize/16)
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	dst := src + ".gz"
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	size, err := Compress(src, dst, gzip.BestCompression)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	info, _ := os.Stat(dst)
	if size != info.Size() || size == 0 {
		t.Errorf("Compress() size = %d, file size = %d", size, info.Size())
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("decompressed %d bytes, want %d identical bytes", len(got), len(content))
	}
}

func TestCompress_Errors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "db")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		src   string
		level int
	}{
		{"missing source", filepath.Join(dir, "nope"), 9},
		{"invalid level", src, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compress(tt.src, filepath.Join(dir, "out.gz"), tt.level); err == nil {
				t.Error("Compress() expected error")
			}
		})
	}
}

// ============================================================================
// Hash and Manifest Tests
// ============================================================================

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("HashFile() = %s, want %s", got, want)
	}
}

func TestManifest_HashMatchesArtifact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "my_database.db")
	if err := os.WriteFile(src, []byte("database bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := src + ".gz"
	if _, err := Compress(src, dst, 9); err != nil {
		t.Fatal(err)
	}

	sha, err := HashFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	m := NewManifest(filepath.Base(dst), sha, core.Counts{Inventory: 2, Stock: 3, Purchases: 2}, "run-1", now)

	path := filepath.Join(dir, "manifest.json")
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if got != m {
		t.Errorf("ReadManifest() = %+v, want %+v", got, m)
	}

	raw, _ := os.ReadFile(dst)
	sum := sha256.Sum256(raw)
	if got.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("manifest sha256 = %s, independent hash = %x", got.SHA256, sum)
	}
	if got.GeneratedAt != "2024-03-09 14:05:07" {
		t.Errorf("GeneratedAt = %q", got.GeneratedAt)
	}
}

func TestWriteManifest_Keys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := NewManifest("db.gz", "00", core.Counts{Inventory: 1}, "", time.Now())
	if err := WriteManifest(path, m); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n  \"db_gz\"") {
		t.Errorf("manifest not indented by two spaces:\n%s", data)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"db_gz", "sha256", "generated_at", "rows"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("manifest missing key %q", key)
		}
	}
	rows, _ := doc["rows"].(map[string]any)
	for _, key := range []string{"inv_rows", "stock_rows", "com_rows"} {
		if _, ok := rows[key]; !ok {
			t.Errorf("rows missing key %q", key)
		}
	}
}
