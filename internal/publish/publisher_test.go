package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// fakeRemote is an in-memory Remote with per-operation failure injection.
type fakeRemote struct {
	dirs      map[string]bool
	files     map[string][]byte
	cwd       string
	fail      map[string]error // keyed by op name: "cwd", "stor", "delete", ...
	sizeDelta int64            // added to every reported size
	ops       []string
	writes    []int
	quit      bool
}

func newFakeRemote(dirs ...string) *fakeRemote {
	f := &fakeRemote{
		dirs:  map[string]bool{"/": true},
		files: make(map[string][]byte),
		cwd:   "/",
		fail:  make(map[string]error),
	}
	for _, d := range dirs {
		f.dirs[d] = true
	}
	return f
}

func (f *fakeRemote) dialer() Dialer {
	return func(context.Context) (Remote, error) {
		if err := f.fail["connect"]; err != nil {
			return nil, err
		}
		return f, nil
	}
}

func (f *fakeRemote) abs(name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(f.cwd, name)
}

func (f *fakeRemote) record(op, arg string) error {
	f.ops = append(f.ops, op+" "+arg)
	return f.fail[op]
}

func (f *fakeRemote) ChangeDir(dir string) error {
	if err := f.record("cwd", dir); err != nil {
		return err
	}
	d := f.abs(dir)
	if !f.dirs[d] {
		return fmt.Errorf("550 %s: %w", dir, fs.ErrNotExist)
	}
	f.cwd = d
	return nil
}

func (f *fakeRemote) MakeDir(dir string) error {
	if err := f.record("mkdir", dir); err != nil {
		return err
	}
	f.dirs[f.abs(dir)] = true
	return nil
}

func (f *fakeRemote) Delete(name string) error {
	if err := f.record("delete", name); err != nil {
		return err
	}
	p := f.abs(name)
	if _, ok := f.files[p]; !ok {
		return fmt.Errorf("550 %s: %w", name, fs.ErrNotExist)
	}
	delete(f.files, p)
	return nil
}

type recordingWriter struct {
	buf    bytes.Buffer
	writes *[]int
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	*w.writes = append(*w.writes, len(p))
	return w.buf.Write(p)
}

func (f *fakeRemote) Store(name string, r io.Reader) error {
	if err := f.record("stor", name); err != nil {
		return err
	}
	w := &recordingWriter{writes: &f.writes}
	if _, err := io.Copy(w, r); err != nil {
		return err
	}
	f.files[f.abs(name)] = w.buf.Bytes()
	return nil
}

func (f *fakeRemote) Rename(from, to string) error {
	if err := f.record("rename", from+" "+to); err != nil {
		return err
	}
	data, ok := f.files[f.abs(from)]
	if !ok {
		return fs.ErrNotExist
	}
	delete(f.files, f.abs(from))
	f.files[f.abs(to)] = data
	return nil
}

func (f *fakeRemote) FileSize(name string) (int64, error) {
	if err := f.record("size", name); err != nil {
		return 0, err
	}
	data, ok := f.files[f.abs(name)]
	if !ok {
		return 0, fs.ErrNotExist
	}
	return int64(len(data)) + f.sizeDelta, nil
}

func (f *fakeRemote) List(name string) ([]string, error) {
	if err := f.record("list", name); err != nil {
		return nil, err
	}
	return []string{name}, nil
}

func (f *fakeRemote) Retrieve(name string) (io.ReadCloser, error) {
	if err := f.record("retr", name); err != nil {
		return nil, err
	}
	data, ok := f.files[f.abs(name)]
	if !ok {
		return nil, fmt.Errorf("550 %s: %w", name, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeRemote) Quit() error {
	f.quit = true
	return f.record("quit", "")
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "my_database.db.gz")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// ============================================================================
// Publish Tests
// ============================================================================

func TestPublish_Success(t *testing.T) {
	remote := newFakeRemote("/exports")
	remote.files["/exports/db.gz"] = []byte("old")
	remote.files["/exports/db.gz.part"] = []byte("orphan")

	p := &Publisher{Name: "fake", Dial: remote.dialer(), Dir: "/exports"}
	local := writeLocal(t, "new artifact")

	if err := p.Publish(context.Background(), local, "db.gz"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got := string(remote.files["/exports/db.gz"]); got != "new artifact" {
		t.Errorf("final object = %q, want new content", got)
	}
	if _, ok := remote.files["/exports/db.gz.part"]; ok {
		t.Error("temporary object left behind")
	}
	if !remote.quit {
		t.Error("session not closed")
	}

	want := []string{
		"cwd /exports",
		"delete db.gz.part",
		"stor db.gz.part",
		"delete db.gz",
		"rename db.gz.part db.gz",
		"list db.gz",
		"size db.gz",
		"quit ",
	}
	if !slices.Equal(remote.ops, want) {
		t.Errorf("ops = %q\nwant  %q", remote.ops, want)
	}
}

func TestPublish_CreatesMissingDir(t *testing.T) {
	remote := newFakeRemote()
	p := &Publisher{Name: "fake", Dial: remote.dialer(), Dir: "/exports"}

	if err := p.Publish(context.Background(), writeLocal(t, "x"), "db.gz"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !slices.Equal(remote.ops[:3], []string{"cwd /exports", "mkdir /exports", "cwd /exports"}) {
		t.Errorf("ops = %q", remote.ops)
	}
	if _, ok := remote.files["/exports/db.gz"]; !ok {
		t.Error("final object not created in new directory")
	}
}

func TestPublish_BlockSizedWrites(t *testing.T) {
	remote := newFakeRemote()
	p := &Publisher{Name: "fake", Dial: remote.dialer(), BlockSize: 4}

	if err := p.Publish(context.Background(), writeLocal(t, "0123456789"), "db.gz"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !slices.Equal(remote.writes, []int{4, 4, 2}) {
		t.Errorf("writes = %v, want [4 4 2]", remote.writes)
	}
}

func TestPublish_SizeMismatchRollsBack(t *testing.T) {
	remote := newFakeRemote("/exports")
	remote.sizeDelta = -1
	p := &Publisher{Name: "fake", Dial: remote.dialer(), Dir: "/exports"}

	err := p.Publish(context.Background(), writeLocal(t, "artifact"), "db.gz")

	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Publish() error = %v, want *IntegrityError", err)
	}
	if integrity.Local != 8 || integrity.Remote != 7 || !integrity.RemoteKnown {
		t.Errorf("IntegrityError = %+v", integrity)
	}
	if integrity.Stale {
		t.Error("Stale = true, want cleanup to succeed")
	}
	if !strings.Contains(err.Error(), "size mismatch") {
		t.Errorf("error = %q, want size mismatch", err)
	}
	if _, ok := remote.files["/exports/db.gz"]; ok {
		t.Error("suspect final object still present")
	}
	if !remote.quit {
		t.Error("session not closed")
	}
}

func TestPublish_SizeMismatchCleanupFails(t *testing.T) {
	remote := newFakeRemote()
	remote.sizeDelta = 5
	remote.fail["delete"] = errors.New("550 permission denied")
	p := &Publisher{Name: "fake", Dial: remote.dialer()}

	err := p.Publish(context.Background(), writeLocal(t, "artifact"), "db.gz")

	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Publish() error = %v, want *IntegrityError", err)
	}
	if !integrity.Stale {
		t.Error("Stale = false, want true when the rollback delete fails")
	}
}

func TestPublish_SizeUnavailable(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["size"] = errors.New("502 SIZE not implemented")
	p := &Publisher{Name: "fake", Dial: remote.dialer()}

	err := p.Publish(context.Background(), writeLocal(t, "artifact"), "db.gz")

	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Publish() error = %v, want *IntegrityError", err)
	}
	if integrity.RemoteKnown {
		t.Error("RemoteKnown = true, want false")
	}
	if _, ok := remote.files["/db.gz"]; ok {
		t.Error("unverified final object still present")
	}
}

func TestPublish_TransferFailures(t *testing.T) {
	tests := []struct {
		failOp string
		wantOp string
	}{
		{"connect", "connect"},
		{"cwd", "cwd"},
		{"stor", "stor"},
		{"rename", "rename"},
	}

	for _, tt := range tests {
		t.Run(tt.failOp, func(t *testing.T) {
			remote := newFakeRemote("/exports")
			remote.files["/exports/db.gz"] = []byte("old")
			remote.fail[tt.failOp] = errors.New("421 service not available")
			p := &Publisher{Name: "fake", Dial: remote.dialer(), Dir: "/exports"}

			err := p.Publish(context.Background(), writeLocal(t, "new"), "db.gz")

			var transfer *TransferError
			if !errors.As(err, &transfer) {
				t.Fatalf("Publish() error = %v, want *TransferError", err)
			}
			if transfer.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", transfer.Op, tt.wantOp)
			}
			if !strings.Contains(err.Error(), "transfer failed") {
				t.Errorf("error = %q", err)
			}
			if tt.failOp != "connect" && !remote.quit {
				t.Error("session not closed after failure")
			}
		})
	}
}

func TestPublish_StorFailureKeepsPreviousObject(t *testing.T) {
	remote := newFakeRemote("/exports")
	remote.files["/exports/db.gz"] = []byte("old")
	remote.fail["stor"] = errors.New("426 connection closed")
	p := &Publisher{Name: "fake", Dial: remote.dialer(), Dir: "/exports"}

	if err := p.Publish(context.Background(), writeLocal(t, "new"), "db.gz"); err == nil {
		t.Fatal("Publish() expected error")
	}
	if got := string(remote.files["/exports/db.gz"]); got != "old" {
		t.Errorf("final object = %q, want previous content untouched", got)
	}
}

func TestPublish_QuitFailureIgnored(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["quit"] = errors.New("connection reset")
	p := &Publisher{Name: "fake", Dial: remote.dialer()}

	if err := p.Publish(context.Background(), writeLocal(t, "x"), "db.gz"); err != nil {
		t.Errorf("Publish() error = %v, want nil", err)
	}
}

func TestPublish_MissingLocalFile(t *testing.T) {
	remote := newFakeRemote()
	p := &Publisher{Name: "fake", Dial: remote.dialer()}

	err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "nope"), "db.gz")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Publish() error = %v, want not-exist", err)
	}
	if len(remote.ops) != 0 {
		t.Errorf("remote touched: %q", remote.ops)
	}
}

// ============================================================================
// Fetch Tests
// ============================================================================

func TestFetch(t *testing.T) {
	remote := newFakeRemote("/exports")
	remote.files["/exports/inventario.csv.gz"] = []byte("gzdata")
	p := &Publisher{Name: "fake", Dial: remote.dialer(), Dir: "/exports"}

	local := filepath.Join(t.TempDir(), "tmp", "inventario.csv.gz")
	if err := p.Fetch(context.Background(), "inventario.csv.gz", local); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "gzdata" {
		t.Errorf("local content = %q", got)
	}
	if _, err := os.Stat(local + TempSuffix); !os.IsNotExist(err) {
		t.Error("temporary download left behind")
	}
	if !remote.quit {
		t.Error("session not closed")
	}
}

func TestFetch_Missing(t *testing.T) {
	remote := newFakeRemote("/exports")
	p := &Publisher{Name: "fake", Dial: remote.dialer(), Dir: "/exports"}

	local := filepath.Join(t.TempDir(), "compras.csv.gz")
	err := p.Fetch(context.Background(), "/exports/compras.csv.gz", local)

	var transfer *TransferError
	if !errors.As(err, &transfer) || transfer.Op != "retr" {
		t.Fatalf("Fetch() error = %v, want retr TransferError", err)
	}
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Error("local file created for failed download")
	}
}

// ============================================================================
// GCS Tests
// ============================================================================

func TestGCSObjectName(t *testing.T) {
	tests := []struct {
		dir  string
		name string
		want string
	}{
		{"", "db.gz", "db.gz"},
		{"exports", "db.gz", "exports/db.gz"},
		{"/exports/", "db.gz.part", "exports/db.gz.part"},
		{"exports", "/other/db.gz", "other/db.gz"},
	}

	for _, tt := range tests {
		r := &gcsRemote{}
		if err := r.ChangeDir(tt.dir); err != nil {
			t.Fatal(err)
		}
		if got := r.objectName(tt.name); got != tt.want {
			t.Errorf("dir %q objectName(%q) = %q, want %q", tt.dir, tt.name, got, tt.want)
		}
	}
}

func TestGCSContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"my_database.db.gz", "application/gzip"},
		{"my_database.db.gz" + TempSuffix, "application/gzip"},
		{"manifest.json", "application/json"},
		{"manifest.json" + TempSuffix, "application/json"},
		{"my_database.db", "application/vnd.sqlite3"},
		{"inventario.csv", "text/csv"},
		{"notes", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentType(tt.name); got != tt.want {
			t.Errorf("contentType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
