// Package pipeline sequences one export run: locate the two sources, load
// them into a fresh store, package the store and publish it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/dbexport/internal/artifact"
	"github.com/JonMunkholm/dbexport/internal/config"
	"github.com/JonMunkholm/dbexport/internal/core"
	"github.com/JonMunkholm/dbexport/internal/logging"
	"github.com/JonMunkholm/dbexport/internal/publish"
	"github.com/JonMunkholm/dbexport/internal/store"

	// Registers the inventory and purchases source definitions.
	_ "github.com/JonMunkholm/dbexport/internal/core/tables"
)

// Phase names a step of a run in logs.
type Phase string

const (
	PhaseSources Phase = "sources"
	PhaseBuild   Phase = "build"
	PhasePackage Phase = "package"
	PhasePublish Phase = "publish"
)

// Result summarizes a run.
type Result struct {
	InventoryPath string
	PurchasesPath string
	DBPath        string
	ArtifactPath  string
	ManifestPath  string
	ArtifactBytes int64
	SHA256        string
	Counts        core.Counts
	Stored        store.Summary
	Duration      time.Duration
}

// Orchestrator runs export steps with one configuration.
type Orchestrator struct {
	cfg      *config.Config
	ingestor *core.Ingestor

	// Primary receives the artifact and manifest and serves source
	// downloads. Mirror, when set, receives a copy of both.
	Primary *publish.Publisher
	Mirror  *publish.Publisher

	// Now stamps manifests.
	Now func() time.Time
}

// New creates an orchestrator publishing over FTPS and, when configured,
// mirroring to Cloud Storage.
func New(cfg *config.Config) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		ingestor: core.NewIngestor(cfg.Build.BatchSize, cfg.Build.SniffSampleSize),
		Primary: &publish.Publisher{
			Name:      "ftps",
			Dial:      publish.DialFTPS(&cfg.FTP),
			Dir:       cfg.FTP.Dir,
			BlockSize: cfg.FTP.BlockSize,
		},
		Now: time.Now,
	}
	if cfg.MirrorEnabled() {
		o.Mirror = &publish.Publisher{
			Name:      "gcs",
			Dial:      publish.DialGCS(&cfg.Mirror, cfg.FTP.BlockSize),
			Dir:       cfg.Mirror.Prefix,
			BlockSize: cfg.FTP.BlockSize,
		}
	}
	return o
}

// Run executes the full export: Prepare, then publish the artifact and the
// manifest to the primary remote and the mirror.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if err := o.cfg.ValidateRemote(); err != nil {
		return nil, err
	}

	res, err := o.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	start := o.Now()
	if err := o.publishAll(ctx, res); err != nil {
		return nil, err
	}
	res.Duration += o.Now().Sub(start)

	logging.FromContext(ctx).Info("export complete",
		"artifact", o.cfg.Build.ArtifactName(),
		"sha256", res.SHA256,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

// Prepare locates the sources, builds the store and packages it locally.
func (o *Orchestrator) Prepare(ctx context.Context) (*Result, error) {
	start := o.Now()

	invPath, comPath, err := o.ResolveSources(ctx)
	if err != nil {
		return nil, err
	}

	res, err := o.Build(ctx, invPath, comPath)
	if err != nil {
		return nil, err
	}

	if err := o.Package(ctx, res); err != nil {
		return nil, err
	}

	res.Duration = o.Now().Sub(start)
	return res, nil
}

// ResolveSources returns local paths for both sources, downloading a
// source from the primary remote when its local path is unset or missing.
func (o *Orchestrator) ResolveSources(ctx context.Context) (inv, com string, err error) {
	src := o.cfg.Sources
	inv, err = o.resolveSource(ctx, core.SourceInventory, src.InventoryPath, src.InventoryRemote)
	if err != nil {
		return "", "", err
	}
	com, err = o.resolveSource(ctx, core.SourcePurchases, src.PurchasesPath, src.PurchasesRemote)
	if err != nil {
		return "", "", err
	}
	return inv, com, nil
}

func (o *Orchestrator) resolveSource(ctx context.Context, key, local, remote string) (string, error) {
	logger := logging.WithFields(ctx, "phase", PhaseSources, "source", key)

	if local != "" {
		_, err := os.Stat(local)
		if err == nil {
			return local, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("open source: %w", err)
		}
	}

	if err := o.cfg.ValidateRemote(); err != nil {
		return "", err
	}

	target := filepath.Join(o.cfg.Sources.DownloadDir, path.Base(remote))
	logger.Info("local source missing, downloading",
		"local", local,
		"remote", remote,
		"target", target,
	)
	if err := o.Primary.Fetch(ctx, remote, target); err != nil {
		return "", err
	}
	return target, nil
}

// Build loads both sources into a new store at the configured path. The
// store is closed on every path; on success the file is finalized.
func (o *Orchestrator) Build(ctx context.Context, invPath, comPath string) (*Result, error) {
	logger := logging.WithFields(ctx, "phase", PhaseBuild)
	dbPath := o.cfg.Build.DBPath()

	invDef, err := core.Lookup(core.SourceInventory)
	if err != nil {
		return nil, err
	}
	comDef, err := core.Lookup(core.SourcePurchases)
	if err != nil {
		return nil, err
	}

	st, err := store.Create(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	logger.Info("building store", "db", dbPath, "inventory", invPath, "purchases", comPath)

	invCounts, err := o.ingestor.IngestInventory(ctx, invPath, invDef, st)
	if err != nil {
		return nil, err
	}
	if err := st.CreateInventoryIndexes(ctx); err != nil {
		return nil, err
	}
	logger.Info("inventory loaded",
		"inv_rows", invCounts.Inventory,
		"stock_rows", invCounts.Stock,
	)

	comCounts, err := o.ingestor.IngestPurchases(ctx, comPath, comDef, st)
	if err != nil {
		return nil, err
	}
	if err := st.CreatePurchaseIndexes(ctx); err != nil {
		return nil, err
	}
	logger.Info("purchases loaded", "com_rows", comCounts.Purchases)

	if err := st.Finalize(ctx); err != nil {
		return nil, err
	}

	counts := invCounts.Add(comCounts)
	stored, err := store.Inspect(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	logger.Info("store finalized",
		"inv_rows", stored.Inventory,
		"stock_rows", stored.Stock,
		"com_rows", stored.Purchases,
		"stock_rows_emitted", counts.Stock,
	)

	return &Result{
		InventoryPath: invPath,
		PurchasesPath: comPath,
		DBPath:        dbPath,
		Counts:        counts,
		Stored:        stored,
	}, nil
}

// Package compresses the store, hashes the compressed file and writes the
// manifest next to it.
func (o *Orchestrator) Package(ctx context.Context, res *Result) error {
	logger := logging.WithFields(ctx, "phase", PhasePackage)
	b := o.cfg.Build

	size, err := artifact.Compress(res.DBPath, b.ArtifactPath(), b.CompressLevel)
	if err != nil {
		return err
	}
	sha, err := artifact.HashFile(b.ArtifactPath())
	if err != nil {
		return err
	}

	m := artifact.NewManifest(b.ArtifactName(), sha, res.Counts, logging.RunID(ctx), o.Now())
	if err := artifact.WriteManifest(b.ManifestPath(), m); err != nil {
		return err
	}

	res.ArtifactPath = b.ArtifactPath()
	res.ManifestPath = b.ManifestPath()
	res.ArtifactBytes = size
	res.SHA256 = sha

	logger.Info("artifact written",
		"file", res.ArtifactPath,
		"bytes", size,
		"sha256", sha,
		"manifest", res.ManifestPath,
	)
	return nil
}

// publishAll uploads the artifact, then the manifest, so a consumer that
// sees a new manifest always finds the artifact it describes. A mirror
// failure is logged and does not fail the run.
func (o *Orchestrator) publishAll(ctx context.Context, res *Result) error {
	if err := o.publishTo(ctx, o.Primary, res); err != nil {
		return err
	}
	if o.Mirror == nil {
		return nil
	}
	if err := o.publishTo(ctx, o.Mirror, res); err != nil {
		logging.WithFields(ctx, "phase", PhasePublish, "remote", o.Mirror.Name).
			Warn("mirror publish failed", "error", err)
	}
	return nil
}

func (o *Orchestrator) publishTo(ctx context.Context, p *publish.Publisher, res *Result) error {
	if err := p.Publish(ctx, res.ArtifactPath, filepath.Base(res.ArtifactPath)); err != nil {
		return err
	}
	return p.Publish(ctx, res.ManifestPath, filepath.Base(res.ManifestPath))
}

// PublishFile publishes one local file to the primary remote.
func (o *Orchestrator) PublishFile(ctx context.Context, localPath, remoteName string) error {
	if err := o.cfg.ValidateRemote(); err != nil {
		return err
	}
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}
	return o.Primary.Publish(ctx, localPath, remoteName)
}

// FetchFile downloads one remote file from the primary remote.
func (o *Orchestrator) FetchFile(ctx context.Context, remotePath, localPath string) error {
	if err := o.cfg.ValidateRemote(); err != nil {
		return err
	}
	return o.Primary.Fetch(ctx, remotePath, localPath)
}
