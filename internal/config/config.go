// Package config provides centralized configuration management for the exporter.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// The resulting *Config is built once in main and passed by pointer into every
// component; nothing else in the module reads the process environment.
package config

import (
	"path/filepath"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	FTP     FTPConfig
	Sources SourcesConfig
	Build   BuildConfig
	Mirror  MirrorConfig
	Logging LoggingConfig
}

// FTPConfig holds the remote endpoint the artifact is published to.
type FTPConfig struct {
	// Host is the FTPS server host name. Required for any remote operation.
	Host string `env:"FTP_HOST"`

	// Port is the control channel port (default: 21)
	Port int `env:"FTP_PORT" default:"21"`

	// User is the login name. Required for any remote operation.
	User string `env:"FTP_USER"`

	// Password is the login password. Required for any remote operation.
	Password string `env:"FTP_PASS" envAlt:"FTP_PASSWORD"`

	// Dir is the remote target directory (default: /exports)
	Dir string `env:"FTP_DIR" default:"/exports"`

	// ConnectTimeout bounds dialing the control channel (default: 45s)
	ConnectTimeout time.Duration `env:"FTP_CONNECT_TIMEOUT" default:"45s"`

	// BlockSize is the transfer block size in bytes (default: 128KiB)
	BlockSize int `env:"FTP_BLOCK_SIZE" default:"131072"`

	// InsecureSkipVerify disables server certificate verification (default: false)
	InsecureSkipVerify bool `env:"FTP_TLS_INSECURE" default:"false"`
}

// SourcesConfig holds the locations of the two compressed input files.
type SourcesConfig struct {
	// InventoryPath is the local inventory .csv.gz. When empty or missing,
	// InventoryRemote is fetched instead.
	InventoryPath string `env:"INV_GZ"`

	// PurchasesPath is the local purchases .csv.gz.
	PurchasesPath string `env:"COM_GZ"`

	// InventoryRemote is the fallback remote path, relative to FTP_DIR unless absolute.
	InventoryRemote string `env:"INV_REMOTE" default:"inventario.csv.gz"`

	// PurchasesRemote is the fallback remote path, relative to FTP_DIR unless absolute.
	PurchasesRemote string `env:"COM_REMOTE" default:"compras.csv.gz"`

	// DownloadDir receives fetched sources (default: tmp)
	DownloadDir string `env:"DOWNLOAD_DIR" default:"tmp"`
}

// BuildConfig holds settings for building the relational store artifact.
type BuildConfig struct {
	// OutputDir receives the database, its compressed form and the manifest (default: output)
	OutputDir string `env:"OUTPUT_DIR" default:"output"`

	// DBName is the SQLite file name (default: my_database.db)
	DBName string `env:"DB_NAME" default:"my_database.db"`

	// ManifestName is the manifest file name (default: manifest.json)
	ManifestName string `env:"MANIFEST_NAME" default:"manifest.json"`

	// BatchSize is the number of rows per bulk write (default: 10000)
	BatchSize int `env:"BUILD_BATCH_SIZE" default:"10000"`

	// CompressLevel is the gzip level for the artifact, 1-9 (default: 9)
	CompressLevel int `env:"BUILD_COMPRESS_LEVEL" default:"9"`

	// SniffSampleSize is the number of bytes sampled for dialect detection (default: 8192)
	SniffSampleSize int `env:"BUILD_SNIFF_SAMPLE" default:"8192"`
}

// MirrorConfig holds the optional object-store mirror of the published artifact.
type MirrorConfig struct {
	// Bucket enables the mirror when non-empty.
	Bucket string `env:"GCS_MIRROR_BUCKET"`

	// Prefix is the object prefix inside the bucket (default: exports)
	Prefix string `env:"GCS_MIRROR_PREFIX" default:"exports"`

	// CredentialsFile is a service account JSON file; empty uses application default credentials.
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the control channel address in host:port format.
func (c *FTPConfig) Addr() string {
	return c.Host + ":" + itoa(c.Port)
}

// DBPath returns the path of the uncompressed store.
func (c *BuildConfig) DBPath() string {
	return filepath.Join(c.OutputDir, c.DBName)
}

// ArtifactName returns the file name of the compressed store.
func (c *BuildConfig) ArtifactName() string {
	return c.DBName + ".gz"
}

// ArtifactPath returns the path of the compressed store.
func (c *BuildConfig) ArtifactPath() string {
	return filepath.Join(c.OutputDir, c.ArtifactName())
}

// ManifestPath returns the path of the manifest document.
func (c *BuildConfig) ManifestPath() string {
	return filepath.Join(c.OutputDir, c.ManifestName)
}

// MirrorEnabled reports whether the object-store mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.Mirror.Bucket != ""
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
