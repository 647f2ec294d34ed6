package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
// Remote credentials are checked separately by ValidateRemote.
func (c *Config) Validate() error {
	var errs []string

	// FTP validation
	if c.FTP.Port <= 0 || c.FTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("FTP_PORT (%d) must be 1-65535", c.FTP.Port))
	}
	if c.FTP.Dir == "" {
		errs = append(errs, "FTP_DIR must not be empty")
	}
	if c.FTP.ConnectTimeout <= 0 {
		errs = append(errs, "FTP_CONNECT_TIMEOUT must be positive")
	}
	if c.FTP.BlockSize <= 0 {
		errs = append(errs, "FTP_BLOCK_SIZE must be positive")
	}

	// Sources validation
	if c.Sources.InventoryPath == "" && c.Sources.InventoryRemote == "" {
		errs = append(errs, "one of INV_GZ or INV_REMOTE is required")
	}
	if c.Sources.PurchasesPath == "" && c.Sources.PurchasesRemote == "" {
		errs = append(errs, "one of COM_GZ or COM_REMOTE is required")
	}

	// Build validation
	if c.Build.OutputDir == "" {
		errs = append(errs, "OUTPUT_DIR must not be empty")
	}
	if c.Build.DBName == "" || strings.ContainsAny(c.Build.DBName, `/\`) {
		errs = append(errs, fmt.Sprintf("DB_NAME (%q) must be a plain file name", c.Build.DBName))
	}
	if c.Build.ManifestName == "" || strings.ContainsAny(c.Build.ManifestName, `/\`) {
		errs = append(errs, fmt.Sprintf("MANIFEST_NAME (%q) must be a plain file name", c.Build.ManifestName))
	}
	if c.Build.BatchSize <= 0 {
		errs = append(errs, "BUILD_BATCH_SIZE must be positive")
	}
	if c.Build.CompressLevel < 1 || c.Build.CompressLevel > 9 {
		errs = append(errs, fmt.Sprintf("BUILD_COMPRESS_LEVEL (%d) must be 1-9", c.Build.CompressLevel))
	}
	if c.Build.SniffSampleSize < 512 {
		errs = append(errs, "BUILD_SNIFF_SAMPLE must be at least 512")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ConfigurationError reports mandatory connection parameters that are not set.
// It is fatal: retrying without changing the environment cannot succeed.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// ValidateRemote checks the parameters needed to reach the FTPS server.
// Returns a *ConfigurationError naming every missing variable.
func (c *Config) ValidateRemote() error {
	var missing []string
	if strings.TrimSpace(c.FTP.Host) == "" {
		missing = append(missing, "FTP_HOST")
	}
	if strings.TrimSpace(c.FTP.User) == "" {
		missing = append(missing, "FTP_USER")
	}
	if strings.TrimSpace(c.FTP.Password) == "" {
		missing = append(missing, "FTP_PASS")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// The FTP password is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("FTP: {Addr: %q, User: %q, Password: [MASKED], Dir: %q}, ",
		c.FTP.Addr(), c.FTP.User, c.FTP.Dir))
	b.WriteString(fmt.Sprintf("Sources: {Inventory: %q, Purchases: %q}, ",
		c.Sources.InventoryPath, c.Sources.PurchasesPath))
	b.WriteString(fmt.Sprintf("Build: {OutputDir: %q, DBName: %q, BatchSize: %d}, ",
		c.Build.OutputDir, c.Build.DBName, c.Build.BatchSize))
	b.WriteString(fmt.Sprintf("Mirror: {Bucket: %q}, ", c.Mirror.Bucket))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
