package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for omlplot
type Config struct {
	Log     LogConfig
	Plot    PlotConfig
	Input   InputConfig
	Storage StorageConfig
	Export  ExportConfig
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

type PlotConfig struct {
	WidthIn   float64 // Figure width in inches
	HeightIn  float64 // Figure height in inches
	OutputDir string
	Format    string // png, svg or pdf
}

type InputConfig struct {
	MaxSize int64 // Maximum decompressed input size in bytes, 0 disables the limit
}

// StorageConfig configures the remote backends reached through s3:// and
// azure:// locations. Bucket and container names come from the location.
type StorageConfig struct {
	// S3/MinIO configuration
	S3Region    string
	S3Endpoint  string // Custom endpoint for MinIO (e.g., "http://localhost:9000")
	S3AccessKey string // AWS access key (or use AWS_ACCESS_KEY_ID env var)
	S3SecretKey string // AWS secret key (or use AWS_SECRET_ACCESS_KEY env var)
	S3UseSSL    bool
	S3PathStyle bool // Use path-style addressing (required for MinIO)
	// Azure Blob Storage configuration
	AzureConnectionString   string
	AzureAccountName        string
	AzureAccountKey         string
	AzureSASToken           string
	AzureEndpoint           string // Custom endpoint (for Azurite testing)
	AzureUseManagedIdentity bool
}

type ExportConfig struct {
	Format      string // parquet or msgpack
	Compression string // Parquet compression: snappy, gzip, zstd, none
	Workers     int    // Files converted concurrently
	OutputDir   string
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"output-dir":    "plot.output_dir",
	"figure-format": "plot.format",
	"format":        "export.format",
	"compression":   "export.compression",
	"workers":       "export.workers",
	"export-dir":    "export.output_dir",
}

// Load loads configuration from defaults, an optional config file, the
// environment and, when flags is not nil, the command line (highest
// precedence). An empty path searches the usual locations.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("OMLPLOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("omlplot")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/omlplot/")
		v.AddConfigPath("$HOME/.omlplot/")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			// Config file not found is OK, use defaults
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	maxSize, err := ParseSize(v.GetString("input.max_size"))
	if err != nil {
		return nil, fmt.Errorf("invalid input.max_size: %w", err)
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Plot: PlotConfig{
			WidthIn:   v.GetFloat64("plot.width_in"),
			HeightIn:  v.GetFloat64("plot.height_in"),
			OutputDir: v.GetString("plot.output_dir"),
			Format:    strings.ToLower(v.GetString("plot.format")),
		},
		Input: InputConfig{
			MaxSize: maxSize,
		},
		Storage: StorageConfig{
			S3Region:                v.GetString("storage.s3_region"),
			S3Endpoint:              v.GetString("storage.s3_endpoint"),
			S3AccessKey:             v.GetString("storage.s3_access_key"),
			S3SecretKey:             v.GetString("storage.s3_secret_key"),
			S3UseSSL:                v.GetBool("storage.s3_use_ssl"),
			S3PathStyle:             v.GetBool("storage.s3_path_style"),
			AzureConnectionString:   v.GetString("storage.azure_connection_string"),
			AzureAccountName:        v.GetString("storage.azure_account_name"),
			AzureAccountKey:         v.GetString("storage.azure_account_key"),
			AzureSASToken:           v.GetString("storage.azure_sas_token"),
			AzureEndpoint:           v.GetString("storage.azure_endpoint"),
			AzureUseManagedIdentity: v.GetBool("storage.azure_use_managed_identity"),
		},
		Export: ExportConfig{
			Format:      strings.ToLower(v.GetString("export.format")),
			Compression: strings.ToLower(v.GetString("export.compression")),
			Workers:     v.GetInt("export.workers"),
			OutputDir:   v.GetString("export.output_dir"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Plot defaults
	v.SetDefault("plot.width_in", 8.0)
	v.SetDefault("plot.height_in", 6.0)
	v.SetDefault("plot.output_dir", ".")
	v.SetDefault("plot.format", "png")

	// Input defaults - refuse inputs above 2GB once decompressed
	v.SetDefault("input.max_size", "2GB")

	// Storage defaults
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.s3_use_ssl", true)
	v.SetDefault("storage.s3_path_style", false)
	v.SetDefault("storage.azure_connection_string", "")
	v.SetDefault("storage.azure_account_name", "")
	v.SetDefault("storage.azure_account_key", "")
	v.SetDefault("storage.azure_sas_token", "")
	v.SetDefault("storage.azure_endpoint", "")
	v.SetDefault("storage.azure_use_managed_identity", false)

	// Export defaults
	v.SetDefault("export.format", "parquet")
	v.SetDefault("export.compression", "snappy")
	v.SetDefault("export.workers", getDefaultWorkers())
	v.SetDefault("export.output_dir", ".")
}

// getDefaultWorkers returns the number of CPU cores, capped at 8
func getDefaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	return n
}

// Validate checks enumerated settings and sizes.
func (c *Config) Validate() error {
	switch c.Plot.Format {
	case "png", "svg", "pdf":
	default:
		return fmt.Errorf("invalid plot.format %q (use png, svg or pdf)", c.Plot.Format)
	}
	if c.Plot.WidthIn <= 0 || c.Plot.HeightIn <= 0 {
		return fmt.Errorf("plot size must be positive, got %gx%g inches", c.Plot.WidthIn, c.Plot.HeightIn)
	}
	switch c.Export.Format {
	case "parquet", "msgpack":
	default:
		return fmt.Errorf("invalid export.format %q (use parquet or msgpack)", c.Export.Format)
	}
	switch c.Export.Compression {
	case "snappy", "gzip", "zstd", "none":
	default:
		return fmt.Errorf("invalid export.compression %q (use snappy, gzip, zstd or none)", c.Export.Compression)
	}
	if c.Export.Workers < 1 {
		return fmt.Errorf("export.workers must be at least 1, got %d", c.Export.Workers)
	}
	return nil
}

// ParseSize parses a human-readable size string (e.g., "1GB", "500MB", "100KB") to bytes.
// Supports: B, KB, MB, GB (case-insensitive). "0" disables a limit.
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	type unitInfo struct {
		suffix     string
		multiplier int64
	}
	units := []unitInfo{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, unit := range units {
		if strings.HasSuffix(sizeStr, unit.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(sizeStr, unit.suffix))

			var num float64
			var trailing string
			n, _ := fmt.Sscanf(numStr, "%f%s", &num, &trailing)
			if n == 0 {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			if trailing != "" {
				return 0, fmt.Errorf("invalid size format: %s (use e.g., '1GB', '500MB', '100KB')", sizeStr)
			}
			if num < 0 {
				return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
			}
			return int64(num * float64(unit.multiplier)), nil
		}
	}

	// Plain number of bytes
	var num int64
	var trailing string
	n, _ := fmt.Sscanf(sizeStr, "%d%s", &num, &trailing)
	if n == 0 || trailing != "" {
		return 0, fmt.Errorf("invalid size format: %s (use e.g., '1GB', '500MB', '100KB')", sizeStr)
	}
	if num < 0 {
		return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
	}
	return num, nil
}
