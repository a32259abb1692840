package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level    string
	Timezone string
}

// DatabaseConfig holds the primary metadata backend settings.
// Driver selects the primary backend: "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver             string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// SQLiteConfig holds the file-based backend settings. Path is used when
// SQLite is the primary driver, FallbackPath when Postgres is unreachable.
type SQLiteConfig struct {
	Path         string
	FallbackPath string
}

// StorageConfig selects the content storage backend ("local" or "minio").
type StorageConfig struct {
	Backend          string
	Dir              string
	PresignDownloads bool
	PresignExpiry    time.Duration
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// QRConfig holds generation defaults and limits.
type QRConfig struct {
	DefaultSize     int
	MinSize         int
	MaxSize         int
	DefaultFormat   string
	DefaultECC      string
	DefaultFG       string
	DefaultBG       string
	QuietZone       int
	LogoSizePercent int
	LogoOpacity     float64
}

// BatchConfig holds CSV batch limits.
type BatchConfig struct {
	MaxItems         int
	MaxFileSizeBytes int64
	PersistItems     bool
	RunTimeout       time.Duration
}

// CleanupConfig controls artifact eviction.
type CleanupConfig struct {
	RetentionWindow    time.Duration
	Interval           time.Duration
	TriggerProbability float64
}

// PresetCacheConfig sizes the in-memory style preset cache.
type PresetCacheConfig struct {
	Size int
	TTL  time.Duration
}

// AdminConfig guards the administrative routes.
type AdminConfig struct {
	Token string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables and validated once by Load.
type AppConfig struct {
	AppHost       string
	Port          string
	PublicBaseURL string
	Log           LogConfig
	Database      DatabaseConfig
	SQLite        SQLiteConfig
	Storage       StorageConfig
	MinIO         MinIOConfig
	QR            QRConfig
	Batch         BatchConfig
	Cleanup       CleanupConfig
	Presets       PresetCacheConfig
	Admin         AdminConfig
}

// strictPrefixes are the service-owned variable namespaces. Any variable under
// one of them that Load does not recognize is reported as a configuration error.
var strictPrefixes = []string{"QR_", "BATCH_", "CLEANUP_", "STORAGE_"}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Malformed values and unknown keys under the service prefixes are errors.
func Load() (*AppConfig, error) {
	l := &loader{seen: make(map[string]bool)}

	cfg := &AppConfig{
		AppHost:       l.str("APP_HOST", "localhost:8080"),
		Port:          l.str("PORT", "8080"),
		PublicBaseURL: l.str("PUBLIC_BASE_URL", ""),
		Log: LogConfig{
			Level:    l.str("LOG_LEVEL", "info"),
			Timezone: l.str("APP_TIMEZONE", "UTC"),
		},
		Database: DatabaseConfig{
			Driver:             l.str("DB_DRIVER", "postgres"),
			Host:               l.str("DB_HOST", ""),
			Port:               l.str("DB_PORT", "5432"),
			User:               l.str("DB_USER", ""),
			Password:           l.str("DB_PASSWORD", ""),
			Name:               l.str("DB_NAME", ""),
			SSLMode:            l.str("DB_SSLMODE", "disable"),
			MaxOpenConns:       l.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       l.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: l.int("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		SQLite: SQLiteConfig{
			Path:         l.str("SQLITE_PATH", "data/qrforge.db"),
			FallbackPath: l.str("SQLITE_FALLBACK_PATH", "data/qrforge_fallback.db"),
		},
		Storage: StorageConfig{
			Backend:          l.str("STORAGE_BACKEND", "local"),
			Dir:              l.str("STORAGE_DIR", "cache"),
			PresignDownloads: l.bool("STORAGE_PRESIGN_DOWNLOADS", false),
			PresignExpiry:    l.duration("STORAGE_PRESIGN_EXPIRY", 15*time.Minute),
		},
		MinIO: MinIOConfig{
			Endpoint:  l.str("MINIO_ENDPOINT", ""),
			AccessKey: l.str("MINIO_ACCESS_KEY", ""),
			SecretKey: l.str("MINIO_SECRET_KEY", ""),
			Bucket:    l.str("MINIO_BUCKET", ""),
			UseSSL:    l.bool("MINIO_USE_SSL", false),
		},
		QR: QRConfig{
			DefaultSize:     l.int("QR_DEFAULT_SIZE", 200),
			MinSize:         l.int("QR_MIN_SIZE", 100),
			MaxSize:         l.int("QR_MAX_SIZE", 1000),
			DefaultFormat:   l.str("QR_DEFAULT_FORMAT", "png"),
			DefaultECC:      l.str("QR_DEFAULT_ECC", "M"),
			DefaultFG:       l.str("QR_DEFAULT_FG_COLOR", "#000000"),
			DefaultBG:       l.str("QR_DEFAULT_BG_COLOR", "#ffffff"),
			QuietZone:       l.int("QR_QUIET_ZONE", 4),
			LogoSizePercent: l.int("QR_LOGO_SIZE_PERCENT", 20),
			LogoOpacity:     l.float("QR_LOGO_OPACITY", 1.0),
		},
		Batch: BatchConfig{
			MaxItems:         l.int("BATCH_MAX_ITEMS", 1000),
			MaxFileSizeBytes: int64(l.int("BATCH_MAX_FILE_SIZE_BYTES", 10<<20)),
			PersistItems:     l.bool("BATCH_PERSIST_ITEMS", false),
			RunTimeout:       l.duration("BATCH_RUN_TIMEOUT", 10*time.Minute),
		},
		Cleanup: CleanupConfig{
			RetentionWindow:    l.duration("CLEANUP_RETENTION_WINDOW", 30*24*time.Hour),
			Interval:           l.duration("CLEANUP_INTERVAL", time.Hour),
			TriggerProbability: l.float("CLEANUP_TRIGGER_PROBABILITY", 0.01),
		},
		Presets: PresetCacheConfig{
			Size: l.int("PRESET_CACHE_SIZE", 64),
			TTL:  l.duration("PRESET_CACHE_TTL", 5*time.Minute),
		},
		Admin: AdminConfig{
			Token: l.str("ADMIN_TOKEN", ""),
		},
	}

	l.checkUnknown(os.Environ())
	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves the configured log/display time zone.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Log.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks cross-field constraints. It is called by Load and can be
// reused for configs assembled in code.
func (c *AppConfig) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		add("DB_DRIVER: unsupported driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Dir == "" {
			add("STORAGE_DIR: required for local storage")
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			add("MINIO_ENDPOINT/MINIO_BUCKET: required for minio storage")
		}
	default:
		add("STORAGE_BACKEND: unsupported backend %q", c.Storage.Backend)
	}
	if c.QR.MinSize <= 0 || c.QR.MinSize > c.QR.MaxSize {
		add("QR_MIN_SIZE/QR_MAX_SIZE: invalid range %d..%d", c.QR.MinSize, c.QR.MaxSize)
	}
	if c.QR.DefaultSize < c.QR.MinSize || c.QR.DefaultSize > c.QR.MaxSize {
		add("QR_DEFAULT_SIZE: %d outside %d..%d", c.QR.DefaultSize, c.QR.MinSize, c.QR.MaxSize)
	}
	switch strings.ToLower(c.QR.DefaultFormat) {
	case "png", "jpeg", "jpg", "svg":
	default:
		add("QR_DEFAULT_FORMAT: unsupported format %q", c.QR.DefaultFormat)
	}
	switch strings.ToUpper(c.QR.DefaultECC) {
	case "L", "M", "Q", "H":
	default:
		add("QR_DEFAULT_ECC: unsupported level %q", c.QR.DefaultECC)
	}
	if c.QR.QuietZone < 0 {
		add("QR_QUIET_ZONE: must be >= 0")
	}
	if c.QR.LogoSizePercent <= 0 || c.QR.LogoSizePercent > 40 {
		add("QR_LOGO_SIZE_PERCENT: must be in 1..40")
	}
	if c.QR.LogoOpacity <= 0 || c.QR.LogoOpacity > 1 {
		add("QR_LOGO_OPACITY: must be in (0,1]")
	}
	if c.Batch.MaxItems <= 0 {
		add("BATCH_MAX_ITEMS: must be > 0")
	}
	if c.Batch.MaxFileSizeBytes <= 0 {
		add("BATCH_MAX_FILE_SIZE_BYTES: must be > 0")
	}
	if c.Cleanup.RetentionWindow <= 0 {
		add("CLEANUP_RETENTION_WINDOW: must be > 0")
	}
	if c.Cleanup.Interval < 0 {
		add("CLEANUP_INTERVAL: must be >= 0")
	}
	if c.Cleanup.TriggerProbability < 0 || c.Cleanup.TriggerProbability > 1 {
		add("CLEANUP_TRIGGER_PROBABILITY: must be in [0,1]")
	}
	if c.Presets.Size <= 0 {
		add("PRESET_CACHE_SIZE: must be > 0")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// loader reads typed values and records every key it was asked about so
// unknown keys can be detected afterwards.
type loader struct {
	seen map[string]bool
	errs []error
}

func (l *loader) str(key, def string) string {
	l.seen[key] = true
	return getEnv(key, def)
}

func (l *loader) int(key string, def int) int {
	l.seen[key] = true
	v, err := getEnvInt(key, def)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func (l *loader) bool(key string, def bool) bool {
	l.seen[key] = true
	v, err := getEnvBool(key, def)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func (l *loader) float(key string, def float64) float64 {
	l.seen[key] = true
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return f
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	l.seen[key] = true
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// plain integers are accepted as seconds
		secs, convErr := strconv.Atoi(v)
		if convErr != nil {
			l.errs = append(l.errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return def
		}
		d = time.Duration(secs) * time.Second
	}
	return d
}

func (l *loader) checkUnknown(environ []string) {
	var unknown []string
	for _, kv := range environ {
		key, _, _ := strings.Cut(kv, "=")
		for _, p := range strictPrefixes {
			if strings.HasPrefix(key, p) && !l.seen[key] {
				unknown = append(unknown, key)
				break
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		l.errs = append(l.errs, fmt.Errorf("unknown configuration keys: %s", strings.Join(unknown, ", ")))
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return i, nil
}
