package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"qrforge/internal/database"
)

type migrationStep struct {
	Name string
	SQL  string
}

var postgresSteps = []migrationStep{
	{
		Name: "create_table_qr_codes",
		SQL: `CREATE TABLE IF NOT EXISTS qr_codes (
  id            UUID        PRIMARY KEY,
  filename      TEXT        NOT NULL UNIQUE,
  storage_path  TEXT        NOT NULL,
  data_type     TEXT        NOT NULL,
  original_data TEXT        NOT NULL DEFAULT '{}',
  payload       TEXT        NOT NULL CHECK (payload <> ''),
  size          INTEGER     NOT NULL DEFAULT 200,
  file_size     BIGINT      NOT NULL DEFAULT 0 CHECK (file_size >= 0),
  fg_color      TEXT        NOT NULL DEFAULT '#000000',
  bg_color      TEXT        NOT NULL DEFAULT '#ffffff',
  format        TEXT        NOT NULL DEFAULT 'png',
  ecc_level     TEXT        NOT NULL DEFAULT 'M',
  template      TEXT        NOT NULL DEFAULT '',
  dot_style     TEXT        NOT NULL DEFAULT 'square',
  corner_style  TEXT        NOT NULL DEFAULT 'square',
  has_logo      BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  expires_at    TIMESTAMPTZ NOT NULL,
  access_count  BIGINT      NOT NULL DEFAULT 0 CHECK (access_count >= 0),
  ip_address    TEXT        NOT NULL DEFAULT '',
  user_agent    TEXT        NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_index_qr_codes_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_qr_codes_created_at ON qr_codes (created_at);`,
	},
	{
		Name: "create_index_qr_codes_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_qr_codes_expires_at ON qr_codes (expires_at);`,
	},
	{
		Name: "create_table_batch_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS batch_jobs (
  id              UUID        PRIMARY KEY,
  source_filename TEXT        NOT NULL,
  total_items     INTEGER     NOT NULL CHECK (total_items >= 0),
  processed_items INTEGER     NOT NULL DEFAULT 0,
  failed_items    INTEGER     NOT NULL DEFAULT 0,
  status          TEXT        NOT NULL DEFAULT 'pending',
  settings        TEXT        NOT NULL DEFAULT '{}',
  archive_path    TEXT        NOT NULL DEFAULT '',
  error_message   TEXT        NOT NULL DEFAULT '',
  ip_address      TEXT        NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  started_at      TIMESTAMPTZ,
  completed_at    TIMESTAMPTZ,
  CHECK (processed_items + failed_items <= total_items)
);`,
	},
	{
		Name: "create_index_batch_jobs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_batch_jobs_created_at ON batch_jobs (created_at);`,
	},
	{
		Name: "create_table_analytics",
		SQL: `CREATE TABLE IF NOT EXISTS analytics (
  id                 UUID        PRIMARY KEY,
  qr_code_id         UUID,
  event_type         TEXT        NOT NULL,
  data_type          TEXT        NOT NULL DEFAULT '',
  size               INTEGER     NOT NULL DEFAULT 0,
  format             TEXT        NOT NULL DEFAULT '',
  processing_time_ms BIGINT      NOT NULL DEFAULT 0,
  ip_address         TEXT        NOT NULL DEFAULT '',
  user_agent         TEXT        NOT NULL DEFAULT '',
  referrer           TEXT        NOT NULL DEFAULT '',
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_analytics_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_analytics_created_at ON analytics (created_at);`,
	},
	{
		Name: "create_table_style_presets",
		SQL: `CREATE TABLE IF NOT EXISTS style_presets (
  id          BIGSERIAL   PRIMARY KEY,
  name        TEXT        NOT NULL UNIQUE,
  description TEXT        NOT NULL DEFAULT '',
  settings    TEXT        NOT NULL,
  is_default  BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_user_settings",
		SQL: `CREATE TABLE IF NOT EXISTS user_settings (
  session_id     TEXT        PRIMARY KEY,
  default_size   INTEGER     NOT NULL DEFAULT 200,
  default_format TEXT        NOT NULL DEFAULT 'png',
  default_ecc    TEXT        NOT NULL DEFAULT 'M',
  default_fg     TEXT        NOT NULL DEFAULT '#000000',
  default_bg     TEXT        NOT NULL DEFAULT '#ffffff',
  template       TEXT        NOT NULL DEFAULT '',
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

var sqliteSteps = []migrationStep{
	{
		Name: "create_table_qr_codes",
		SQL: `CREATE TABLE IF NOT EXISTS qr_codes (
  id            TEXT     PRIMARY KEY,
  filename      TEXT     NOT NULL UNIQUE,
  storage_path  TEXT     NOT NULL,
  data_type     TEXT     NOT NULL,
  original_data TEXT     NOT NULL DEFAULT '{}',
  payload       TEXT     NOT NULL CHECK (payload <> ''),
  size          INTEGER  NOT NULL DEFAULT 200,
  file_size     INTEGER  NOT NULL DEFAULT 0 CHECK (file_size >= 0),
  fg_color      TEXT     NOT NULL DEFAULT '#000000',
  bg_color      TEXT     NOT NULL DEFAULT '#ffffff',
  format        TEXT     NOT NULL DEFAULT 'png',
  ecc_level     TEXT     NOT NULL DEFAULT 'M',
  template      TEXT     NOT NULL DEFAULT '',
  dot_style     TEXT     NOT NULL DEFAULT 'square',
  corner_style  TEXT     NOT NULL DEFAULT 'square',
  has_logo      BOOLEAN  NOT NULL DEFAULT 0,
  created_at    DATETIME NOT NULL,
  expires_at    DATETIME NOT NULL,
  access_count  INTEGER  NOT NULL DEFAULT 0 CHECK (access_count >= 0),
  ip_address    TEXT     NOT NULL DEFAULT '',
  user_agent    TEXT     NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_index_qr_codes_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_qr_codes_created_at ON qr_codes (created_at);`,
	},
	{
		Name: "create_index_qr_codes_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_qr_codes_expires_at ON qr_codes (expires_at);`,
	},
	{
		Name: "create_table_batch_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS batch_jobs (
  id              TEXT     PRIMARY KEY,
  source_filename TEXT     NOT NULL,
  total_items     INTEGER  NOT NULL CHECK (total_items >= 0),
  processed_items INTEGER  NOT NULL DEFAULT 0,
  failed_items    INTEGER  NOT NULL DEFAULT 0,
  status          TEXT     NOT NULL DEFAULT 'pending',
  settings        TEXT     NOT NULL DEFAULT '{}',
  archive_path    TEXT     NOT NULL DEFAULT '',
  error_message   TEXT     NOT NULL DEFAULT '',
  ip_address      TEXT     NOT NULL DEFAULT '',
  created_at      DATETIME NOT NULL,
  started_at      DATETIME,
  completed_at    DATETIME,
  CHECK (processed_items + failed_items <= total_items)
);`,
	},
	{
		Name: "create_index_batch_jobs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_batch_jobs_created_at ON batch_jobs (created_at);`,
	},
	{
		Name: "create_table_analytics",
		SQL: `CREATE TABLE IF NOT EXISTS analytics (
  id                 TEXT     PRIMARY KEY,
  qr_code_id         TEXT,
  event_type         TEXT     NOT NULL,
  data_type          TEXT     NOT NULL DEFAULT '',
  size               INTEGER  NOT NULL DEFAULT 0,
  format             TEXT     NOT NULL DEFAULT '',
  processing_time_ms INTEGER  NOT NULL DEFAULT 0,
  ip_address         TEXT     NOT NULL DEFAULT '',
  user_agent         TEXT     NOT NULL DEFAULT '',
  referrer           TEXT     NOT NULL DEFAULT '',
  created_at         DATETIME NOT NULL
);`,
	},
	{
		Name: "create_index_analytics_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_analytics_created_at ON analytics (created_at);`,
	},
	{
		Name: "create_table_style_presets",
		SQL: `CREATE TABLE IF NOT EXISTS style_presets (
  id          INTEGER  PRIMARY KEY AUTOINCREMENT,
  name        TEXT     NOT NULL UNIQUE,
  description TEXT     NOT NULL DEFAULT '',
  settings    TEXT     NOT NULL,
  is_default  BOOLEAN  NOT NULL DEFAULT 0,
  created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Name: "create_table_user_settings",
		SQL: `CREATE TABLE IF NOT EXISTS user_settings (
  session_id     TEXT     PRIMARY KEY,
  default_size   INTEGER  NOT NULL DEFAULT 200,
  default_format TEXT     NOT NULL DEFAULT 'png',
  default_ecc    TEXT     NOT NULL DEFAULT 'M',
  default_fg     TEXT     NOT NULL DEFAULT '#000000',
  default_bg     TEXT     NOT NULL DEFAULT '#ffffff',
  template       TEXT     NOT NULL DEFAULT '',
  updated_at     DATETIME NOT NULL
);`,
	},
}

// auditSteps run on every start so schemas created before the audit log
// existed pick it up. Each statement is idempotent.
var auditSteps = map[database.BackendKind][]migrationStep{
	database.Postgres: {
		{
			Name: "create_table_admin_logs",
			SQL: `CREATE TABLE IF NOT EXISTS admin_logs (
  id         UUID        PRIMARY KEY,
  action     TEXT        NOT NULL,
  details    TEXT        NOT NULL DEFAULT '',
  ip_address TEXT        NOT NULL DEFAULT '',
  user_agent TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_index_admin_logs_created_at",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_admin_logs_created_at ON admin_logs (created_at);`,
		},
	},
	database.SQLite: {
		{
			Name: "create_table_admin_logs",
			SQL: `CREATE TABLE IF NOT EXISTS admin_logs (
  id         TEXT     PRIMARY KEY,
  action     TEXT     NOT NULL,
  details    TEXT     NOT NULL DEFAULT '',
  ip_address TEXT     NOT NULL DEFAULT '',
  user_agent TEXT     NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL
);`,
		},
		{
			Name: "create_index_admin_logs_created_at",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_admin_logs_created_at ON admin_logs (created_at);`,
		},
	},
}

type presetSeed struct {
	Name        string
	Description string
	Settings    string
	IsDefault   bool
}

var defaultPresets = []presetSeed{
	{"Classic", "Traditional black and white QR code", `{"fgColor":"#000000","bgColor":"#ffffff","dotStyle":"square","cornerStyle":"square"}`, true},
	{"Modern", "Sage green with rounded dots", `{"fgColor":"#7c9885","bgColor":"#f8f6f0","dotStyle":"rounded","cornerStyle":"circle"}`, false},
	{"Elegant", "Dark gray with circular dots", `{"fgColor":"#4a4a4a","bgColor":"#f8f6f0","dotStyle":"circle","cornerStyle":"square"}`, false},
	{"Vibrant", "Coral color with dot corners", `{"fgColor":"#d4a574","bgColor":"#ffffff","dotStyle":"square","cornerStyle":"dot"}`, false},
}

func stepsFor(kind database.BackendKind) []migrationStep {
	if kind == database.Postgres {
		return postgresSteps
	}
	return sqliteSteps
}

func sentinelQuery(kind database.BackendKind) string {
	if kind == database.Postgres {
		return "SELECT to_regclass('public.qr_codes') IS NOT NULL"
	}
	return "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'qr_codes'"
}

// EnsureMigrated creates the schema when the qr_codes table is missing and
// seeds the default style presets when none exist.
func EnsureMigrated(ctx context.Context, db *sql.DB, kind database.BackendKind, log logrus.FieldLogger) error {
	start := time.Now()
	log = log.WithFields(logrus.Fields{"component": "database", "backend": kind.String()})

	log.WithFields(logrus.Fields{"event": "db_migration_check", "status": "starting"}).Info("checking schema")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery(kind)).Scan(&exists); err != nil {
		log.WithFields(logrus.Fields{
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms":   time.Since(start).Milliseconds(),
		}).Error("migration failed")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_skip",
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("schema already exists, skipping migration")
	} else {
		log.WithFields(logrus.Fields{"event": "db_migration_start", "status": "in_progress"}).Info("migrating schema")
		if err := applySteps(ctx, db, stepsFor(kind), start, log); err != nil {
			return err
		}
	}
	if err := applySteps(ctx, db, auditSteps[kind], start, log); err != nil {
		return err
	}

	seeded, err := seedPresets(ctx, db, kind)
	if err != nil {
		log.WithFields(logrus.Fields{
			"event":          "db_migration_failed",
			"status":         "error",
			"migration_step": "seed_style_presets",
			"error_message":  err.Error(),
		}).Error("migration failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"event":          "db_migration_success",
		"status":         "success",
		"presets_seeded": seeded,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("schema ready")
	return nil
}

func applySteps(ctx context.Context, db *sql.DB, steps []migrationStep, start time.Time, log logrus.FieldLogger) error {
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithFields(logrus.Fields{
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).Error("migration failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.WithFields(logrus.Fields{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Info("migration step applied")
	}
	return nil
}

func seedPresets(ctx context.Context, db *sql.DB, kind database.BackendKind) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM style_presets").Scan(&count); err != nil {
		return 0, fmt.Errorf("count style presets: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed style presets: %w", err)
	}
	defer tx.Rollback()

	q := database.Rebind(kind, "INSERT INTO style_presets (name, description, settings, is_default, created_at) VALUES (?, ?, ?, ?, ?)")
	now := time.Now().UTC()
	for _, p := range defaultPresets {
		if _, err := tx.ExecContext(ctx, q, p.Name, p.Description, p.Settings, p.IsDefault, now); err != nil {
			return 0, fmt.Errorf("seed preset %s: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed style presets: %w", err)
	}
	return len(defaultPresets), nil
}
