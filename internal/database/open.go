package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"qrforge/internal/config"
)

var backendDegraded = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "qrforge_metadata_backend_degraded",
	Help: "1 when the metadata store runs on the fallback backend.",
})

// Selection is the outcome of choosing a metadata backend at startup.
// Degraded is set when the primary failed and the fallback is in use;
// PrimaryErr then holds the reason.
type Selection struct {
	DB         *sql.DB
	Kind       BackendKind
	Degraded   bool
	PrimaryErr error
}

var (
	openPostgres = NewPostgres
	openSQLite   = NewSQLite
)

// Open selects the metadata backend once. A failing Postgres primary falls
// back to SQLite at cfg.SQLite.FallbackPath; the switch is logged as a warning
// and exported through the degraded gauge.
func Open(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger) (*Selection, error) {
	kind, err := ParseBackendKind(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if kind == SQLite {
		db, err := openSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: sqlite %s: %v", ErrBackendUnavailable, cfg.SQLite.Path, err)
		}
		backendDegraded.Set(0)
		log.WithFields(logrus.Fields{
			"component": "database",
			"event":     "db_selected",
			"status":    "success",
			"backend":   SQLite.String(),
		}).Info("metadata backend ready")
		return &Selection{DB: db, Kind: SQLite}, nil
	}

	db, primaryErr := openPostgres(cfg.Database)
	if primaryErr == nil {
		backendDegraded.Set(0)
		log.WithFields(logrus.Fields{
			"component": "database",
			"event":     "db_selected",
			"status":    "success",
			"backend":   Postgres.String(),
			"db_host":   cfg.Database.Host,
		}).Info("metadata backend ready")
		return &Selection{DB: db, Kind: Postgres}, nil
	}

	log.WithFields(logrus.Fields{
		"component":     "database",
		"event":         "db_fallback",
		"status":        "degraded",
		"backend":       SQLite.String(),
		"db_host":       cfg.Database.Host,
		"fallback_path": cfg.SQLite.FallbackPath,
		"error_message": primaryErr.Error(),
	}).Warn("primary metadata backend unreachable, using fallback")

	db, err = openSQLite(cfg.SQLite.FallbackPath)
	if err != nil {
		return nil, fmt.Errorf("%w: primary: %v; fallback: %v", ErrBackendUnavailable, primaryErr, err)
	}
	backendDegraded.Set(1)
	return &Selection{DB: db, Kind: SQLite, Degraded: true, PrimaryErr: primaryErr}, nil
}
