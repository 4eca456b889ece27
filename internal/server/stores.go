package server

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/txn2/helix/pkg/config"
	"github.com/txn2/helix/pkg/database/migrate"
	dbsqlite "github.com/txn2/helix/pkg/database/sqlite"
	"github.com/txn2/helix/pkg/notify"
	notifypostgres "github.com/txn2/helix/pkg/notify/postgres"
	notifysqlite "github.com/txn2/helix/pkg/notify/sqlite"
	"github.com/txn2/helix/pkg/tenant"
	tenantpostgres "github.com/txn2/helix/pkg/tenant/postgres"
	tenantsqlite "github.com/txn2/helix/pkg/tenant/sqlite"
)

// stores groups the backends selected by database.driver.
type stores struct {
	db            *sql.DB
	tenants       tenant.Store
	notifications notify.Store
	directory     notify.Directory
	close         func() error
}

func (s *stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStores(cfg config.DatabaseConfig) (*stores, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(cfg)
	case config.DriverSQLite:
		db, err := dbsqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sqliteStores(db), nil
	case config.DriverMemory, "":
		ns := notify.NewMemoryStore()
		return &stores{
			tenants:       tenant.NewMemoryStore(),
			notifications: ns,
			directory:     ns,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openPostgres(cfg config.DatabaseConfig) (*stores, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if !cfg.SkipMigrations {
		if err := migrate.Run(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	ns := notifypostgres.New(db)
	return &stores{
		db:            db,
		tenants:       tenantpostgres.New(db),
		notifications: ns,
		directory:     ns,
		close:         db.Close,
	}, nil
}

func sqliteStores(db *sqlx.DB) *stores {
	ns := notifysqlite.New(db)
	return &stores{
		db:            db.DB,
		tenants:       tenantsqlite.New(db),
		notifications: ns,
		directory:     ns,
		close:         db.Close,
	}
}
