// Package postgres provides relational storage for shieldgate: connection management,
// transaction-scoped tenant binding for row-level security, and the tenant-scoped
// repositories. PostgreSQL is accessed through a pgx pool shared with GORM; SQLite backs
// local development and tests.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// DBConnection manages the database connection pool lifecycle.
type DBConnection struct {
	pool   *pgxpool.Pool
	db     *gorm.DB
	config *config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection creates a new connection manager instance.
// It initializes the connection pool from configuration and performs an initial health check.
//
// Parameters:
//   - ctx: Context for connection timeout control
//   - cfg: Database configuration including driver, credentials, and pool settings
//   - log: Logger instance for connection lifecycle events
//
// Returns:
//   - *DBConnection: Initialized connection manager
//   - error: Connection establishment error if any
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	log = log.WithComponent("database")
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.Database), gormCfg)
		if err != nil {
			return nil, errors.ErrStorageUnavailable("database", err)
		}
		log.Info(ctx, "SQLite database opened", logger.String("database", cfg.Database))
		return &DBConnection{db: db, config: cfg, logger: log}, nil
	case "postgres", "":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	log.Info(ctx, "Initializing PostgreSQL connection pool",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
		logger.Int("max_conns", cfg.MaxConns),
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		log.Error(ctx, "Failed to parse database connection string", err)
		return nil, errors.ErrStorageUnavailable("database", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		log.Error(ctx, "Failed to create database connection pool", err)
		return nil, errors.ErrStorageUnavailable("database", err)
	}

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), gormCfg)
	if err != nil {
		pool.Close()
		return nil, errors.ErrStorageUnavailable("database", err)
	}

	conn := &DBConnection{pool: pool, db: db, config: cfg, logger: log}
	if err := conn.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info(ctx, "PostgreSQL connection pool initialized successfully",
		logger.Int("total_conns", int(pool.Stat().TotalConns())),
	)
	return conn, nil
}

// DB returns the GORM handle used by repositories.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Pool returns the pgx pool, or nil when running on SQLite.
func (c *DBConnection) Pool() *pgxpool.Pool {
	return c.pool
}

// Ping verifies database connectivity and responsiveness.
func (c *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	startTime := time.Now()
	var err error
	if c.pool != nil {
		err = c.pool.Ping(pingCtx)
	} else {
		sqlDB, dbErr := c.db.DB()
		if dbErr != nil {
			err = dbErr
		} else {
			err = sqlDB.PingContext(pingCtx)
		}
	}
	if err != nil {
		c.logger.Error(ctx, "Database ping failed", err)
		return errors.ErrStorageUnavailable("database", err)
	}

	latency := time.Since(startTime)
	if latency > 100*time.Millisecond {
		c.logger.Warn(ctx, "High database latency detected",
			logger.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return nil
}

// HealthCheck performs a health check including connection stats.
//
// Returns:
//   - map[string]interface{}: Health metrics including pool statistics
//   - error: Health check error if any
func (c *DBConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	info := map[string]interface{}{
		"status": "healthy",
		"driver": c.db.Dialector.Name(),
	}
	if c.pool != nil {
		stats := c.pool.Stat()
		info["total_connections"] = stats.TotalConns()
		info["idle_connections"] = stats.IdleConns()
		info["acquired_connections"] = stats.AcquiredConns()
		info["max_connections"] = stats.MaxConns()
		if stats.IdleConns() == 0 && stats.TotalConns() >= stats.MaxConns() {
			info["warning"] = "connection_pool_near_limit"
		}
	}
	return info, nil
}

// Close gracefully shuts down the connection pool.
func (c *DBConnection) Close() {
	if c.pool != nil {
		c.pool.Close()
	} else if sqlDB, err := c.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	c.logger.Info(context.Background(), "Database connection closed")
}
