package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/lychee-technology/resultmap"
	"github.com/lychee-technology/resultmap/internal"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// openRowSource connects with the configured driver and returns the source plus a closer.
func openRowSource(ctx context.Context, cfg resultmap.DatabaseConfig) (resultmap.RowSource, func(), error) {
	switch cfg.Driver {
	case "pgx":
		pool, err := createPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return internal.NewPgxRowSource(pool), pool.Close, nil
	case "postgres", "sqlite3", "duckdb":
		dsn, err := sqlDSN(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		db, err := sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		db.SetMaxOpenConns(cfg.MaxConnections)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return internal.NewSQLRowSource(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

func createPool(ctx context.Context, cfg resultmap.DatabaseConfig) (*pgxpool.Pool, error) {
	password, err := resolvePassword(ctx, cfg)
	if err != nil {
		return nil, err
	}
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(password),
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func sqlDSN(ctx context.Context, cfg resultmap.DatabaseConfig) (string, error) {
	if cfg.Driver != "postgres" {
		// sqlite3 and duckdb take a file path; empty means in-memory.
		return cfg.Database, nil
	}
	password, err := resolvePassword(ctx, cfg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.Username, password, cfg.Database, cfg.SSLMode, int(cfg.Timeout.Seconds())), nil
}

// resolvePassword swaps in an Aurora DSQL IAM token when UseIAMAuth is set.
func resolvePassword(ctx context.Context, cfg resultmap.DatabaseConfig) (string, error) {
	if !cfg.UseIAMAuth {
		return cfg.Password, nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("generate IAM auth token: %w", err)
	}
	zap.S().Infow("generated IAM auth token for database connection", "host", cfg.Host)
	return token, nil
}
