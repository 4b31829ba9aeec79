package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect establishes a PostgreSQL connection pool for the shared database,
// retrying with linear backoff so transient startup races (database container
// not yet accepting connections) do not kill the process.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	return connect(ctx, cfg.ConnectionString, cfg)
}

// ConnectDedicated opens a pool against a dedicated per-tenant database using
// the pool sizing and retry settings of the shared configuration. Tenant
// routing decides which pool a request uses; this keeps the connection
// discipline identical for both storage modes.
func ConnectDedicated(ctx context.Context, connString string, cfg Config) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, ErrEmptyConnectionString
	}
	return connect(ctx, connString, cfg)
}

func connect(ctx context.Context, connString string, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MaxIdleConns
	connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	connConfig.MaxConnLifetime = cfg.MaxConnLifetime

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
			continue
		}

		// Ping catches authentication and permission failures that pool
		// construction alone does not surface.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
			continue
		}

		return pool, nil
	}

	return nil, ErrFailedToOpenDBConnection
}

// Healthcheck returns a closure validating database connectivity, shaped for
// health endpoints that expect func(context.Context) error.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
