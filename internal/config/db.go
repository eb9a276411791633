package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minimart/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

func loadDBConfig(v *viper.Viper) (*DBConfig, error) {
	if url := v.GetString("DATABASE_URL"); url != "" {
		return &DBConfig{DSN: url}, nil
	}

	dbHost := v.GetString("DB_HOST")
	dbPort := v.GetString("DB_PORT")
	dbUser := v.GetString("DB_USER")
	dbName := v.GetString("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, errors.New("database environment variables not set (DATABASE_URL or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, v.GetString("DB_PASSWORD"), dbName, v.GetString("DB_SSLMODE"))

	return &DBConfig{DSN: dsn}, nil
}

const (
	connectAttempts = 5
	connectInterval = 5 * time.Second
)

// ConnectDB establishes a pooled connection to PostgreSQL, retrying while the
// database comes up.
func ConnectDB(ctx context.Context, cfg DBConfig, log logging.Logger) (*pgxpool.Pool, error) {
	var err error
	for i := 0; i < connectAttempts; i++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info(ctx, "connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		log.Warn(ctx, "database connection failed, retrying",
			"attempt", i+1, "max_attempts", connectAttempts, "retry_in", connectInterval.String(), "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", connectAttempts, err)
}
