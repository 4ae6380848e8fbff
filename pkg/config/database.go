package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/anonto42/campus-hub/backend/pkg/logger"
)

// DB holds the process-wide store clients. It is created once in main and
// closed on shutdown.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	// Redis is nil when the cache is disabled or unreachable.
	Redis *redis.Client

	mongoDatabase string
}

// InitDB opens and pings every configured store.
func InitDB(ctx context.Context, cfg *Config) (*DB, error) {
	l := logger.L()

	postgresDB, err := initPostgres(cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	l.Info().Msg("connected to PostgreSQL")

	mongoClient, err := initMongo(ctx, cfg.Mongo)
	if err != nil {
		closePostgres(postgresDB)
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	l.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	db := &DB{
		Postgres:      postgresDB,
		Mongo:         mongoClient,
		mongoDatabase: cfg.Mongo.Database,
	}

	if cfg.Redis.Address != "" {
		rdb, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			l.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unavailable, follower-count cache disabled")
		} else {
			db.Redis = rdb
			l.Info().Str("addr", cfg.Redis.Address).Msg("connected to Redis")
		}
	}

	return db, nil
}

// MongoDatabase returns the application database handle.
func (db *DB) MongoDatabase() *mongo.Database {
	return db.Mongo.Database(db.mongoDatabase)
}

// Ping checks the primary stores; used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Mongo.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	sqlDB, err := db.Postgres.DB()
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func initRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	l := logger.L()

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			l.Error().Err(err).Msg("error closing Redis connection")
		} else {
			l.Info().Msg("Redis connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			l.Error().Err(err).Msg("error closing MongoDB connection")
		} else {
			l.Info().Msg("MongoDB connection closed")
		}
	}

	closePostgres(db.Postgres)
}

func closePostgres(pg *gorm.DB) {
	if pg == nil {
		return
	}
	l := logger.L()
	sqlDB, err := pg.DB()
	if err != nil {
		l.Error().Err(err).Msg("error getting SQL DB from GORM")
		return
	}
	if err := sqlDB.Close(); err != nil {
		l.Error().Err(err).Msg("error closing PostgreSQL connection")
		return
	}
	l.Info().Msg("PostgreSQL connection closed")
}
