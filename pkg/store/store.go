package store

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/mixgraph/pkg/errors"
)

// Store is a key-value store of encoded graph documents.
type Store interface {
	// Get returns the data stored under key, or an error wrapping
	// [ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys in ascending order.
	List(ctx context.Context) ([]string, error)
	// Close releases backend connections.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Dir is the root directory of the file backend.
	Dir string

	// Prefix namespaces keys in shared backends (redis, s3).
	Prefix string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	PostgresDSN   string
	PostgresTable string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// Timeout bounds connection setup. Zero means 10 seconds.
	Timeout time.Duration
}

// Open connects to the backend named by cfg.Backend and wraps it with
// [Instrument].
func Open(ctx context.Context, cfg Config) (Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendFile, "":
		s, err = NewFileStore(cfg.Dir)
	case BackendMemory:
		s = NewMemoryStore()
	case BackendRedis:
		s, err = NewRedisStore(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB, Prefix: cfg.Prefix})
	case BackendMongo:
		s, err = NewMongoStore(ctx, MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase, Collection: cfg.MongoCollection})
	case BackendPostgres:
		s, err = NewPostgresStore(ctx, PostgresConfig{DSN: cfg.PostgresDSN, Table: cfg.PostgresTable})
	case BackendS3:
		s, err = NewS3Store(ctx, S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region, Endpoint: cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey, SecretKey: cfg.S3SecretKey, Prefix: cfg.Prefix})
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "open %s store", backendName(cfg.Backend))
	}
	return Instrument(s, backendName(cfg.Backend)), nil
}

func backendName(b string) string {
	if b == "" {
		return BackendFile
	}
	return b
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
