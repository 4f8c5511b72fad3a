// Package config loads mixgraph settings and scene descriptions from TOML.
//
// # Settings
//
// [Config] is read from mixgraph.toml. Every section is optional; missing
// values fall back to [Default]:
//
//	[log]
//	level = "info"
//
//	[engine]
//	max_iterations = 1000
//	event_class = "event.frame"
//
//	[store]
//	backend = "file"           # file, memory, redis, mongo, postgres, s3
//	dir = "~/.local/share/mixgraph/graphs"
//
//	[server]
//	addr = ":8080"
//	cache_dir = "~/.cache/mixgraph"   # rendered diagrams, in memory if unset
//
// Secrets are never read from the file. [Config.ApplyEnv] fills them from
// MIXGRAPH_REDIS_PASSWORD, MIXGRAPH_POSTGRES_DSN, AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY.
//
// # Scenes
//
// A [Scene] describes the collaborators of a headless evaluation: camera,
// stencil volumes, material uniform tables and the video frame. See
// [LoadScene].
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/store"
)

// FileName is the name of the settings file in the config directory.
const FileName = "mixgraph.toml"

const appName = "mixgraph"

// Config holds all settings.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Engine EngineConfig `toml:"engine"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// EngineConfig configures graph evaluation.
type EngineConfig struct {
	MaxIterations int    `toml:"max_iterations"`
	EventClass    string `toml:"event_class"`
}

// StoreConfig selects the graph store backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
	Prefix  string `toml:"prefix"`

	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`

	PostgresTable string `toml:"postgres_table"`

	S3Bucket   string `toml:"s3_bucket"`
	S3Region   string `toml:"s3_region"`
	S3Endpoint string `toml:"s3_endpoint"`

	Timeout duration `toml:"timeout"`

	// Filled from the environment only.
	redisPassword string
	postgresDSN   string
	s3AccessKey   string
	s3SecretKey   string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
	// CacheDir keeps rendered diagrams on disk. Empty keeps them in memory.
	CacheDir string `toml:"cache_dir"`
}

// duration decodes TOML strings such as "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Engine: EngineConfig{
			MaxIterations: nodegraph.DefaultMaxIterations,
			EventClass:    nodegraph.DefaultEventClass,
		},
		Store: StoreConfig{
			Backend: store.BackendFile,
			Dir:     defaultDataDir(),
			Timeout: duration{10 * time.Second},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: duration{5 * time.Second},
		},
	}
}

// Load reads settings from path on top of [Default]. An empty path loads
// [DefaultPath] if that file exists and the defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML settings into cfg, keeping values the input omits.
func Decode(data string, cfg *Config) error {
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown settings: %s", strings.Join(keys, ", "))
	}
	cfg.Store.Dir = expandHome(cfg.Store.Dir)
	cfg.Server.CacheDir = expandHome(cfg.Server.CacheDir)
	return cfg.Validate()
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Engine.MaxIterations <= 0 {
		return fmt.Errorf("engine.max_iterations must be positive, got %d", c.Engine.MaxIterations)
	}
	if c.Engine.EventClass == "" {
		return errors.New("engine.event_class must not be empty")
	}
	switch c.Store.Backend {
	case store.BackendFile, store.BackendMemory, store.BackendRedis,
		store.BackendMongo, store.BackendPostgres, store.BackendS3:
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Store.Backend == store.BackendS3 && c.Store.S3Bucket == "" {
		return errors.New("store.s3_bucket is required for the s3 backend")
	}
	if c.Store.S3Endpoint != "" {
		if err := apperrors.ValidateURL(c.Store.S3Endpoint); err != nil {
			return fmt.Errorf("store.s3_endpoint: %w", err)
		}
	}
	return nil
}

// ApplyEnv fills secrets from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.Store.redisPassword = getenv("MIXGRAPH_REDIS_PASSWORD")
	c.Store.postgresDSN = getenv("MIXGRAPH_POSTGRES_DSN")
	c.Store.s3AccessKey = getenv("AWS_ACCESS_KEY_ID")
	c.Store.s3SecretKey = getenv("AWS_SECRET_ACCESS_KEY")
	if v := getenv("MIXGRAPH_STORE"); v != "" {
		c.Store.Backend = v
	}
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// StoreConfig converts the store section for [store.Open].
func (c *Config) StoreConfig() store.Config {
	s := c.Store
	return store.Config{
		Backend:         s.Backend,
		Dir:             s.Dir,
		Prefix:          s.Prefix,
		RedisAddr:       s.RedisAddr,
		RedisPassword:   s.redisPassword,
		RedisDB:         s.RedisDB,
		MongoURI:        s.MongoURI,
		MongoDatabase:   s.MongoDatabase,
		MongoCollection: s.MongoCollection,
		PostgresDSN:     s.postgresDSN,
		PostgresTable:   s.PostgresTable,
		S3Bucket:        s.S3Bucket,
		S3Region:        s.S3Region,
		S3Endpoint:      s.S3Endpoint,
		S3AccessKey:     s.s3AccessKey,
		S3SecretKey:     s.s3SecretKey,
		Timeout:         s.Timeout.Duration,
	}
}

// ShutdownTimeout returns the server shutdown grace period.
func (c *Config) ShutdownTimeout() time.Duration { return c.Server.ShutdownTimeout.Duration }

// DefaultPath returns the settings file in the XDG config directory
// (~/.config/mixgraph/mixgraph.toml), or "" if no home directory is known.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, FileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, FileName)
}

// defaultDataDir returns the graph directory using the XDG standard
// (~/.local/share/mixgraph/graphs).
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName, "graphs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName, "graphs")
	}
	return filepath.Join(home, ".local", "share", appName, "graphs")
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
