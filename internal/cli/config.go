package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/veldran/nexpr/pkg/fold"
	"github.com/veldran/nexpr/pkg/plugins"
	"github.com/veldran/nexpr/pkg/plugins/kv"
	"github.com/veldran/nexpr/pkg/plugins/web"
)

// Supported kv backends for the [kv] config section.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendMongo  = "mongo"
)

// Config holds the CLI configuration, loaded from a TOML file.
//
// Example:
//
//	[server]
//	addr = ":8080"
//
//	[kv]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[render]
//	detailed = true
type Config struct {
	Server ServerConfig `toml:"server"`
	KV     KVConfig     `toml:"kv"`
	Render RenderConfig `toml:"render"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `toml:"addr"` // listen address (host:port)
}

// KVConfig selects and configures the kv plugin's store backend.
type KVConfig struct {
	Backend         string `toml:"backend"`          // "memory", "redis", or "mongo"
	RedisAddr       string `toml:"redis_addr"`       // redis host:port
	MongoURI        string `toml:"mongo_uri"`        // mongodb connection string
	MongoDatabase   string `toml:"mongo_database"`   // mongodb database name
	MongoCollection string `toml:"mongo_collection"` // mongodb collection name
}

// RenderConfig holds default flags for the render command.
type RenderConfig struct {
	Detailed bool `toml:"detailed"` // include type tags and literals in labels
}

// defaultConfig returns the configuration used when no file overrides it.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		KV: KVConfig{
			Backend:         backendMemory,
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "nexpr",
			MongoCollection: "kv",
		},
	}
}

// defaultConfigPath returns the conventional config location,
// e.g. ~/.config/nexpr/config.toml on Linux.
func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nexpr", "config.toml"), nil
}

// loadConfig reads the TOML config at path, applying file values on top of
// the defaults. An empty path means the conventional location; a missing
// file at either is not an error and yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0])
	}
	return cfg, nil
}

// newInterpreter builds the full interpreter for CLI evaluation: the stock
// plugins plus web and the configured kv backend. The returned cleanup
// closes the kv store and must be called when evaluation is done.
func newInterpreter(ctx context.Context, cfg Config) (fold.Interpreter, func(), error) {
	store, err := newStore(ctx, cfg.KV)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = store.Close(context.Background()) }
	return fold.Merge(plugins.Standard(), web.NewDefault(), kv.New(store)), cleanup, nil
}

// newStore constructs the kv store selected by the config.
func newStore(ctx context.Context, cfg KVConfig) (kv.Store, error) {
	switch cfg.Backend {
	case backendMemory, "":
		return kv.NewMemoryStore(), nil
	case backendRedis:
		return kv.NewRedisStore(ctx, cfg.RedisAddr)
	case backendMongo:
		return kv.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, fmt.Errorf("unknown kv backend: %s (must be 'memory', 'redis', or 'mongo')", cfg.Backend)
	}
}
