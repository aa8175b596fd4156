package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"cafichain/native/farming"
	"cafichain/observability/logging"
	telemetry "cafichain/observability/otel"
)

const (
	envEnvironment = "CAFI_ENV"
	envJWTSecret   = "CAFI_JWT_SECRET"
)

type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	EventLogDSN    string `toml:"EventLogDSN"`
	GenesisFile    string `toml:"GenesisFile"`
	Environment    string `toml:"Environment"`

	Farming   farming.Config     `toml:"Farming"`
	Auth      AuthConfig         `toml:"Auth"`
	RateLimit RateLimitConfig    `toml:"RateLimit"`
	Logging   logging.FileConfig `toml:"Logging"`
	Telemetry telemetry.Config   `toml:"Telemetry"`
}

// AuthConfig holds the HMAC secret used to verify API bearer tokens.
type AuthConfig struct {
	HMACSecret string `toml:"HMACSecret"`
	Issuer     string `toml:"Issuer"`
	Audience   string `toml:"Audience"`
	// ClockSkewSeconds is the leeway applied to exp/nbf checks.
	ClockSkewSeconds int `toml:"ClockSkewSeconds"`
}

type RateLimitConfig struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists. Secrets may be supplied through the environment.
func Load(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		created, err := createDefault(path)
		if err != nil {
			return nil, err
		}
		cfg = created
	} else if err != nil {
		return nil, err
	} else {
		cfg = &Config{}
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written by Load for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress:  ":8080",
		DataDir:        "./cafi-data",
		StorageBackend: "leveldb",
		Farming:        farming.DefaultConfig(),
		RateLimit:      RateLimitConfig{RequestsPerMinute: 600, Burst: 60},
		Logging:        logging.FileConfig{MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = def.ListenAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = def.DataDir
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = def.StorageBackend
	}
	if strings.TrimSpace(cfg.EventLogDSN) == "" {
		cfg.EventLogDSN = filepath.Join(cfg.DataDir, "events.db")
	}
	if strings.TrimSpace(cfg.Farming.RewardToken) == "" {
		cfg.Farming.RewardToken = def.Farming.RewardToken
	}
	if cfg.RateLimit.Burst <= 0 && cfg.RateLimit.RequestsPerMinute > 0 {
		cfg.RateLimit.Burst = 1
	}
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv(envEnvironment)); env != "" {
		cfg.Environment = env
	}
	if secret := strings.TrimSpace(os.Getenv(envJWTSecret)); secret != "" {
		cfg.Auth.HMACSecret = secret
	}
	cfg.Telemetry.ApplyEnv()
}

// createDefault creates and saves a default configuration file. The JWT
// secret is left empty so it must come from the environment or an edit.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
