package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the safety-relay binaries.
type Config struct {
	// HTTPAddress is the listen address of the REST and websocket server.
	HTTPAddress string `yaml:"http_addr"`
	// GRPCAddress is the listen address of the gRPC server.
	GRPCAddress string `yaml:"grpc_addr"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format"`
	// Timeout bounds client calls and server shutdown.
	Timeout time.Duration `yaml:"timeout"`

	Auth    Auth    `yaml:"auth"`
	Store   Store   `yaml:"store"`
	Uploads Uploads `yaml:"uploads"`
	Relay   Relay   `yaml:"relay"`
}

// Auth configures bearer token signing and validation.
type Auth struct {
	// Secret is the HMAC key used to sign tokens.
	Secret string `yaml:"secret"`
	// Issuer is written to and required in every token.
	Issuer string `yaml:"issuer"`
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// Store selects the alert database.
type Store struct {
	// Driver is sqlite or postgres.
	Driver string `yaml:"driver"`
	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn"`
}

// Uploads configures archived voice recordings.
type Uploads struct {
	// Dir is where recordings are written.
	Dir string `yaml:"dir"`
	// MaxBytes caps a single upload.
	MaxBytes int64 `yaml:"max_bytes"`
}

// Relay configures the live audio hub.
type Relay struct {
	// SendQueue is the per-connection outbound queue length.
	SendQueue int `yaml:"send_queue"`
	// MaxFrameBytes caps one inbound websocket message.
	MaxFrameBytes int64 `yaml:"max_frame_bytes"`
	// RedisAddress enables live-status fan-out over Redis pub/sub when set.
	RedisAddress string `yaml:"redis_addr"`
	// RedisChannel is the pub/sub channel for live-status events.
	RedisChannel string `yaml:"redis_channel"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "safety-relay.yaml"
	// DefaultHTTPAddress is the default REST and websocket listen address.
	DefaultHTTPAddress = ":8080"
	// DefaultGRPCAddress is the default gRPC listen address.
	DefaultGRPCAddress = ":9090"
	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second
	// DefaultIssuer is the default token issuer.
	DefaultIssuer = "safety-relay"
	// DefaultTokenTTL is the default token lifetime.
	DefaultTokenTTL = 24 * time.Hour
	// DefaultSQLiteDSN is the default database file.
	DefaultSQLiteDSN = "safety-relay.db"
	// DefaultUploadsDir is the default recordings directory.
	DefaultUploadsDir = "uploads"
	// DefaultMaxUploadBytes mirrors the 20 MiB upload cap.
	DefaultMaxUploadBytes = 20 << 20
	// DefaultSendQueue is the default per-connection outbound queue length.
	DefaultSendQueue = 64
	// DefaultMaxFrameBytes caps one inbound websocket message.
	DefaultMaxFrameBytes = 1 << 20
	// DefaultRedisChannel is the default live-status channel.
	DefaultRedisChannel = "safety-relay.live"

	// MinSecretLength is the shortest accepted signing secret.
	MinSecretLength = 16

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600
	// DefaultDirPermissions is the default permission for created directories.
	DefaultDirPermissions = 0o750
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSecretTooShort is returned when the signing secret is missing or weak.
	errSecretTooShort = fmt.Errorf("auth secret must be at least %d bytes", MinSecretLength)
	// errUnknownDriver is returned for unsupported store drivers.
	errUnknownDriver = errors.New("unknown store driver")
	// errDSNRequired is returned when postgres is selected without a DSN.
	errDSNRequired = errors.New("store dsn must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file holds the signing secret.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for the rest.
//
//nolint:cyclop // Flat list of defaults reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if len(cfg.Auth.Secret) < MinSecretLength {
		return errSecretTooShort
	}

	if cfg.HTTPAddress == "" {
		cfg.HTTPAddress = DefaultHTTPAddress
	}

	if cfg.GRPCAddress == "" {
		cfg.GRPCAddress = DefaultGRPCAddress
	}

	for _, addr := range []string{cfg.HTTPAddress, cfg.GRPCAddress} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = DefaultIssuer
	}

	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = DefaultTokenTTL
	}

	switch cfg.Store.Driver {
	case "":
		cfg.Store.Driver = DriverSQLite
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, cfg.Store.Driver)
	}

	if cfg.Store.DSN == "" {
		if cfg.Store.Driver == DriverPostgres {
			return errDSNRequired
		}

		cfg.Store.DSN = DefaultSQLiteDSN
	}

	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = DefaultUploadsDir
	}

	if cfg.Uploads.MaxBytes <= 0 {
		cfg.Uploads.MaxBytes = DefaultMaxUploadBytes
	}

	if cfg.Relay.SendQueue <= 0 {
		cfg.Relay.SendQueue = DefaultSendQueue
	}

	if cfg.Relay.MaxFrameBytes <= 0 {
		cfg.Relay.MaxFrameBytes = DefaultMaxFrameBytes
	}

	if cfg.Relay.RedisChannel == "" {
		cfg.Relay.RedisChannel = DefaultRedisChannel
	}

	if cfg.Relay.RedisAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.Relay.RedisAddress); err != nil {
			return fmt.Errorf("invalid redis address: %w", err)
		}
	}

	return nil
}
