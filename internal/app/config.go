package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/kanbanctl/internal/apiclient"
	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// OutputFormat is how commands render API results.
type OutputFormat string

const (
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// TokenStorageType represents the different storage types supported for stored tokens.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeSealed  TokenStorageType = "sealed"
	TokenStorageTypeSQLite  TokenStorageType = "sqlite"
)

// KeyringService is the keyring service name credentials are stored under.
const KeyringService = "kanbanctl"

// Default configuration values
const (
	DefaultConfigLogFormat        = LogFormatText
	DefaultConfigOutput           = OutputFormatJSON
	DefaultConfigAPIBaseURL       = "http://localhost:8080"
	DefaultConfigAPITimeout       = 30 * time.Second
	DefaultConfigAuthStorage      = TokenStorageTypeFile
	DefaultConfigAuthEnvPrefix    = "KANBANCTL_"
	DefaultConfigRefreshPolicy    = apiclient.RefreshReject
	DefaultConfigServerHost       = "127.0.0.1"
	DefaultConfigServerPort       = 8080
	DefaultConfigServerAccessTTL  = 15 * time.Minute
	DefaultConfigServerRefreshTTL = 14 * 24 * time.Hour
	DefaultConfigShutdownTimeout  = 5 * time.Second
)

// APIConfig holds the Kanban API connection settings.
type APIConfig struct {
	BaseURL string        `json:"base_url" validate:"required,url"`
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
}

// AuthConfig describes where the credential pair is kept and how 401s are handled.
type AuthConfig struct {
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file env keyring sealed sqlite"`

	// Storage-specific settings, only the one matching Storage is used
	File         string `json:"file,omitempty"`          // file: path to the JSON record
	EnvPrefix    string `json:"env_prefix,omitempty"`    // env: prefix of ACCESS_TOKEN/REFRESH_TOKEN
	KeyringUser  string `json:"keyring_user,omitempty"`  // keyring: account name
	SealedFile   string `json:"sealed_file,omitempty"`   // sealed: path to the encrypted record
	IdentityFile string `json:"identity_file,omitempty"` // sealed: path to the age identity
	Database     string `json:"database,omitempty"`      // sqlite: database path

	RefreshPolicy apiclient.RefreshPolicy `json:"refresh_policy" validate:"required,oneof=reject join"`
}

// NewTokenStore creates a TokenStore from the authentication configuration.
// The returned closer releases backend resources and is never nil.
func (a *AuthConfig) NewTokenStore() (tokenstore.TokenStore, io.Closer, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		store, err := tokenstore.NewFileStore(a.File)
		return store, nopCloser{}, err
	case TokenStorageTypeEnv:
		store, err := tokenstore.NewEnvStore(a.EnvPrefix)
		return store, nopCloser{}, err
	case TokenStorageTypeKeyring:
		store, err := tokenstore.NewKeyringStore(KeyringService, a.KeyringUser)
		return store, nopCloser{}, err
	case TokenStorageTypeSealed:
		store, err := tokenstore.NewSealedStore(a.SealedFile, a.IdentityFile)
		return store, nopCloser{}, err
	case TokenStorageTypeSQLite:
		store, err := tokenstore.NewSQLiteStore(a.Database)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ServerConfig holds settings of the development API server.
type ServerConfig struct {
	Host       string        `json:"host" validate:"hostname_rfc1123|ip"`
	Port       uint16        `json:"port"` // Port range 0-65535 handled by uint16 type
	JWTSecret  string        `json:"jwt_secret,omitempty"`
	AccessTTL  time.Duration `json:"access_ttl" validate:"gt=0"`
	RefreshTTL time.Duration `json:"refresh_ttl" validate:"gtfield=AccessTTL"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json"`
	Output    OutputFormat   `json:"output" validate:"oneof=json yaml"`
	API       APIConfig      `json:"api"`
	Auth      AuthConfig     `json:"auth"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Output == "" {
		c.Output = DefaultConfigOutput
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultConfigAPITimeout
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Auth.RefreshPolicy == "" {
		c.Auth.RefreshPolicy = DefaultConfigRefreshPolicy
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Server.AccessTTL == 0 {
		c.Server.AccessTTL = DefaultConfigServerAccessTTL
	}
	if c.Server.RefreshTTL == 0 {
		c.Server.RefreshTTL = DefaultConfigServerRefreshTTL
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			dir, err := configDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(dir, "tokens.json")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvPrefix == "" {
			c.Auth.EnvPrefix = DefaultConfigAuthEnvPrefix
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeSealed:
		if c.Auth.SealedFile == "" || c.Auth.IdentityFile == "" {
			dir, err := configDir()
			if err != nil {
				return fmt.Errorf("auth.sealed_file and auth.identity_file required (auto-detect failed: %w)", err)
			}
			if c.Auth.SealedFile == "" {
				c.Auth.SealedFile = filepath.Join(dir, "tokens.age")
			}
			if c.Auth.IdentityFile == "" {
				c.Auth.IdentityFile = filepath.Join(dir, "identity.txt")
			}
		}
	case TokenStorageTypeSQLite:
		if c.Auth.Database == "" {
			dir, err := configDir()
			if err != nil {
				return fmt.Errorf("auth.database required (auto-detect failed: %w)", err)
			}
			c.Auth.Database = filepath.Join(dir, "kanbanctl.db")
		}
	}

	return nil
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "kanbanctl"), nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvPrefix == "" {
			return errors.New("env_prefix required for env storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	case TokenStorageTypeSealed:
		if c.Auth.SealedFile == "" || c.Auth.IdentityFile == "" {
			return errors.New("sealed_file and identity_file required for sealed storage")
		}
		if filepath.Clean(c.Auth.SealedFile) == filepath.Clean(c.Auth.IdentityFile) {
			return errors.New("sealed_file and identity_file must differ")
		}
	case TokenStorageTypeSQLite:
		if c.Auth.Database == "" {
			return errors.New("database path required for sqlite storage")
		}
	}

	return nil
}
