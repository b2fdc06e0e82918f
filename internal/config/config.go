// Package config provides functionality for managing configuration options
// for the client and the auth server using command-line flags, an optional
// JSON config file, .env files and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads "1s"-style strings from JSON and flags.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalJSON accepts a duration string such as "30s".
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.Set(s)
}

// ClientOptions holds the configuration values for the client shell.
type ClientOptions struct {
	// AuthMode selects the authenticator: "mock" or "http".
	AuthMode string `json:"auth_mode" validate:"oneof=mock http"`
	// AuthBaseURL is the <auth-base> for the http authenticator.
	AuthBaseURL string `json:"auth_base_url" validate:"required_if=AuthMode http"`
	// CAFile optionally pins the CA of the auth server.
	CAFile string `json:"ca_file"`
	// RequestTimeout bounds a single auth request; zero means no limit.
	RequestTimeout Duration `json:"request_timeout"`
	// MockDelay is the simulated latency of the mock authenticator.
	MockDelay Duration `json:"mock_delay"`

	StorageBackend string `json:"storage_backend" validate:"oneof=file sqlite memory"`
	StoragePath    string `json:"storage_path" validate:"required_unless=StorageBackend memory"`
	StorageSecret  string `json:"storage_secret"`

	TrashRetention     Duration `json:"trash_retention"`
	TrashPurgeInterval Duration `json:"trash_purge_interval" validate:"gt=0"`

	LogLevel string `json:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// ServerOptions holds the configuration values for the auth server.
type ServerOptions struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address" validate:"required"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" validate:"required"`

	// JWTSecret signs issued tokens.
	JWTSecret string `json:"jwt_secret" validate:"required,min=16"`
	TokenTTL  Duration `json:"token_ttl"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" validate:"required_with=TLSKey"`
	TLSKey  string `json:"tls_key" validate:"required_with=TLSCert"`

	LogLevel string `json:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseClient parses client flags from args, then overlays the config file
// and environment variables.
func ParseClient(args []string) (*ClientOptions, error) {
	o := &ClientOptions{
		MockDelay:          Duration(time.Second),
		RequestTimeout:     Duration(15 * time.Second),
		TrashRetention:     Duration(30 * 24 * time.Hour),
		TrashPurgeInterval: Duration(time.Hour),
	}

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.AuthMode, "auth", "mock", "authenticator: mock or http")
	fs.StringVar(&o.AuthBaseURL, "a", "", "auth server base URL")
	fs.StringVar(&o.CAFile, "ca", "", "CA certificate of the auth server")
	fs.Var(&o.RequestTimeout, "timeout", "auth request timeout")
	fs.Var(&o.MockDelay, "mock-delay", "simulated mock login latency")
	fs.StringVar(&o.StorageBackend, "storage", "file", "storage backend: file, sqlite or memory")
	fs.StringVar(&o.StoragePath, "p", "docchat.json", "storage path")
	fs.StringVar(&o.StorageSecret, "secret", "", "encrypt stored values with this secret")
	fs.Var(&o.TrashRetention, "trash-retention", "how long deleted chats are kept")
	fs.Var(&o.TrashPurgeInterval, "trash-interval", "how often the trash is purged")
	fs.StringVar(&o.LogLevel, "l", "Error", "log level")
	fs.StringVar(&o.Config, "config", "", "path to config file")
	fs.StringVar(&o.Config, "c", "", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := loadFile(&o.Config, o); err != nil {
		return nil, err
	}

	envString("AUTH_MODE", &o.AuthMode)
	envString("AUTH_BASE_URL", &o.AuthBaseURL)
	envString("CA_FILE", &o.CAFile)
	envString("STORAGE_BACKEND", &o.StorageBackend)
	envString("STORAGE_PATH", &o.StoragePath)
	envString("STORAGE_SECRET", &o.StorageSecret)
	envString("LOG_LEVEL", &o.LogLevel)
	err := errors.Join(
		envDuration("REQUEST_TIMEOUT", &o.RequestTimeout),
		envDuration("MOCK_DELAY", &o.MockDelay),
		envDuration("TRASH_RETENTION", &o.TrashRetention),
		envDuration("TRASH_PURGE_INTERVAL", &o.TrashPurgeInterval),
	)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	if o.AuthBaseURL != "" {
		if err := validate.Var(o.AuthBaseURL, "url"); err != nil {
			return nil, fmt.Errorf("invalid client config: auth base URL %q: %w", o.AuthBaseURL, err)
		}
	}
	return o, nil
}

// ParseServer parses server flags from args, then overlays the config file
// and environment variables.
func ParseServer(args []string) (*ServerOptions, error) {
	o := &ServerOptions{TokenTTL: Duration(24 * time.Hour)}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.JWTSecret, "k", "", "JWT signing secret")
	fs.Var(&o.TokenTTL, "ttl", "token lifetime")
	fs.StringVar(&o.TLSCert, "cert", "", "TLS certificate file")
	fs.StringVar(&o.TLSKey, "key", "", "TLS key file")
	fs.StringVar(&o.LogLevel, "l", "Info", "log level")
	fs.StringVar(&o.Config, "config", "", "path to config file")
	fs.StringVar(&o.Config, "c", "", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := loadFile(&o.Config, o); err != nil {
		return nil, err
	}

	envString("SERVER_ADDRESS", &o.Port)
	envString("DATABASE_DSN", &o.DatabaseDSN)
	envString("JWT_SECRET", &o.JWTSecret)
	envString("TLS_CERT", &o.TLSCert)
	envString("TLS_KEY", &o.TLSKey)
	envString("LOG_LEVEL", &o.LogLevel)
	if err := envDuration("TOKEN_TTL", &o.TokenTTL); err != nil {
		return nil, err
	}

	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return o, nil
}

// loadFile loads .env into the environment and decodes the JSON config
// file into dst when it exists. The CONFIG env var overrides path.
func loadFile(path *string, dst any) error {
	// a missing .env is fine
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		*path = configPath
	}
	if *path == "" {
		return nil
	}
	data, err := os.ReadFile(*path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envDuration(name string, dst *Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	if err := dst.Set(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
