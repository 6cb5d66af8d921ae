package envconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	goGuard "github.com/MrEthical07/goGuard"
)

// Ledger backends selectable with LEDGER_BACKEND.
const (
	BackendRedis     = "redis"
	BackendMiniredis = "miniredis"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendDynamoDB  = "dynamodb"
	BackendMemory    = "memory"
)

var validate = validator.New()

// Settings are the process-level options of the goGuard commands. Precedence, lowest first:
// defaults, .env, environment, flags.
type Settings struct {
	Algorithm        string `validate:"required,oneof=HS224 HS256 HS384 HS512 RS256 RS384 RS512 ES256 ES384 ES256K"`
	Secret           string
	AccessTTL        time.Duration `validate:"min=1s"`
	RefreshTTL       time.Duration `validate:"min=1s"`
	PrivateKeyPath   string        `validate:"required_with=PublicKeyPath"`
	PublicKeyPath    string        `validate:"required_with=PrivateKeyPath"`
	Passphrase       string
	RefreshMechanism string `validate:"oneof=cookie header"`
	AccessVerifier   bool

	Backend        string `validate:"oneof=redis miniredis postgres sqlite dynamodb memory"`
	RedisAddr      string `validate:"required_if=Backend redis"`
	DatabaseDSN    string `validate:"required_if=Backend postgres"`
	SQLitePath     string `validate:"required_if=Backend sqlite"`
	DynamoTable    string `validate:"required_if=Backend dynamodb"`
	AWSRegion      string
	DynamoEndpoint string `validate:"omitempty,url"`

	LogLevel   string `validate:"oneof=trace debug info warn error"`
	LogFormat  string `validate:"oneof=text json"`
	ListenAddr string `validate:"required"`
}

func NewSettings() *Settings {
	return &Settings{
		Algorithm:        "HS256",
		AccessTTL:        time.Hour,
		RefreshTTL:       7 * 24 * time.Hour,
		RefreshMechanism: string(goGuard.RefreshCookie),
		Backend:          BackendMiniredis,
		RedisAddr:        "localhost:6379",
		SQLitePath:       "goguard.db",
		LogLevel:         "info",
		LogFormat:        "text",
		ListenAddr:       "localhost:8080",
	}
}

// Load applies .env from dir, the process environment and args in that order, then validates.
func Load(dir string, args []string) (*Settings, error) {
	s := NewSettings()
	if err := s.LoadDotEnv(dir); err != nil {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	if err := s.LoadEnv(os.Getenv); err != nil {
		return nil, err
	}
	fs := pflag.NewFlagSet("goguard", pflag.ContinueOnError)
	s.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadDotEnv reads dir/.env. A missing file is not an error.
func (s *Settings) LoadDotEnv(dir string) error {
	env, err := godotenv.Read(filepath.Join(dir, ".env"))
	switch {
	case err == nil:
		return s.LoadEnv(func(key string) string { return env[key] })
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

// LoadEnv overrides every field whose variable is set and non-empty.
func (s *Settings) LoadEnv(getenv func(string) string) error {
	setString := func(dst *string) func(string) error {
		return func(v string) error {
			*dst = v
			return nil
		}
	}
	setDuration := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := parseDuration(v)
			if err != nil {
				return err
			}
			*dst = d
			return nil
		}
	}
	setBool := func(dst *bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		}
	}

	vars := map[string]func(string) error{
		"JWT_ALGO":                  setString(&s.Algorithm),
		"JWT_SECRET":                setString(&s.Secret),
		"JWT_TTL":                   setDuration(&s.AccessTTL),
		"JWT_REFRESH_TTL":           setDuration(&s.RefreshTTL),
		"JWT_PRIVATE_KEY":           setString(&s.PrivateKeyPath),
		"JWT_PUBLIC_KEY":            setString(&s.PublicKeyPath),
		"JWT_PASSPHRASE":            setString(&s.Passphrase),
		"JWT_REFRESH_MECHANISM":     setString(&s.RefreshMechanism),
		"JWT_ACCESS_TOKEN_VERIFIER": setBool(&s.AccessVerifier),
		"LEDGER_BACKEND":            setString(&s.Backend),
		"REDIS_ADDR":                setString(&s.RedisAddr),
		"DATABASE_DSN":              setString(&s.DatabaseDSN),
		"SQLITE_PATH":               setString(&s.SQLitePath),
		"DYNAMODB_TABLE":            setString(&s.DynamoTable),
		"DYNAMODB_ENDPOINT":         setString(&s.DynamoEndpoint),
		"AWS_REGION":                setString(&s.AWSRegion),
		"LOG_LEVEL":                 setString(&s.LogLevel),
		"LOG_FORMAT":                setString(&s.LogFormat),
		"LISTEN_ADDR":               setString(&s.ListenAddr),
	}

	for key, set := range vars {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		if err := set(v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// RegisterFlags binds the common flags to fs with the current values as defaults.
func (s *Settings) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.Algorithm, "algo", s.Algorithm, "JWT signing algorithm")
	fs.DurationVar(&s.AccessTTL, "ttl", s.AccessTTL, "Access token lifetime")
	fs.DurationVar(&s.RefreshTTL, "refresh-ttl", s.RefreshTTL, "Refresh token lifetime")
	fs.StringVarP(&s.Backend, "backend", "b", s.Backend, "Ledger backend (redis, miniredis, postgres, sqlite, dynamodb, memory)")
	fs.StringVar(&s.RedisAddr, "redis", s.RedisAddr, "Redis address")
	fs.StringVarP(&s.DatabaseDSN, "database", "d", s.DatabaseDSN, "Postgres connection string")
	fs.StringVar(&s.SQLitePath, "sqlite", s.SQLitePath, "SQLite database path")
	fs.StringVar(&s.DynamoTable, "dynamodb-table", s.DynamoTable, "DynamoDB table name")
	fs.StringVarP(&s.LogLevel, "log-level", "l", s.LogLevel, "Logging level (trace, debug, info, warn, error)")
	fs.StringVar(&s.LogFormat, "log-format", s.LogFormat, "Log format (text, json)")
	fs.StringVarP(&s.ListenAddr, "address", "a", s.ListenAddr, "HTTP listen address")
}

func (s *Settings) Validate() error {
	return validate.Struct(s)
}

// EngineConfig maps the settings onto goGuard.DefaultConfig.
func (s *Settings) EngineConfig() goGuard.Config {
	cfg := goGuard.DefaultConfig()
	cfg.JWT.Algorithm = s.Algorithm
	cfg.JWT.Secret = []byte(s.Secret)
	cfg.JWT.AccessTTL = s.AccessTTL
	cfg.JWT.RefreshTTL = s.RefreshTTL
	cfg.JWT.PrivateKeyPath = s.PrivateKeyPath
	cfg.JWT.PublicKeyPath = s.PublicKeyPath
	if s.Passphrase != "" {
		cfg.JWT.Passphrase = []byte(s.Passphrase)
	}
	cfg.RefreshToken.Mechanism = goGuard.RefreshMechanism(s.RefreshMechanism)
	cfg.AccessTokenVerifier.Enabled = s.AccessVerifier
	return cfg
}

// parseDuration accepts Go durations and bare integers as seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// UpdateDotEnv rewrites dir/.env with values merged over its current contents.
func UpdateDotEnv(dir string, values map[string]string) error {
	path := filepath.Join(dir, ".env")
	env, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if env == nil {
		env = make(map[string]string, len(values))
	}
	for k, v := range values {
		env[k] = v
	}
	return godotenv.Write(env, path)
}

// DotEnvValue returns key from dir/.env, or "" when absent.
func DotEnvValue(dir, key string) (string, error) {
	env, err := godotenv.Read(filepath.Join(dir, ".env"))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	return env[key], err
}
