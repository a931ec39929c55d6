package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/notify"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Session key storage modes.
const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

type Config struct {
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	TrustedProxies      []string      // IPs/CIDRs whose X-Forwarded-For is believed (default: none)

	StoreDriver   string // sqlite or mongo (default: sqlite)
	DatabaseFile  string // SQLite database file (default: dreamscape.db)
	MongoURI      string // Required for the mongo driver
	MongoDatabase string // (default: dreamscape)
	PepperFile    string // Password pepper, created when missing (default: pepper)

	SessionIssuer        string        // iss claim of session tokens (default: dreamscape)
	SessionSecret        string        // Optional: HS256 secret, sessions survive restarts
	SessionKeyStorage    string        // ephemeral or persistent Ed25519 keys (default: ephemeral)
	SessionMasterKeyFile string        // Seals persisted keys; required when persistent
	SessionNumKeys       int           // Signing Ed25519 keys (default: 2)
	SessionKeyLifetime   time.Duration // How long a persisted key signs (default: 720h)
	SessionTTL           time.Duration // (default: 720h)
	SessionCookieSecure  bool          // Secure flag on cookies (default: false)

	GoogleClientID     string // Google sign-in is enabled when all three are set
	GoogleClientSecret string
	GoogleRedirectURL  string

	RabbitMQURL      string // Optional: AMQP notifications
	RabbitMQExchange string // (default: dreamscape.events)

	ReconcileInterval time.Duration // Background status reconciliation (default: 5m)
}

// LoadConfig reads the environment after loading DOTENV_FILE (default
// .env) when it exists. Variables already set win over the file.
func LoadConfig() (Config, error) {
	if err := loadDotenv(getEnvOrDefault("DOTENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		TrustedProxies:      getEnvListOrDefault("TRUSTED_PROXIES", nil),

		StoreDriver:   strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverSQLite)),
		DatabaseFile:  getEnvOrDefault("DATABASE_FILE", "dreamscape.db"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "dreamscape"),
		PepperFile:    getEnvOrDefault("PEPPER_FILE", "pepper"),

		SessionIssuer:        getEnvOrDefault("SESSION_ISSUER", "dreamscape"),
		SessionSecret:        os.Getenv("SESSION_SECRET"),
		SessionKeyStorage:    strings.ToLower(getEnvOrDefault("SESSION_KEY_STORAGE", KeyStorageEphemeral)),
		SessionMasterKeyFile: os.Getenv("SESSION_MASTER_KEY_FILE"),
		SessionNumKeys:       getEnvIntOrDefault("SESSION_NUM_KEYS", 2),
		SessionKeyLifetime:   getEnvDurationOrDefault("SESSION_KEY_LIFETIME", 720*time.Hour),
		SessionTTL:           getEnvDurationOrDefault("SESSION_TTL", 720*time.Hour),
		SessionCookieSecure:  getEnvBoolOrDefault("SESSION_COOKIE_SECURE", false),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: getEnvOrDefault("RABBITMQ_EXCHANGE", notify.DefaultExchange),

		ReconcileInterval: getEnvDurationOrDefault("RECONCILE_INTERVAL", 5*time.Minute),
	}

	return cfg, cfg.Validate()
}

// Validate reports configuration the process cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORE_DRIVER=mongo")
		}
		if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
			return errors.New("MONGODB_URI must start with mongodb:// or mongodb+srv://")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.SessionNumKeys < 1 || c.SessionNumKeys > 10 {
		return fmt.Errorf("SESSION_NUM_KEYS must be between 1 and 10, got %d", c.SessionNumKeys)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}

	switch c.SessionKeyStorage {
	case KeyStorageEphemeral:
	case KeyStoragePersistent:
		if c.SessionSecret != "" {
			return errors.New("SESSION_SECRET cannot be combined with SESSION_KEY_STORAGE=persistent")
		}
		if c.SessionMasterKeyFile == "" {
			return errors.New("SESSION_MASTER_KEY_FILE is required when SESSION_KEY_STORAGE=persistent")
		}
		if c.SessionKeyLifetime <= 0 {
			return errors.New("SESSION_KEY_LIFETIME must be positive")
		}
	default:
		return fmt.Errorf("unknown SESSION_KEY_STORAGE %q", c.SessionKeyStorage)
	}
	return nil
}

// GoogleEnabled is true when every Google sign-in setting is present.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func loadDotenv(file string) error {
	err := godotenv.Load(file)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", file, err)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma separated value, dropping empty items.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
