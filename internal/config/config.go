// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken    = "TELEGRAM_TOKEN"
	KeyBotSecret        = "BOT_SECRET"
	KeyMongoURI         = "MONGO_URI"
	KeyMongoDB          = "MONGO_DB"
	KeyOpenRouterAPIKey = "OPENROUTER_API_KEY"
	KeyOpenRouterModel  = "OPENROUTER_MODEL"
	KeyAppEnv           = "APP_ENV"
	KeyLogLevel         = "LOG_LEVEL"
	KeyHTTPPort         = "HTTP_PORT"
	KeyDigestTimezone   = "DIGEST_TZ"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv          = EnvProduction
	DefaultLogLevel        = "info"
	DefaultHTTPPort        = 8080
	DefaultBotSecret       = "open-sesame"
	DefaultOpenRouterModel = "openrouter/auto"
	DefaultDigestTimezone  = "Europe/Paris"

	// Recommended database names by environment.
	DefaultMongoDBProd = "tg_calendar"
	DefaultMongoDBDev  = "tg_calendar_dev"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
	Secret      bool   // redacted in diagnostics output
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
		Secret:      true,
	},
	{
		Key:         KeyBotSecret,
		Example:     DefaultBotSecret,
		Default:     DefaultBotSecret,
		Description: "Secret word unauthenticated users must send to unlock the bot.",
		Secret:      true,
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string.",
		Secret:      true,
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyOpenRouterAPIKey,
		Example:     "sk-or-...",
		Description: "OpenRouter API key used to translate free text into commands.",
		Notes:       "Optional; free-text messages are rejected when unset.",
		Secret:      true,
	},
	{
		Key:         KeyOpenRouterModel,
		Example:     DefaultOpenRouterModel,
		Default:     DefaultOpenRouterModel,
		Description: "OpenRouter model used for free-text translation.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health/diagnostics port.",
	},
	{
		Key:         KeyDigestTimezone,
		Example:     DefaultDigestTimezone,
		Default:     DefaultDigestTimezone,
		Description: "Timezone the digest windows are computed in.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken    string
	BotSecret        string
	MongoURI         string
	MongoDB          string
	OpenRouterAPIKey string
	OpenRouterModel  string
	AppEnv           string
	LogLevel         string
	HTTPPort         int
	DigestTimezone   string
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:           firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:    strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		BotSecret:        firstNonEmpty(os.Getenv(KeyBotSecret), DefaultBotSecret),
		MongoURI:         strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:          strings.TrimSpace(os.Getenv(KeyMongoDB)),
		OpenRouterAPIKey: strings.TrimSpace(os.Getenv(KeyOpenRouterAPIKey)),
		OpenRouterModel:  firstNonEmpty(strings.TrimSpace(os.Getenv(KeyOpenRouterModel)), DefaultOpenRouterModel),
		LogLevel:         firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:         DefaultHTTPPort,
		DigestTimezone:   firstNonEmpty(strings.TrimSpace(os.Getenv(KeyDigestTimezone)), DefaultDigestTimezone),
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}

	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
		return Config{}, fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// FormatRedacted renders the resolved configuration with secret values masked,
// suitable for diagnostics output.
func FormatRedacted(cfg Config) string {
	values := map[string]string{
		KeyTelegramToken:    cfg.TelegramToken,
		KeyBotSecret:        cfg.BotSecret,
		KeyMongoURI:         cfg.MongoURI,
		KeyMongoDB:          cfg.MongoDB,
		KeyOpenRouterAPIKey: cfg.OpenRouterAPIKey,
		KeyOpenRouterModel:  cfg.OpenRouterModel,
		KeyAppEnv:           cfg.AppEnv,
		KeyLogLevel:         cfg.LogLevel,
		KeyHTTPPort:         strconv.Itoa(cfg.HTTPPort),
		KeyDigestTimezone:   cfg.DigestTimezone,
	}

	lines := make([]string, 0, len(Contract))
	for _, spec := range Contract {
		value := values[spec.Key]
		if value == "" {
			value = "(unset)"
		} else if spec.Secret {
			value = "***"
		}
		lines = append(lines, fmt.Sprintf("%s=%s", spec.Key, value))
	}

	return strings.Join(lines, "\n")
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
