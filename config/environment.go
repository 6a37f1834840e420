package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andrewpaige1/studyplan-api/logger"
)

type Environment struct {
	Name          string
	IsDevelopment bool
	Port          string

	DBDriver string
	DBURL    string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	SessionTTL  time.Duration

	CookieName   string
	Domain       string
	CookieSecure bool

	AllowedOrigins []string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	LLMMaxTokens     int
	LLMTimeout       time.Duration
	LLMMaxRetries    int

	Location        *time.Location
	ArchiveSchedule string

	LogLevel     string
	LogFile      string
	GormLogLevel string
	RollbarToken string
	CodeVersion  string
}

const devJWTSecret = "development-only-secret-change-me-0123456789"

// LoadDotEnv loads .env unless the process runs on Railway, where the
// platform injects variables itself.
func LoadDotEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT_NAME") != "" {
		return
	}
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded, relying on process environment", "error", err)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_url", "studyplan.db")
	v.SetDefault("jwt_secret_key", "")
	v.SetDefault("jwt_issuer", "studyplan-api")
	v.SetDefault("jwt_audience", "studyplan-web")
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("cookie_name", "session_token")
	v.SetDefault("cookie_domain", "")
	v.SetDefault("cors_allowed_origins", "http://localhost:3000")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("anthropic_model", "claude-3-opus-20240229")
	v.SetDefault("anthropic_base_url", "https://api.anthropic.com")
	v.SetDefault("llm_max_tokens", 4000)
	v.SetDefault("llm_timeout", 120*time.Second)
	v.SetDefault("llm_max_retries", 2)
	v.SetDefault("app_timezone", "")
	v.SetDefault("archive_schedule", "0 15 3 * * *")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("gorm_log_level", "warn")
	v.SetDefault("rollbar_token", "")
	// Railway exposes the deployed commit
	v.SetDefault("code_version", os.Getenv("RAILWAY_GIT_COMMIT_SHA"))
	v.AutomaticEnv()
	return v
}

// Load reads and checks the process environment.
func Load() (Environment, error) {
	v := newViper()

	// If no domain is set, we're in development
	domain := strings.TrimSpace(v.GetString("cookie_domain"))
	isDev := domain == ""
	if isDev {
		domain = "localhost"
	}

	env := Environment{
		Name:          v.GetString("env"),
		IsDevelopment: isDev,
		Port:          v.GetString("port"),

		DBDriver: strings.ToLower(strings.TrimSpace(v.GetString("db_driver"))),
		DBURL:    strings.TrimSpace(v.GetString("db_url")),

		JWTSecret:   v.GetString("jwt_secret_key"),
		JWTIssuer:   v.GetString("jwt_issuer"),
		JWTAudience: v.GetString("jwt_audience"),
		SessionTTL:  v.GetDuration("session_ttl"),

		CookieName:   v.GetString("cookie_name"),
		Domain:       domain,
		CookieSecure: !isDev,

		AllowedOrigins: splitList(v.GetString("cors_allowed_origins")),

		AnthropicAPIKey:  strings.TrimSpace(v.GetString("anthropic_api_key")),
		AnthropicModel:   v.GetString("anthropic_model"),
		AnthropicBaseURL: strings.TrimRight(v.GetString("anthropic_base_url"), "/"),
		LLMMaxTokens:     v.GetInt("llm_max_tokens"),
		LLMTimeout:       v.GetDuration("llm_timeout"),
		LLMMaxRetries:    v.GetInt("llm_max_retries"),

		ArchiveSchedule: v.GetString("archive_schedule"),

		LogLevel:     v.GetString("log_level"),
		LogFile:      v.GetString("log_file"),
		GormLogLevel: v.GetString("gorm_log_level"),
		RollbarToken: v.GetString("rollbar_token"),
		CodeVersion:  v.GetString("code_version"),
	}

	loc, err := loadLocation(v.GetString("app_timezone"))
	if err != nil {
		return env, err
	}
	env.Location = loc

	if env.JWTSecret == "" {
		if !env.IsDevelopment {
			return env, fmt.Errorf("JWT_SECRET_KEY is required when COOKIE_DOMAIN is set")
		}
		logger.Info("JWT_SECRET_KEY not set, using development secret")
		env.JWTSecret = devJWTSecret
	}
	if len(env.JWTSecret) < 32 {
		return env, fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}

	switch env.DBDriver {
	case "postgres", "sqlite":
	default:
		return env, fmt.Errorf("unsupported DB_DRIVER %q", env.DBDriver)
	}

	if env.SessionTTL <= 0 {
		env.SessionTTL = 24 * time.Hour
	}
	if env.LLMMaxTokens <= 0 {
		env.LLMMaxTokens = 4000
	}

	return env, nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
